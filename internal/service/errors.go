package service

import "errors"

// 业务层错误分类，指令分发层据此选择面向用户的提示文案。
var (
	// ErrInvalidToken 恢复令牌无法解码。
	ErrInvalidToken = errors.New("invalid recovery token")
	// ErrProviderRejected 服务商拒绝了令牌中的凭据。
	ErrProviderRejected = errors.New("provider rejected restored credentials")
	// ErrNoActiveSession 用户当前没有活动会话。
	ErrNoActiveSession = errors.New("no active session")
	// ErrUnauthenticated 会话的服务商凭据已失效，需要 /repair。
	ErrUnauthenticated = errors.New("session is no longer authenticated")
	// ErrProviderUnavailable 服务商不可达或持续出错。
	ErrProviderUnavailable = errors.New("mailbox provider unavailable")
)
