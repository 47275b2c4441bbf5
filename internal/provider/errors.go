package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// 服务商调用的错误分类。调用方用 errors.Is 判别，
// 原始响应体不会透传给最终用户。
var (
	// ErrUnauthorized 会话令牌被拒绝（过期或吊销）。
	ErrUnauthorized = errors.New("provider rejected credentials")
	// ErrNotFound 目标资源不存在（例如邮件已被删除）。
	ErrNotFound = errors.New("provider resource not found")
	// ErrRateLimited 服务商限流。
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUnavailable 网络失败、超时或服务商 5xx。
	ErrUnavailable = errors.New("provider unavailable")
	// ErrBadResponse 响应缺少必填字段，按服务商故障处理。
	ErrBadResponse = errors.New("provider returned malformed response")
)

// statusError 将 HTTP 状态码映射到错误分类。
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}
}

// transportError 包装网络层失败（连接拒绝、超时、上下文取消）。
func transportError(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
