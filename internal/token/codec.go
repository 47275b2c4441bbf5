// Package token 实现恢复令牌编解码。
//
// 恢复令牌是可逆编码而不是加密：任何持有令牌的人都能还原出
// 邮箱地址、密码和会话令牌，从而完全接管该邮箱。令牌的唯一
// 安全属性由持有方保证，系统侧从不落盘、不回显、不写日志。
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"tempmail/bot/internal/domain"
)

// ErrMalformedToken 表示令牌不是合法的恢复令牌。
// 解码在任何一步失败都返回该错误，绝不返回残缺凭据。
var ErrMalformedToken = errors.New("malformed recovery token")

// Encode 将邮箱凭据编码为单行可传输的恢复令牌。
//
// 载荷是 JSON 对象 {"email","password","token"}，外层为带填充的
// URL-safe Base64。输出不含空白与控制字符，可直接作为聊天消息
// 或命令参数传递，且与历史部署签发的令牌互相兼容。
func Encode(credential domain.MailboxCredential) (string, error) {
	if err := credential.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(credential)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode 将恢复令牌还原为邮箱凭据。
//
// Base64 解码失败、JSON 解析失败或必填字段缺失/为空时，
// 一律返回 ErrMalformedToken。
func Decode(encoded string) (domain.MailboxCredential, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return domain.MailboxCredential{}, ErrMalformedToken
	}

	var credential domain.MailboxCredential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return domain.MailboxCredential{}, ErrMalformedToken
	}
	if err := credential.Validate(); err != nil {
		return domain.MailboxCredential{}, ErrMalformedToken
	}
	return credential, nil
}
