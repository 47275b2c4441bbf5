package domain

import (
	"errors"
	"net/mail"
	"strings"
)

// 凭据校验相关的错误定义
var (
	ErrEmptyAddress     = errors.New("credential address is empty")
	ErrEmptyPassword    = errors.New("credential password is empty")
	ErrEmptyBearer      = errors.New("credential bearer token is empty")
	ErrInvalidAddress   = errors.New("credential address is not a valid email")
	ErrUnsafeCredential = errors.New("credential field contains whitespace or control characters")
)

// MailboxCredential 表示重新登录服务商邮箱所需的最小凭据集合。
//
// 三个字段共同构成恢复令牌的载荷：地址 + 密码用于重新认证，
// Bearer 是服务商上次签发的会话令牌（可能已过期，仅作为快捷路径）。
type MailboxCredential struct {
	Address  string `json:"email"`
	Password string `json:"password"`
	Bearer   string `json:"token"`
}

// Validate 校验凭据三元组是否完整可用。
//
// 任一字段为空、地址非法或字段含有空白字符均视为无效，
// 防止半成品凭据进入会话存储。
func (c MailboxCredential) Validate() error {
	if c.Address == "" {
		return ErrEmptyAddress
	}
	if c.Password == "" {
		return ErrEmptyPassword
	}
	if c.Bearer == "" {
		return ErrEmptyBearer
	}
	if _, err := mail.ParseAddress(c.Address); err != nil {
		return ErrInvalidAddress
	}
	for _, field := range []string{c.Address, c.Password, c.Bearer} {
		if strings.ContainsFunc(field, func(r rune) bool { return r <= ' ' || r == 0x7f }) {
			return ErrUnsafeCredential
		}
	}
	return nil
}
