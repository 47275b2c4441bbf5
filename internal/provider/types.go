package provider

import (
	"time"

	"tempmail/bot/internal/domain"
)

// hydraMembers 是服务商列表接口统一的分页信封。
type hydraMembers[T any] struct {
	Members []T `json:"hydra:member"`
}

// providerDomain 表示服务商开放注册的一个邮箱域名。
type providerDomain struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"isActive"`
}

// Account 是账户创建接口返回的账户记录。
type Account struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// tokenResponse 是认证接口的响应体。
type tokenResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Sender 表示邮件发件人。
type Sender struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// MessageSummary 是收件箱列表中的一封邮件概要。
type MessageSummary struct {
	ID             string    `json:"id"`
	From           Sender    `json:"from"`
	Subject        string    `json:"subject"`
	Intro          string    `json:"intro"`
	Seen           bool      `json:"seen"`
	HasAttachments bool      `json:"hasAttachments"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Message 是单封邮件的完整内容。
type Message struct {
	ID          string              `json:"id"`
	From        Sender              `json:"from"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	HTML        []string            `json:"html"`
	Attachments []domain.Attachment `json:"attachments"`
	CreatedAt   time.Time           `json:"createdAt"`
}
