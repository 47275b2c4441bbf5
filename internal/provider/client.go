// Package provider 封装邮箱服务商的 HTTP API。
//
// 所有方法都是纯请求/响应：认证状态由调用方以 Bearer 令牌的形式
// 显式传入，客户端自身不持有任何会话。每个调用受超时约束，
// 网络抖动只做有限次重试，持久失败以分类错误浮出。
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// API 定义收件箱服务商的全部操作，供业务层依赖与测试替身实现。
type API interface {
	Domains(ctx context.Context) ([]string, error)
	CreateAccount(ctx context.Context, address, password string) (*Account, error)
	Authenticate(ctx context.Context, address, password string) (string, error)
	ListMessages(ctx context.Context, bearer string) ([]MessageSummary, error)
	GetMessage(ctx context.Context, bearer, messageID string) (*Message, error)
	DeleteMessage(ctx context.Context, bearer, messageID string) error
}

// Config 定义服务商客户端的连接参数。
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	UserAgent  string
}

// Client 是基于 resty 的服务商 API 客户端。
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

var _ API = (*Client)(nil)

// NewClient 创建服务商 API 客户端。
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tempmail-bot/1.0"
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// 只重试网络错误与 5xx，客户端错误重试没有意义
			return err != nil || r.StatusCode() >= 500
		})

	return &Client{http: httpClient, logger: logger}
}

// Domains 返回当前可注册的邮箱域名列表。
func (c *Client) Domains(ctx context.Context) ([]string, error) {
	var out hydraMembers[providerDomain]

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/domains")
	if err != nil {
		return nil, transportError(err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}

	domains := make([]string, 0, len(out.Members))
	for _, d := range out.Members {
		if d.Domain == "" {
			continue
		}
		domains = append(domains, d.Domain)
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("%w: empty domain list", ErrBadResponse)
	}
	return domains, nil
}

// CreateAccount 在服务商处注册新邮箱账户。
func (c *Client) CreateAccount(ctx context.Context, address, password string) (*Account, error) {
	var out Account

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"address": address, "password": password}).
		SetResult(&out).
		Post("/accounts")
	if err != nil {
		return nil, transportError(err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}
	if out.ID == "" || out.Address == "" {
		return nil, fmt.Errorf("%w: account missing id or address", ErrBadResponse)
	}

	c.logger.Debug("provider account created", zap.String("account_id", out.ID))
	return &out, nil
}

// Authenticate 用地址和密码换取 Bearer 会话令牌。
func (c *Client) Authenticate(ctx context.Context, address, password string) (string, error) {
	var out tokenResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"address": address, "password": password}).
		SetResult(&out).
		Post("/token")
	if err != nil {
		return "", transportError(err)
	}
	if resp.IsError() {
		return "", statusError(resp.StatusCode())
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: token missing in auth response", ErrBadResponse)
	}
	return out.Token, nil
}

// ListMessages 拉取收件箱邮件概要列表。
func (c *Client) ListMessages(ctx context.Context, bearer string) ([]MessageSummary, error) {
	var out hydraMembers[MessageSummary]

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetResult(&out).
		Get("/messages")
	if err != nil {
		return nil, transportError(err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}

	for _, m := range out.Members {
		if m.ID == "" {
			return nil, fmt.Errorf("%w: message summary missing id", ErrBadResponse)
		}
	}
	return out.Members, nil
}

// GetMessage 拉取单封邮件的完整内容。
func (c *Client) GetMessage(ctx context.Context, bearer, messageID string) (*Message, error) {
	var out Message

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetResult(&out).
		Get("/messages/" + messageID)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: message missing id", ErrBadResponse)
	}
	return &out, nil
}

// DeleteMessage 从服务商侧删除一封邮件。
func (c *Client) DeleteMessage(ctx context.Context, bearer, messageID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		Delete("/messages/" + messageID)
	if err != nil {
		return transportError(err)
	}
	// 幂等处理：重复删除同一封邮件不算失败
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.IsError() {
		return statusError(resp.StatusCode())
	}
	return nil
}
