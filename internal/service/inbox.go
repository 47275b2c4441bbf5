package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tempmail/bot/internal/domain"
	"tempmail/bot/internal/monitoring"
	"tempmail/bot/internal/provider"
)

// InboxService 实现收件箱读取流水线：列表、取正文、提取验证码、
// 组装摘要、按条尽力删除。
type InboxService struct {
	api          provider.API
	maxMessages  int
	maxBodyChars int
	metrics      *monitoring.Metrics
	logger       *zap.Logger
}

// NewInboxService 创建收件箱业务服务。
func NewInboxService(api provider.API, maxMessages, maxBodyChars int, metrics *monitoring.Metrics, logger *zap.Logger) *InboxService {
	return &InboxService{
		api:          api,
		maxMessages:  maxMessages,
		maxBodyChars: maxBodyChars,
		metrics:      metrics,
		logger:       logger,
	}
}

// Read 读取会话邮箱中的邮件并生成摘要。
//
// 删除严格发生在摘要组装完成之后，且只针对成功取到正文的邮件；
// 单封邮件的删除失败不影响其余删除，也不影响已生成的摘要。
// 已知残留风险：取正文成功与删除成功之间进程崩溃会导致该邮件
// 下次重新出现（接受至少一次展示，不保证严格至多一次）。
func (s *InboxService) Read(ctx context.Context, session *domain.MailboxSession) (*domain.Digest, error) {
	bearer := session.Credential.Bearer

	summaries, err := s.api.ListMessages(ctx, bearer)
	if err != nil {
		s.metrics.ProviderRequestsTotal.WithLabelValues("list_messages", "error").Inc()
		return nil, mapReadErr(err)
	}
	s.metrics.ProviderRequestsTotal.WithLabelValues("list_messages", "ok").Inc()

	digest := &domain.Digest{}
	if len(summaries) == 0 {
		return digest, nil
	}

	// 限制单次处理的邮件数量，防止被刷爆的收件箱拖垮指令
	if len(summaries) > s.maxMessages {
		summaries = summaries[:s.maxMessages]
	}

	read := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		full, err := s.api.GetMessage(ctx, bearer, summary.ID)
		if err != nil {
			s.metrics.ProviderRequestsTotal.WithLabelValues("get_message", "error").Inc()
			if errors.Is(err, provider.ErrUnauthorized) {
				// 会话中途失效：已取到的内容尚未删除，直接放弃本次读取
				return nil, mapReadErr(err)
			}
			s.logger.Warn("failed to fetch message body",
				zap.String("message_id", summary.ID),
				zap.Error(err),
			)
			digest.Failed = append(digest.Failed, summary.ID)
			continue
		}
		s.metrics.ProviderRequestsTotal.WithLabelValues("get_message", "ok").Inc()

		digest.Entries = append(digest.Entries, s.buildEntry(full))
		read = append(read, full.ID)
	}

	s.metrics.MessagesDelivered.Add(float64(len(digest.Entries)))

	// 摘要组装完毕后才开始删除，逐条尽力而为
	for _, id := range read {
		if err := s.api.DeleteMessage(ctx, bearer, id); err != nil {
			s.metrics.ProviderRequestsTotal.WithLabelValues("delete_message", "error").Inc()
			s.logger.Warn("failed to delete consumed message",
				zap.String("message_id", id),
				zap.Error(err),
			)
			continue
		}
		s.metrics.ProviderRequestsTotal.WithLabelValues("delete_message", "ok").Inc()
		s.metrics.MessagesDeleted.Inc()
	}

	return digest, nil
}

// buildEntry 把一封完整邮件转换为摘要条目。
func (s *InboxService) buildEntry(message *provider.Message) domain.DigestEntry {
	body := strings.TrimSpace(message.Text)
	if body == "" {
		body = "No text content"
	}

	// 验证码在截断前的完整正文中检测
	otp := domain.ExtractOTP(message.Text)
	if otp != "" {
		s.metrics.OTPDetected.Inc()
	}

	truncated := false
	if runes := []rune(body); len(runes) > s.maxBodyChars {
		body = string(runes[:s.maxBodyChars])
		truncated = true
	}

	sender := message.From.Address
	if sender == "" {
		sender = "Unknown"
	}

	subject := message.Subject
	if subject == "" {
		subject = "No Subject"
	}

	return domain.DigestEntry{
		MessageID:   message.ID,
		From:        sender,
		Subject:     subject,
		Body:        body,
		Truncated:   truncated,
		OTP:         otp,
		Attachments: message.Attachments,
		ReceivedAt:  message.CreatedAt,
	}
}

// mapReadErr 把读取路径上的服务商错误折叠为业务层分类。
func mapReadErr(err error) error {
	if errors.Is(err, provider.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
