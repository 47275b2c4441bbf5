package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tempmail/bot/internal/monitoring"
	"tempmail/bot/internal/pool"
	"tempmail/bot/internal/service"
)

// Sender 发送 Telegram 消息的最小接口
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Dispatcher 把 Telegram 更新分发到各指令处理器。
//
// 所有会话定位都以消息发送者的用户 ID 为键，与聊天 ID 无关。
// 恢复令牌只在 /new 成功后下发一次，处理器不落日志、不回显。
type Dispatcher struct {
	api      Sender
	sessions *service.SessionService
	inbox    *service.InboxService
	workers  *pool.WorkerPool
	limiter  *UserLimiter
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	timeout  time.Duration
}

// Config 分发器配置
type Config struct {
	API            Sender
	Sessions       *service.SessionService
	Inbox          *service.InboxService
	Workers        *pool.WorkerPool
	Limiter        *UserLimiter
	Metrics        *monitoring.Metrics
	Logger         *zap.Logger
	HandlerTimeout time.Duration
}

// NewDispatcher 创建分发器
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.HandlerTimeout == 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	return &Dispatcher{
		api:      cfg.API,
		sessions: cfg.Sessions,
		inbox:    cfg.Inbox,
		workers:  cfg.Workers,
		limiter:  cfg.Limiter,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		timeout:  cfg.HandlerTimeout,
	}
}

// Run 消费更新流直到上下文取消。
func (d *Dispatcher) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	d.workers.Start(ctx)
	defer d.workers.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if !d.workers.TrySubmit(func() { d.HandleUpdate(ctx, update) }) {
				d.metrics.ErrorsTotal.WithLabelValues("bot").Inc()
				d.logger.Warn("worker queue full, dropping update",
					zap.Int("update_id", update.UpdateID),
				)
			}
		}
	}
}

// HandleUpdate 处理单条更新。
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	ownerID := msg.From.ID
	chatID := msg.Chat.ID

	if !d.limiter.Allow(ownerID) {
		d.metrics.CommandsTotal.WithLabelValues(commandLabel(msg), "rate_limited").Inc()
		d.reply(chatID, rateLimitedText)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	command := commandLabel(msg)
	var err error
	switch command {
	case "new":
		err = d.handleNew(ctx, ownerID, chatID)
	case "read":
		err = d.handleRead(ctx, ownerID, chatID)
	case "repair":
		err = d.handleRepair(ctx, ownerID, chatID, msg.CommandArguments())
	default:
		// /start、/help、未知指令和普通文本统一回帮助
		d.reply(chatID, welcomeText)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		d.logger.Warn("command failed",
			zap.String("command", command),
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)
	}
	d.metrics.CommandsTotal.WithLabelValues(command, outcome).Inc()
}

// handleNew 创建新邮箱并一次性下发恢复令牌。
func (d *Dispatcher) handleNew(ctx context.Context, ownerID, chatID int64) error {
	session, recovery, err := d.sessions.Create(ctx, ownerID)
	if err != nil {
		d.reply(chatID, createErrorText(err))
		return err
	}

	d.replyMarkdown(chatID, mailboxReadyText(session.Credential.Address))
	d.replyMarkdown(chatID, recoveryTokenText(recovery))
	return nil
}

// handleRead 读取并消费当前邮箱的邮件。
//
// 每封邮件单独回复一条消息，最后跟一条汇总；收件箱读取上限
// 乘以正文截断上限远超 Telegram 单条消息的长度限制，拼成一条
// 会整体发送失败，而那时邮件已经在服务商侧删除了。
func (d *Dispatcher) handleRead(ctx context.Context, ownerID, chatID int64) error {
	session, err := d.sessions.Get(ownerID)
	if err != nil {
		d.reply(chatID, noSessionText)
		return nil
	}

	session, err = d.sessions.Refresh(ctx, session)
	if err != nil {
		d.failRead(ownerID, chatID, err)
		return err
	}

	digest, err := d.inbox.Read(ctx, session)
	if err != nil {
		d.failRead(ownerID, chatID, err)
		return err
	}

	if digest.Empty() {
		d.reply(chatID, emptyInboxText)
		return nil
	}

	for _, entry := range digest.Entries {
		d.reply(chatID, renderEntry(entry))
	}
	if footer := renderDigestFooter(digest); footer != "" {
		d.reply(chatID, footer)
	}
	return nil
}

// failRead 回复读取失败，凭据失效时顺带丢弃无效会话。
func (d *Dispatcher) failRead(ownerID, chatID int64, err error) {
	if errors.Is(err, service.ErrUnauthenticated) {
		// 服务商已拒绝该凭据，留着会话只会继续失败
		d.sessions.Drop(ownerID)
	}
	d.reply(chatID, readErrorText(err))
}

// handleRepair 用恢复令牌重建会话。
func (d *Dispatcher) handleRepair(ctx context.Context, ownerID, chatID int64, args string) error {
	recovery := strings.TrimSpace(args)
	if recovery == "" {
		d.reply(chatID, repairUsageText)
		return nil
	}

	session, err := d.sessions.Restore(ctx, ownerID, recovery)
	if err != nil {
		d.reply(chatID, repairErrorText(err))
		return err
	}

	d.replyMarkdown(chatID, mailboxRestoredText(session.Credential.Address))
	return nil
}

func (d *Dispatcher) reply(chatID int64, text string) {
	d.send(tgbotapi.NewMessage(chatID, text))
}

func (d *Dispatcher) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	d.send(msg)
}

func (d *Dispatcher) send(msg tgbotapi.MessageConfig) {
	if _, err := d.api.Send(msg); err != nil {
		d.metrics.ErrorsTotal.WithLabelValues("telegram").Inc()
		d.logger.Warn("failed to send reply",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err),
		)
	}
}

// commandLabel 归一化指令名，供指标和分发使用。
func commandLabel(msg *tgbotapi.Message) string {
	if !msg.IsCommand() {
		return "text"
	}
	return strings.ToLower(msg.Command())
}

func createErrorText(err error) string {
	if errors.Is(err, service.ErrProviderUnavailable) {
		return providerDownText
	}
	return "Could not create an inbox right now. Try again later."
}

func readErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return sessionExpiredText
	case errors.Is(err, service.ErrProviderUnavailable):
		return providerDownText
	default:
		return "Could not read the inbox right now. Try again later."
	}
}

func repairErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return invalidTokenText
	case errors.Is(err, service.ErrProviderRejected):
		return rejectedTokenText
	case errors.Is(err, service.ErrProviderUnavailable):
		return providerDownText
	default:
		return "Could not restore the inbox right now. Try again later."
	}
}
