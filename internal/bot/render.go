package bot

import (
	"fmt"
	"strings"

	"tempmail/bot/internal/domain"
)

const (
	welcomeText = "Welcome to the disposable inbox bot.\n\n" +
		"/new - create a fresh inbox\n" +
		"/read - show and consume waiting messages\n" +
		"/repair <token> - restore an inbox on another device\n\n" +
		"Messages are deleted from the provider after you read them."

	noSessionText = "No active inbox.\nUse /new or /repair <token>."

	rateLimitedText = "Too many requests. Wait a moment and try again."

	providerDownText = "The mail provider is not responding right now. Try again in a minute."

	sessionExpiredText = "This inbox is no longer accepted by the provider.\n" +
		"Use /new for a fresh one or /repair <token> if you saved a recovery token."

	repairUsageText = "Usage: /repair <token>"

	invalidTokenText = "That recovery token is malformed. The current inbox, if any, is untouched."

	rejectedTokenText = "The provider rejected this recovery token. The inbox may have been purged."

	emptyInboxText = "Inbox is empty."
)

// mailboxReadyText 新邮箱就绪的回复。
func mailboxReadyText(address string) string {
	return fmt.Sprintf("Your inbox is ready:\n`%s`\n\nSend mail to it, then use /read.", address)
}

// recoveryTokenText 恢复令牌的一次性下发回复。
//
// 令牌只出现在这一条消息里，之后不再展示，也绝不写日志。
func recoveryTokenText(token string) string {
	return fmt.Sprintf("Recovery token (keep it private, it grants full access to the inbox):\n`%s`\n\n"+
		"Use /repair with this token to reopen the inbox from any device.", token)
}

// mailboxRestoredText 恢复成功的回复。
func mailboxRestoredText(address string) string {
	return fmt.Sprintf("Inbox restored:\n`%s`\n\nUse /read to fetch waiting messages.", address)
}

// renderEntry 把一封邮件渲染为单独一条回复。
//
// 每封邮件各发一条消息：正文截断上限远小于 Telegram 单条消息
// 4096 字符的硬限制，整个收件箱拼成一条则很容易超限被拒收。
func renderEntry(entry domain.DigestEntry) string {
	var b strings.Builder
	b.WriteString("From: " + entry.From + "\n")
	b.WriteString("Subject: " + entry.Subject + "\n")
	if entry.OTP != "" {
		b.WriteString("Code: " + entry.OTP + "\n")
	}
	b.WriteString("\n" + entry.Body)
	if entry.Truncated {
		b.WriteString("\n[message truncated]")
	}
	for _, att := range entry.Attachments {
		b.WriteString(fmt.Sprintf("\n[attachment: %s, %d bytes]", att.Filename, att.Size))
	}
	return b.String()
}

// renderDigestFooter 渲染一次读取结束后的汇总回复。
//
// 返回空字符串表示没有需要汇总的内容。
func renderDigestFooter(digest *domain.Digest) string {
	var parts []string
	if len(digest.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d message(s) could not be fetched and were left in the inbox.", len(digest.Failed)))
	}
	if len(digest.Entries) > 0 {
		parts = append(parts, "Displayed messages were deleted from the provider.")
	}
	return strings.Join(parts, "\n")
}
