package domain

import "time"

// Attachment 描述一封邮件里的附件（仅元数据，不含内容）。
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// DigestEntry 表示摘要中的一封已读邮件。
type DigestEntry struct {
	MessageID   string
	From        string
	Subject     string
	Body        string
	Truncated   bool
	OTP         string // 为空表示正文中未检测到验证码
	Attachments []Attachment
	ReceivedAt  time.Time
}

// Digest 是一次 /read 操作的完整产出。
//
// Failed 记录拉取正文失败的邮件编号：这些邮件保留在服务商一侧，
// 不会被删除，下次 /read 会再次出现。
type Digest struct {
	Entries []DigestEntry
	Failed  []string
}

// Empty 报告收件箱本次是否没有任何可展示内容。
func (d *Digest) Empty() bool {
	return len(d.Entries) == 0 && len(d.Failed) == 0
}
