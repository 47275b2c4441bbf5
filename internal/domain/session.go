package domain

import "time"

// MailboxSession 表示某个用户当前持有的活动邮箱会话。
//
// 会话只存在于进程内存中：进程重启后会话消失，
// 用户凭恢复令牌通过 /repair 重建。凭据一经写入不再修改，
// 刷新 Bearer 时整体替换会话而不是改写字段。
type MailboxSession struct {
	OwnerID    int64
	Credential MailboxCredential
	CreatedAt  time.Time
}

// WithBearer 返回替换了 Bearer 的新会话副本。
func (s MailboxSession) WithBearer(bearer string, now time.Time) *MailboxSession {
	return &MailboxSession{
		OwnerID: s.OwnerID,
		Credential: MailboxCredential{
			Address:  s.Credential.Address,
			Password: s.Credential.Password,
			Bearer:   bearer,
		},
		CreatedAt: now,
	}
}
