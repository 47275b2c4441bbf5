package storage

import (
	"errors"

	"tempmail/bot/internal/domain"
)

// ErrSessionNotFound 指定用户当前没有活动会话。
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository 定义会话数据存取操作。
//
// 会话存储是整个系统中唯一的共享可变状态：按用户编号建键，
// 写入总是整体替换，不同用户的条目互不影响。实现必须保证
// 并发读写下读取方不会观察到半写入的会话。
type SessionRepository interface {
	// SaveSession 保存会话，覆盖该用户已有的会话。
	SaveSession(session *domain.MailboxSession) error
	// GetSession 返回指定用户的活动会话。
	GetSession(ownerID int64) (*domain.MailboxSession, error)
	// DeleteSession 移除指定用户的会话，不存在时返回 ErrSessionNotFound。
	DeleteSession(ownerID int64) error
	// Count 返回当前活动会话数量。
	Count() int
}
