package memory

import (
	"sync"

	"tempmail/bot/internal/domain"
	"tempmail/bot/internal/storage"
)

// Store 使用内存保存活动会话，进程重启后内容全部丢失。
//
// 这是刻意为之：系统不落盘任何凭据，重启后的恢复路径是
// 用户持有的恢复令牌。写入持有写锁并整体替换指针，会话
// 本身写入后不可变，因此读取方拿到的引用永远是完整的。
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.MailboxSession
}

var _ storage.SessionRepository = (*Store)(nil)

// NewStore 创建一个内存会话存储实例。
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*domain.MailboxSession),
	}
}

// SaveSession 保存会话，覆盖同一用户的旧会话。
func (s *Store) SaveSession(session *domain.MailboxSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.OwnerID] = session
	return nil
}

// GetSession 返回用户当前的会话。
func (s *Store) GetSession(ownerID int64) (*domain.MailboxSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[ownerID]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession 移除用户的会话。
func (s *Store) DeleteSession(ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[ownerID]; !ok {
		return storage.ErrSessionNotFound
	}
	delete(s.sessions, ownerID)
	return nil
}

// Count 返回活动会话数量。
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
