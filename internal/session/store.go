// Package session хранит состояние диалога пользователей между сообщениями.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ivanoskov/driver_bot/internal/model"
)

// Store хранит сессии по идентификатору пользователя.
// На пользователя приходится не больше одной сессии.
type Store interface {
	Get(userID string) (*model.Session, bool)
	Set(userID string, s *model.Session)
	Clear(userID string)
}

// MemoryStore хранит сессии в памяти процесса и забывает неактивные дольше ttl
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	ttl      time.Duration
	now      func() time.Time
}

// Option настраивает MemoryStore
type Option func(*MemoryStore)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore создает хранилище. ttl <= 0 отключает вытеснение.
func NewMemoryStore(ttl time.Duration, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]model.Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) expired(sess model.Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.UpdatedAt) > s.ttl
}

// Get возвращает копию сессии пользователя
func (s *MemoryStore) Get(userID string) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	if s.expired(sess, s.now()) {
		delete(s.sessions, userID)
		return nil, false
	}
	if sess.Report != nil {
		report := *sess.Report
		sess.Report = &report
	}
	return &sess, true
}

// Set сохраняет сессию и обновляет время последней активности
func (s *MemoryStore) Set(userID string, sess *model.Session) {
	if sess == nil {
		s.Clear(userID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	if cp.Report != nil {
		report := *cp.Report
		cp.Report = &report
	}
	cp.UpdatedAt = s.now()
	s.sessions[userID] = cp
}

// Clear удаляет сессию пользователя
func (s *MemoryStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len возвращает количество хранимых сессий
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep удаляет просроченные сессии и возвращает их количество
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

// Run периодически вызывает Sweep до отмены контекста
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 && onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
