package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirahlabs/smartchat/internal/chat"
)

// Store persists chat sessions between turns and process restarts.
type Store interface {
	Load(ctx context.Context, id string) (*chat.Session, error)
	Save(ctx context.Context, s *chat.Session) error
	Delete(ctx context.Context, id string) error
}

// Discarded reports whether err means the stored transcript was unusable
// and the caller should start a fresh session.
func Discarded(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrVersionMismatch) || errors.Is(err, ErrCorrupt)
}

// MemoryStore keeps encoded transcripts in process memory. It goes through
// Encode/Decode so it expires and truncates exactly like RedisStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*chat.Session, error) {
	m.mu.RLock()
	data, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s, err := Decode(id, data, m.now())
	if err != nil {
		m.mu.Lock()
		delete(m.data, id)
		m.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *chat.Session) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[s.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}
