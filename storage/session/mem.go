package sessionstore

import (
	"sync"

	"github.com/bbpbat/portal/core/session"
)

// MemStore keeps the session for the lifetime of the process.
type MemStore struct {
	mu     sync.RWMutex
	tokens *session.Tokens
}

var _ session.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return new(MemStore)
}

func (ms *MemStore) Load() (*session.Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.tokens == nil {
		return nil, session.ErrNoSession
	}
	return session.New(*ms.tokens), nil
}

func (ms *MemStore) Save(sess *session.Session) error {
	if !sess.IsAuthenticated() {
		return ms.Clear()
	}
	tokens := sess.Tokens()
	ms.mu.Lock()
	ms.tokens = &tokens
	ms.mu.Unlock()
	return nil
}

func (ms *MemStore) Clear() error {
	ms.mu.Lock()
	ms.tokens = nil
	ms.mu.Unlock()
	return nil
}
