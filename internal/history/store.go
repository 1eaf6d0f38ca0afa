// Package history keeps a session-local log of settled payments. Nothing is
// persisted beyond the session.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one completed settlement as shown in the transaction history view.
type Entry struct {
	ID               uuid.UUID
	RecipientName    string
	RecipientAddress string
	Amount           string
	Currency         string
	Total            string
	TxHash           string
	Status           string
	CreatedAt        time.Time
}

// Store collects settlement entries in the order they completed.
type Store interface {
	Append(entry Entry)
	List() []Entry
}

// MemoryStore is the only implementation: history is session-scoped.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *MemoryStore) List() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
