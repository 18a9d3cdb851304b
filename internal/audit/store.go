// Package audit provides the append-only trail of security events and the
// best-effort recorder in front of it.
package audit

import (
	"context"
	"sync"

	"github.com/lumeo/auth-core/internal/domain"
)

// Store persists audit entries. Implementations only ever append; entries are
// never updated or deleted by this service.
type Store interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error)
}

// MemoryStore keeps entries in memory. It is a drop-in test double for the
// postgres store.
type MemoryStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AuditEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID != userID {
			continue
		}
		out = append(out, s.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns a copy of every entry, newest last.
func (s *MemoryStore) All() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
