package session

import (
	"context"
	"sync"
	"time"

	"github.com/bizmatters/design-research-gateway/internal/models"
)

type memoryEntry struct {
	rec       models.ResearchSession
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an empty store. ttl of zero keeps records until
// they are overwritten or deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.ResearchSession, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(entry) {
		// a Save may have landed between the two locks
		s.mu.Lock()
		entry, ok = s.entries[id]
		if ok && s.expired(entry) {
			delete(s.entries, id)
			ok = false
		}
		s.mu.Unlock()
		if !ok {
			return nil, ErrNotFound
		}
	}
	rec := entry.rec
	return &rec, nil
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)
}

func (s *MemoryStore) Save(ctx context.Context, rec *models.ResearchSession) error {
	rec.UpdatedAt = s.now()
	entry := memoryEntry{rec: *rec}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[rec.ID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
