package pending

import (
	"context"
	"sync"
	"time"
)

// MemoryOptions configures a MemoryStore. A zero TTL disables expiry and a
// zero MaxEntries disables the size bound.
type MemoryOptions struct {
	TTL        time.Duration
	MaxEntries int
	Now        func() time.Time
}

type memoryEntry struct {
	intent    Intent
	expiresAt time.Time
}

// MemoryStore is the process-local Store. Entries are lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        now,
	}
}

func (s *MemoryStore) Put(_ context.Context, referenceID string, intent Intent) error {
	return s.store(referenceID, intent, false)
}

func (s *MemoryStore) Create(_ context.Context, referenceID string, intent Intent) error {
	return s.store(referenceID, intent, true)
}

func (s *MemoryStore) store(referenceID string, intent Intent, onlyNew bool) error {
	now := s.now()
	entry := memoryEntry{intent: intent.Clone()}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.entries[referenceID]
	if exists && existing.expired(now) {
		delete(s.entries, referenceID)
		exists = false
	}
	if exists && onlyNew {
		return ErrExists
	}
	if !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.sweepLocked(now)
		if len(s.entries) >= s.maxEntries {
			return ErrCapacity
		}
	}
	s.entries[referenceID] = entry
	return nil
}

func (s *MemoryStore) Get(_ context.Context, referenceID string) (*Intent, error) {
	s.mu.RLock()
	entry, ok := s.entries[referenceID]
	s.mu.RUnlock()

	if !ok || entry.expired(s.now()) {
		return nil, nil
	}
	intent := entry.intent.Clone()
	return &intent, nil
}

func (s *MemoryStore) Delete(_ context.Context, referenceID string) error {
	s.mu.Lock()
	delete(s.entries, referenceID)
	s.mu.Unlock()
	return nil
}

// Sweep evicts every entry expired at now and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for ref, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, ref)
			removed++
		}
	}
	return removed
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
