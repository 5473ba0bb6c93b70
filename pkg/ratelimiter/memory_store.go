package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory attempt lists. Out-of-window
// entries are pruned lazily on every access, so the store never needs a
// background cleanup goroutine.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	// retention bounds how long entries survive before lazy pruning;
	// it must be at least as long as the largest window in use.
	retention time.Duration
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithRetention sets how long attempt entries are kept before lazy pruning.
func WithRetention(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if d > 0 {
			ms.retention = d
		}
	}
}

// NewMemoryStore creates a new in-memory attempt store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		attempts:  make(map[string][]time.Time),
		retention: time.Hour,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

func (ms *MemoryStore) RecordAttempt(_ context.Context, key string, at time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.attempts[key] = append(ms.pruneLocked(key, at), at)
	return nil
}

func (ms *MemoryStore) CountAttempts(_ context.Context, key string, since time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	count := 0
	for _, at := range ms.attempts[key] {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (ms *MemoryStore) ResetAttempts(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.attempts, key)
	return nil
}

// pruneLocked drops entries older than the retention horizon. Caller must
// hold the mutex.
func (ms *MemoryStore) pruneLocked(key string, now time.Time) []time.Time {
	horizon := now.Add(-ms.retention)
	kept := ms.attempts[key][:0]
	for _, at := range ms.attempts[key] {
		if !at.Before(horizon) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(ms.attempts, key)
		return nil
	}
	return kept
}
