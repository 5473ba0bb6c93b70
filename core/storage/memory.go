package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is a non-durable Repository for tests and ephemeral
// processes.
type MemoryRepository[U any] struct {
	mu           sync.Mutex
	session      *Session[U]
	pendingToken string
	attempts     map[string][]time.Time
	errorLog     []byte
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository[U any]() *MemoryRepository[U] {
	return &MemoryRepository[U]{
		attempts: make(map[string][]time.Time),
	}
}

func (r *MemoryRepository[U]) Token(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return r.session.Token, nil
	}
	return r.pendingToken, nil
}

func (r *MemoryRepository[U]) SetToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		r.session.Token = token
		return nil
	}
	r.pendingToken = token
	return nil
}

func (r *MemoryRepository[U]) GetSession(_ context.Context) (Session[U], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return Session[U]{}, ErrNoSession
	}
	return *r.session, nil
}

func (r *MemoryRepository[U]) SetSession(_ context.Context, sess Session[U]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.session = &sess
	r.pendingToken = ""
	return nil
}

func (r *MemoryRepository[U]) ClearSession(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.session = nil
	r.pendingToken = ""
	return nil
}

func (r *MemoryRepository[U]) RecordAttempt(_ context.Context, key string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts[key] = append(r.attempts[key], at)
	return nil
}

func (r *MemoryRepository[U]) CountAttempts(_ context.Context, key string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Lazy discard: entries before the window start are dropped here
	// instead of by a background job.
	kept := r.attempts[key][:0]
	for _, at := range r.attempts[key] {
		if !at.Before(since) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(r.attempts, key)
		return 0, nil
	}
	r.attempts[key] = kept
	return len(kept), nil
}

func (r *MemoryRepository[U]) ResetAttempts(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.attempts, key)
	return nil
}

func (r *MemoryRepository[U]) SaveErrorLog(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errorLog = append([]byte(nil), data...)
	return nil
}

func (r *MemoryRepository[U]) LoadErrorLog(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.errorLog == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), r.errorLog...), nil
}
