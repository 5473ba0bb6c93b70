package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileState is the on-disk shape of a FileRepository. It mirrors the
// browser localStorage model: one small JSON document rewritten on every
// mutation.
type fileState[U any] struct {
	Session      *Session[U]            `json:"session,omitempty"`
	PendingToken string                 `json:"pending_token,omitempty"`
	Attempts     map[string][]time.Time `json:"attempts,omitempty"`
	ErrorLog     json.RawMessage        `json:"error_log,omitempty"`
}

// FileRepository is a durable Repository backed by a single JSON file.
// All reads are served from memory; every mutation is written through
// synchronously so state survives process restarts.
type FileRepository[U any] struct {
	mu    sync.Mutex
	path  string
	state fileState[U]
}

// NewFileRepository opens or creates the repository file at path. A
// corrupt file is discarded and replaced with empty state, the same way a
// browser recovers from unreadable localStorage.
func NewFileRepository[U any](path string) (*FileRepository[U], error) {
	if path == "" {
		return nil, errors.New("repository path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	r := &FileRepository[U]{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run, empty state.
	case err != nil:
		return nil, errors.Join(ErrPersistence, err)
	default:
		if jsonErr := json.Unmarshal(data, &r.state); jsonErr != nil {
			r.state = fileState[U]{}
		}
	}

	if r.state.Attempts == nil {
		r.state.Attempts = make(map[string][]time.Time)
	}
	return r, nil
}

// Path returns the backing file location.
func (r *FileRepository[U]) Path() string {
	return r.path
}

func (r *FileRepository[U]) Token(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Session != nil {
		return r.state.Session.Token, nil
	}
	return r.state.PendingToken, nil
}

func (r *FileRepository[U]) SetToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Session != nil {
		r.state.Session.Token = token
	} else {
		r.state.PendingToken = token
	}
	return r.writeLocked()
}

func (r *FileRepository[U]) GetSession(_ context.Context) (Session[U], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Session == nil {
		return Session[U]{}, ErrNoSession
	}
	return *r.state.Session, nil
}

func (r *FileRepository[U]) SetSession(_ context.Context, sess Session[U]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Session = &sess
	r.state.PendingToken = ""
	return r.writeLocked()
}

func (r *FileRepository[U]) ClearSession(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Session = nil
	r.state.PendingToken = ""
	return r.writeLocked()
}

func (r *FileRepository[U]) RecordAttempt(_ context.Context, key string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Attempts[key] = append(r.state.Attempts[key], at)
	return r.writeLocked()
}

func (r *FileRepository[U]) CountAttempts(_ context.Context, key string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.state.Attempts[key][:0]
	for _, at := range r.state.Attempts[key] {
		if !at.Before(since) {
			kept = append(kept, at)
		}
	}

	pruned := len(kept) != len(r.state.Attempts[key])
	if len(kept) == 0 {
		delete(r.state.Attempts, key)
	} else {
		r.state.Attempts[key] = kept
	}
	if pruned {
		if err := r.writeLocked(); err != nil {
			return 0, err
		}
	}
	return len(kept), nil
}

func (r *FileRepository[U]) ResetAttempts(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.state.Attempts, key)
	return r.writeLocked()
}

func (r *FileRepository[U]) SaveErrorLog(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.ErrorLog = append(json.RawMessage(nil), data...)
	return r.writeLocked()
}

func (r *FileRepository[U]) LoadErrorLog(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.state.ErrorLog) == 0 {
		return nil, ErrNotFound
	}
	return append([]byte(nil), r.state.ErrorLog...), nil
}

// writeLocked persists the whole state document. Caller must hold the
// mutex. The temp-file rename keeps a crash from truncating good state.
func (r *FileRepository[U]) writeLocked() error {
	data, err := json.Marshal(r.state)
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}
