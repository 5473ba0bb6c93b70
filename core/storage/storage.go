package storage

import (
	"context"
	"time"
)

// Session pairs the auth token with the cached user record. The two are
// always written and cleared together; a bare token may exist only in the
// transient verification window between a token capture and the user
// fetch that completes the session.
type Session[U any] struct {
	Token string `json:"token"`
	User  U      `json:"user"`
}

// Repository is the narrow persistence surface shared by the gateway
// client (token read/clear) and the session manager (session lifecycle).
// It also satisfies ratelimiter.Store and apperrors.Persister so the
// rate-limit ledger and the diagnostic queue share the same durable store.
//
// Implementations must be safe for concurrent use.
type Repository[U any] interface {
	// Token returns the current token, or "" when none is stored.
	Token(ctx context.Context) (string, error)
	// SetToken overwrites the stored token without touching the cached
	// user. Used when a response carries a fresh token mid-session.
	SetToken(ctx context.Context, token string) error

	// GetSession returns the stored session or ErrNoSession.
	GetSession(ctx context.Context) (Session[U], error)
	// SetSession atomically stores token and user together.
	SetSession(ctx context.Context, sess Session[U]) error
	// ClearSession removes token and user together.
	ClearSession(ctx context.Context) error

	// Rate-limit ledger, per action key.
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	CountAttempts(ctx context.Context, key string, since time.Time) (int, error)
	ResetAttempts(ctx context.Context, key string) error

	// Diagnostic error log, stored as opaque serialized bytes.
	SaveErrorLog(ctx context.Context, data []byte) error
	LoadErrorLog(ctx context.Context) ([]byte, error)
}
