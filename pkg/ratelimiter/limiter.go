package ratelimiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// Store persists attempt timestamps per action key. Implementations must
// be safe for concurrent use; entries older than the sliding window may be
// discarded lazily on any call.
type Store interface {
	// RecordAttempt appends one attempt timestamp for the key.
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	// CountAttempts returns the number of attempts at or after since.
	CountAttempts(ctx context.Context, key string, since time.Time) (int, error)
	// ResetAttempts discards all attempts for the key.
	ResetAttempts(ctx context.Context, key string) error
}

// Config defines the sliding window policy for one limiter.
type Config struct {
	// Limit is the maximum number of attempts within the window.
	Limit int
	// Window is the trailing duration attempts are counted over.
	Window time.Duration
}

// Validate checks the configuration for common errors.
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("limit must be positive"))
	}
	if c.Window <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("window must be positive"))
	}
	return nil
}

// Limiter throttles repeated sensitive operations (e.g. login) using a
// sliding window of attempt timestamps per action key.
type Limiter struct {
	store  Store
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the logger for internal operations.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a sliding window limiter backed by the given store.
func New(store Store, cfg Config, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("store is required"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		store:  store,
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow reports whether another attempt for the key is permitted. It does
// not record the attempt; callers record failures explicitly so that a
// successful operation leaves no trace in the ledger.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	since := l.now().Add(-l.config.Window)
	count, err := l.store.CountAttempts(ctx, key, since)
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	if count >= l.config.Limit {
		l.logger.DebugContext(ctx, "rate limit reached",
			slog.String("key", key),
			slog.Int("attempts", count),
			slog.Int("limit", l.config.Limit))
		return false, nil
	}
	return true, nil
}

// Record registers one attempt for the key at the current time.
func (l *Limiter) Record(ctx context.Context, key string) error {
	if err := l.store.RecordAttempt(ctx, key, l.now()); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Reset clears the ledger for the key, typically after a successful
// operation.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.ResetAttempts(ctx, key); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Limit returns the configured attempt ceiling.
func (l *Limiter) Limit() int {
	return l.config.Limit
}

// Window returns the configured sliding window duration.
func (l *Limiter) Window() time.Duration {
	return l.config.Window
}
