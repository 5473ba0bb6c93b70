package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storefront/core/storage"
)

// Key layout under the configured prefix.
const (
	sessionKey  = "session"
	tokenKey    = "token" // transient bare token, pre-session
	errorLogKey = "errorlog"
	attemptsKey = "attempts:" // + action key, sorted set scored by unix nanos
)

// attemptRetention bounds how long ledger entries survive before lazy
// pruning. Must comfortably exceed any limiter window in use.
const attemptRetention = 24 * time.Hour

var _ storage.Repository[any] = (*Repository[any])(nil)

// Repository is a Redis-backed storage.Repository for deployments that
// share one session across processes. All values live under a single
// key prefix so several apps can share one Redis database.
type Repository[U any] struct {
	client *redis.Client
	prefix string
}

// Option configures a Repository.
type Option[U any] func(*Repository[U])

// WithPrefix changes the key prefix, "storefront" by default.
func WithPrefix[U any](prefix string) Option[U] {
	return func(r *Repository[U]) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRepository creates a session repository over an established Redis
// client.
func NewRepository[U any](client *redis.Client, opts ...Option[U]) (*Repository[U], error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	r := &Repository[U]{
		client: client,
		prefix: "storefront",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Repository[U]) key(parts ...string) string {
	key := r.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Token returns the session token, falling back to the transient bare
// token captured before a full session exists.
func (r *Repository[U]) Token(ctx context.Context) (string, error) {
	sess, err := r.GetSession(ctx)
	switch {
	case err == nil:
		return sess.Token, nil
	case errors.Is(err, storage.ErrNoSession):
	default:
		return "", err
	}

	token, err := r.client.Get(ctx, r.key(tokenKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Join(storage.ErrPersistence, err)
	}
	return token, nil
}

// SetToken overwrites the token. With an existing session the token is
// updated in place; otherwise it is parked as a transient bare token.
func (r *Repository[U]) SetToken(ctx context.Context, token string) error {
	sess, err := r.GetSession(ctx)
	if err == nil {
		sess.Token = token
		return r.SetSession(ctx, sess)
	}
	if !errors.Is(err, storage.ErrNoSession) {
		return err
	}

	if err := r.client.Set(ctx, r.key(tokenKey), token, 0).Err(); err != nil {
		return errors.Join(storage.ErrPersistence, err)
	}
	return nil
}

// GetSession returns the stored session or storage.ErrNoSession.
func (r *Repository[U]) GetSession(ctx context.Context) (storage.Session[U], error) {
	data, err := r.client.Get(ctx, r.key(sessionKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return storage.Session[U]{}, storage.ErrNoSession
	}
	if err != nil {
		return storage.Session[U]{}, errors.Join(storage.ErrPersistence, err)
	}

	var sess storage.Session[U]
	if err := json.Unmarshal(data, &sess); err != nil {
		return storage.Session[U]{}, errors.Join(storage.ErrPersistence, err)
	}
	return sess, nil
}

// SetSession stores token and user together and discards any transient
// bare token.
func (r *Repository[U]) SetSession(ctx context.Context, sess storage.Session[U]) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Join(storage.ErrPersistence, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(sessionKey), data, 0)
	pipe.Del(ctx, r.key(tokenKey))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(storage.ErrPersistence, err)
	}
	return nil
}

// ClearSession removes the session and any transient token together.
func (r *Repository[U]) ClearSession(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(sessionKey), r.key(tokenKey)).Err(); err != nil {
		return errors.Join(storage.ErrPersistence, err)
	}
	return nil
}

// RecordAttempt appends one attempt timestamp to the action's ledger
// and lazily prunes entries older than the retention horizon.
func (r *Repository[U]) RecordAttempt(ctx context.Context, key string, at time.Time) error {
	zkey := r.key(attemptsKey + key)
	score := float64(at.UnixNano())

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, zkey, redis.Z{
		Score:  score,
		Member: strconv.FormatInt(at.UnixNano(), 10),
	})
	horizon := float64(at.Add(-attemptRetention).UnixNano())
	pipe.ZRemRangeByScore(ctx, zkey, "-inf", strconv.FormatFloat(horizon, 'f', 0, 64))
	pipe.Expire(ctx, zkey, attemptRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(storage.ErrPersistence, err)
	}
	return nil
}

// CountAttempts returns how many attempts were recorded at or after
// the given instant.
func (r *Repository[U]) CountAttempts(ctx context.Context, key string, since time.Time) (int, error) {
	n, err := r.client.ZCount(ctx,
		r.key(attemptsKey+key),
		strconv.FormatInt(since.UnixNano(), 10),
		"+inf",
	).Result()
	if err != nil {
		return 0, errors.Join(storage.ErrPersistence, err)
	}
	return int(n), nil
}

// ResetAttempts drops the whole ledger for the action.
func (r *Repository[U]) ResetAttempts(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(attemptsKey+key)).Err(); err != nil {
		return errors.Join(storage.ErrPersistence, err)
	}
	return nil
}

// SaveErrorLog stores the serialized diagnostic queue.
func (r *Repository[U]) SaveErrorLog(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key(errorLogKey), data, 0).Err(); err != nil {
		return errors.Join(storage.ErrPersistence, err)
	}
	return nil
}

// LoadErrorLog returns the serialized diagnostic queue, or
// storage.ErrNotFound when none was saved.
func (r *Repository[U]) LoadErrorLog(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(errorLogKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(storage.ErrPersistence, err)
	}
	return data, nil
}
