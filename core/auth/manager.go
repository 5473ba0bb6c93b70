package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/storefront/core/client"
	"github.com/dmitrymomot/storefront/core/storage"
	"github.com/dmitrymomot/storefront/pkg/apperrors"
	"github.com/dmitrymomot/storefront/pkg/ratelimiter"
	"github.com/dmitrymomot/storefront/pkg/token"
)

// Action keys for the rate-limit ledger.
const (
	loginAction  = "login"
	signupAction = "signup"
)

// emailRegex is a simple regex for validating email addresses.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Manager orchestrates the session lifecycle against the gateway client
// and keeps the in-memory current-user mirror consistent with the
// persistent store.
//
// Session writes are guarded by a monotonically increasing operation id:
// logout bumps it, so a login or refresh completion that resolves
// afterwards is stale and cannot resurrect the cleared session.
type Manager struct {
	api     *client.Client
	repo    storage.Repository[User]
	limiter *ratelimiter.Limiter
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	user  *User
	opID  uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for swallowed best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLimiter replaces the default login rate limiter (5 attempts per
// 15-minute sliding window, ledger persisted in the repository).
func WithLimiter(l *ratelimiter.Limiter) Option {
	return func(m *Manager) {
		if l != nil {
			m.limiter = l
		}
	}
}

// New creates a session manager. It registers itself for the client's
// 401 signal so a cleared session is reflected in memory immediately.
func New(api *client.Client, repo storage.Repository[User], opts ...Option) (*Manager, error) {
	if api == nil {
		return nil, errors.New("gateway client is required")
	}
	if repo == nil {
		return nil, errors.New("session repository is required")
	}

	m := &Manager{
		api:    api,
		repo:   repo,
		state:  StateAnonymous,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.limiter == nil {
		limiter, err := ratelimiter.New(repo, ratelimiter.Config{
			Limit:  5,
			Window: 15 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		m.limiter = limiter
	}

	api.OnUnauthorized(m.invalidate)
	api.UserIDProvider(m.currentUserID)
	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether an active session exists.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated
}

// CurrentUser returns a copy of the cached user record.
func (m *Manager) CurrentUser() (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated || m.user == nil {
		return User{}, false
	}
	return *m.user, true
}

// Login authenticates with email and password. Empty fields and malformed
// emails are rejected locally without a network call, and the rate-limit
// ledger is consulted before the network is touched. When the backend
// path fails and the credentials match a well-known demo identity, the
// login silently succeeds with a locally fabricated session instead.
func (m *Manager) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, apperrors.New(apperrors.KindValidation, "email and password are required")
	}
	if !emailRegex.MatchString(email) {
		return User{}, apperrors.New(apperrors.KindValidation, "malformed email address")
	}

	allowed, err := m.limiter.Allow(ctx, loginAction)
	if err != nil {
		// A broken ledger must not lock users out.
		m.logger.WarnContext(ctx, "rate-limit ledger unavailable", slog.String("error", err.Error()))
		allowed = true
	}
	if !allowed {
		return User{}, apperrors.New(apperrors.KindRateLimit, "too many login attempts")
	}

	op := m.begin()

	sess, err := m.authenticate(ctx, email, password)
	if err != nil {
		if recErr := m.limiter.Record(ctx, loginAction); recErr != nil {
			m.logger.WarnContext(ctx, "failed to record login attempt", slog.String("error", recErr.Error()))
		}
		m.abort(ctx, op)
		return User{}, err
	}

	if err := m.commit(ctx, op, sess); err != nil {
		return User{}, err
	}
	if err := m.limiter.Reset(ctx, loginAction); err != nil {
		m.logger.WarnContext(ctx, "failed to reset login ledger", slog.String("error", err.Error()))
	}
	return sess.User, nil
}

// SignupRequest carries the fields for account creation.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
}

// Signup registers a new account and opens a session for it. Like
// login, repeated failures are throttled through the rate-limit ledger
// before the network is touched.
func (m *Manager) Signup(ctx context.Context, req SignupRequest) (User, error) {
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Email == "" || req.Password == "":
		return User{}, apperrors.New(apperrors.KindValidation, "email and password are required")
	case !emailRegex.MatchString(req.Email):
		return User{}, apperrors.New(apperrors.KindValidation, "malformed email address")
	case !req.Role.Valid():
		return User{}, apperrors.New(apperrors.KindValidation, "unknown role")
	}

	allowed, err := m.limiter.Allow(ctx, signupAction)
	if err != nil {
		m.logger.WarnContext(ctx, "rate-limit ledger unavailable", slog.String("error", err.Error()))
		allowed = true
	}
	if !allowed {
		return User{}, apperrors.New(apperrors.KindRateLimit, "too many signup attempts")
	}

	op := m.begin()

	sess, err := m.register(ctx, req)
	if err != nil {
		if recErr := m.limiter.Record(ctx, signupAction); recErr != nil {
			m.logger.WarnContext(ctx, "failed to record signup attempt", slog.String("error", recErr.Error()))
		}
		m.abort(ctx, op)
		return User{}, err
	}

	if err := m.commit(ctx, op, sess); err != nil {
		return User{}, err
	}
	if err := m.limiter.Reset(ctx, signupAction); err != nil {
		m.logger.WarnContext(ctx, "failed to reset signup ledger", slog.String("error", err.Error()))
	}
	return sess.User, nil
}

func (m *Manager) register(ctx context.Context, req SignupRequest) (storage.Session[User], error) {
	var resp sessionResponse
	if err := m.api.Post(ctx, "/auth/register", req, &resp); err != nil {
		return storage.Session[User]{}, err
	}
	return resp.session(req.Email)
}

// Logout clears the local session unconditionally. The network logout
// call is best-effort and never blocks local sign-out; its failure is
// only logged.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.opID++ // stale login/refresh completions must not resurrect the session
	if err := m.repo.ClearSession(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to clear stored session", slog.String("error", err.Error()))
	}
	m.state = StateAnonymous
	m.user = nil
	m.mu.Unlock()

	if err := m.api.Post(ctx, "/auth/logout", nil, nil); err != nil {
		m.logger.DebugContext(ctx, "network logout failed", slog.String("error", err.Error()))
	}
}

// Refresh restores the session from the persistent store, typically at
// startup. An invalid or expired token clears the session; a demo token
// trusts the cached user; a real token re-confirms the user against the
// backend, keeping the cached copy when the backend is unreachable.
func (m *Manager) Refresh(ctx context.Context) error {
	sess, err := m.repo.GetSession(ctx)
	if errors.Is(err, storage.ErrNoSession) {
		m.invalidate()
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnknown, "failed to read stored session", err)
	}

	op := m.beginExpiring()

	if err := token.Validate(sess.Token); err != nil {
		if clearErr := m.repo.ClearSession(ctx); clearErr != nil {
			m.logger.WarnContext(ctx, "failed to clear invalid session", slog.String("error", clearErr.Error()))
		}
		m.abort(ctx, op)
		return nil
	}

	if token.IsDemo(sess.Token) {
		return m.commit(ctx, op, sess)
	}

	user, err := m.fetchCurrentUser(ctx)
	if err == nil {
		sess.User = *user
		return m.commit(ctx, op, sess)
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindNetwork:
		// Backend unreachable: trust the cached copy rather than punting
		// a previously valid session.
		return m.commit(ctx, op, sess)
	case apperrors.KindAuthentication:
		// The client already cleared the store on 401.
		m.abort(ctx, op)
		return nil
	default:
		m.abort(ctx, op)
		return err
	}
}

// UpdateUser merge-patches the profile. Only valid while authenticated;
// any failure leaves both the store and the in-memory mirror untouched.
func (m *Manager) UpdateUser(ctx context.Context, patch map[string]any) (User, error) {
	m.mu.Lock()
	if m.state != StateAuthenticated || m.user == nil {
		m.mu.Unlock()
		return User{}, apperrors.Wrap(apperrors.KindAuthentication, "sign in to update the profile", ErrNotAuthenticated)
	}
	current := *m.user
	op := m.opID
	m.mu.Unlock()

	if _, ok := patch["role"]; ok {
		return User{}, apperrors.Wrap(apperrors.KindValidation, "role is fixed for the lifetime of the session", ErrRoleImmutable)
	}

	var updated User
	err := m.api.MergePatch(ctx, "/users/me", patch, &updated)
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		err = m.api.MergePatch(ctx, "/me", patch, &updated)
	}
	if err != nil {
		return User{}, err
	}

	if updated.ID == "" {
		// 204 or empty body: apply the merge patch locally.
		merged, mergeErr := mergeUser(current, patch)
		if mergeErr != nil {
			return User{}, apperrors.Wrap(apperrors.KindUnknown, "failed to apply profile patch", mergeErr)
		}
		updated = merged
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if op != m.opID || m.state != StateAuthenticated {
		return User{}, apperrors.Wrap(apperrors.KindAuthentication, "session changed during profile update", ErrStaleOperation)
	}

	sess, err := m.repo.GetSession(ctx)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.KindUnknown, "failed to read stored session", err)
	}
	sess.User = updated
	if err := m.repo.SetSession(ctx, sess); err != nil {
		return User{}, apperrors.Wrap(apperrors.KindUnknown, "failed to persist profile update", err)
	}
	m.user = &updated
	return updated, nil
}

// sessionResponse is the backend's auth response envelope.
type sessionResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (r sessionResponse) session(email string) (storage.Session[User], error) {
	if err := token.Validate(r.Token); err != nil {
		return storage.Session[User]{}, apperrors.Wrap(apperrors.KindAuthentication, "backend returned an unusable token", err)
	}
	user := r.User
	if user.Email == "" {
		user.Email = email
	}
	return storage.Session[User]{Token: r.Token, User: user}, nil
}

// backendStrategy authenticates against the real backend.
type backendStrategy struct {
	api *client.Client
}

func (s backendStrategy) authenticate(ctx context.Context, email, password string) (storage.Session[User], error) {
	var resp sessionResponse
	err := s.api.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return storage.Session[User]{}, err
	}
	return resp.session(email)
}

// authenticate selects the strategy: the real backend first, the demo
// fallback whenever the backend path fails and the credentials match a
// demo identity.
func (m *Manager) authenticate(ctx context.Context, email, password string) (storage.Session[User], error) {
	sess, err := backendStrategy{api: m.api}.authenticate(ctx, email, password)
	if err == nil {
		return sess, nil
	}

	if role, ok := MatchDemo(email, password); ok {
		m.logger.InfoContext(ctx, "backend login failed, using demo session",
			slog.String("role", string(role)))
		return demoStrategy{}.authenticate(email, role), nil
	}
	return storage.Session[User]{}, err
}

func (m *Manager) fetchCurrentUser(ctx context.Context) (*User, error) {
	var u User
	err := m.api.Get(ctx, "/users/me", &u)
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		err = m.api.Get(ctx, "/me", &u)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// begin starts an auth operation and returns its freshness id.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opID++
	m.state = StateAuthenticating
	return m.opID
}

// beginExpiring starts a session re-confirmation operation.
func (m *Manager) beginExpiring() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opID++
	m.state = StateExpiring
	return m.opID
}

// commit persists the session and mirrors it in memory, unless the
// operation went stale while its network call was in flight.
func (m *Manager) commit(ctx context.Context, op uint64, sess storage.Session[User]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if op != m.opID {
		return apperrors.Wrap(apperrors.KindAuthentication, "session changed during sign-in", ErrStaleOperation)
	}
	if err := m.repo.SetSession(ctx, sess); err != nil {
		m.state = StateAnonymous
		m.user = nil
		return apperrors.Wrap(apperrors.KindUnknown, "failed to persist session", err)
	}

	user := sess.User
	m.user = &user
	m.state = StateAuthenticated
	return nil
}

// abort returns a failed operation to the anonymous state, clearing any
// previously cached session, unless a newer operation superseded it.
func (m *Manager) abort(ctx context.Context, op uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if op != m.opID {
		return
	}
	if err := m.repo.ClearSession(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to clear stored session", slog.String("error", err.Error()))
	}
	m.state = StateAnonymous
	m.user = nil
}

// currentUserID reports the mirrored user's id for diagnostic error
// records, "" when nobody is signed in.
func (m *Manager) currentUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return ""
	}
	return m.user.ID
}

// invalidate drops the in-memory session mirror. Registered as the
// client's 401 callback, where the store is already cleared.
func (m *Manager) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opID++
	m.state = StateAnonymous
	m.user = nil
}

// mergeUser applies an RFC 7386 merge patch to a user record via a JSON
// round-trip.
func mergeUser(u User, patch map[string]any) (User, error) {
	base, err := json.Marshal(u)
	if err != nil {
		return User{}, err
	}
	var doc map[string]any
	if err := json.Unmarshal(base, &doc); err != nil {
		return User{}, err
	}
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return User{}, err
	}
	var out User
	if err := json.Unmarshal(merged, &out); err != nil {
		return User{}, err
	}
	return out, nil
}
