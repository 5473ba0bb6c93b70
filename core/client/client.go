package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/storefront/pkg/apperrors"
	"github.com/dmitrymomot/storefront/pkg/token"
)

const (
	contentTypeJSON       = "application/json"
	contentTypeMergePatch = "application/merge-patch+json"
)

// SessionStore is the slice of the persistent store the gateway client
// needs: reading the token for auth headers, capturing a fresh token from
// a response, and clearing the session when the backend signals it is no
// longer valid.
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearSession(ctx context.Context) error
}

// Client is the single chokepoint for outbound calls to the backend. It
// builds headers, dispatches requests, unwraps response envelopes, and
// converts every transport or HTTP failure into a classified error.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	probeTimeout time.Duration
	store        SessionStore
	policy       Policy
	queue        *apperrors.Queue
	logger       *slog.Logger

	mu             sync.Mutex
	onUnauthorized func()
	userID         func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPolicy overrides the availability policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithQueue attaches the diagnostic error queue; every classified failure
// is appended to it.
func WithQueue(q *apperrors.Queue) Option {
	return func(c *Client) {
		c.queue = q
	}
}

// WithLogger sets the logger for swallowed side-effect failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a gateway client. An empty cfg.BaseURL is not an error; it
// produces a permanently unavailable client that callers detect via
// IsAvailable.
func New(cfg Config, store SessionStore, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	cfg = cfg.withDefaults()

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL != "" {
		if _, err := url.Parse(baseURL); err != nil {
			return nil, errors.Join(errors.New("invalid base URL"), err)
		}
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      baseURL,
		probeTimeout: cfg.ProbeTimeout,
		store:        store,
		policy:       OriginPolicy(baseURL, cfg.Hosted),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured backend origin, "" when none.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsAvailable reports whether real network calls may be attempted. When
// false, callers must use degraded/demo behavior instead.
func (c *Client) IsAvailable() bool {
	return c.policy.Available()
}

// OnUnauthorized registers the callback invoked after a 401 clears the
// session, typically forcing navigation to the login view.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// UserIDProvider registers the callback used to stamp diagnostic error
// records with the current user id. It must return "" when no user is
// signed in.
func (c *Client) UserIDProvider(fn func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = fn
}

// Get performs a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, contentTypeJSON)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, contentTypeJSON)
}

// MergePatch performs a PATCH request with merge-patch semantics, used
// for partial profile and contact updates.
func (c *Client) MergePatch(ctx context.Context, path string, patch, out any) error {
	return c.do(ctx, http.MethodPatch, path, patch, out, contentTypeMergePatch)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, contentTypeJSON)
}

// Ping probes backend liveness within the probe budget. Any HTTP response
// counts as alive; only transport failures and timeouts report an error,
// always classified as a network failure.
func (c *Client) Ping(ctx context.Context) error {
	if !c.IsAvailable() {
		return apperrors.New(apperrors.KindNetwork, c.unavailableMessage())
	}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnknown, "failed to build probe request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindNetwork, c.transportMessage(err), err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, contentType string) error {
	if !c.IsAvailable() {
		err := apperrors.New(apperrors.KindNetwork, c.unavailableMessage())
		c.capture(ctx, err, method, path)
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.KindUnknown, "failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnknown, "failed to build request", err)
	}

	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	var authed bool
	if tok, tokErr := c.store.Token(ctx); tokErr == nil && tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
		authed = true
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		aerr := apperrors.Wrap(apperrors.KindNetwork, c.transportMessage(err), err)
		c.capture(ctx, aerr, method, path)
		return aerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		aerr := apperrors.Wrap(apperrors.KindNetwork, "failed to read response body", err)
		c.capture(ctx, aerr, method, path)
		return aerr
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Only an authenticated call's 401 means the session died. A
		// rejected anonymous call (failed login attempt) clears nothing
		// and must not signal session invalidation.
		msg := "authentication failed"
		if authed {
			c.handleUnauthorized(ctx)
			msg = "session is no longer valid"
		}
		aerr := apperrors.New(apperrors.KindAuthentication, msg).WithStatus(resp.StatusCode)
		c.capture(ctx, aerr, method, path)
		return aerr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		aerr := statusError(resp.StatusCode, resp.Status, data)
		c.capture(ctx, aerr, method, path)
		return aerr
	}

	// 204 and empty bodies are success with an empty result, never a
	// parse error.
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	c.captureToken(ctx, data)

	if out == nil {
		return nil
	}
	if err := decodeEnvelope(data, out); err != nil {
		aerr := apperrors.Wrap(apperrors.KindUnknown, "failed to decode response", err)
		c.capture(ctx, aerr, method, path)
		return aerr
	}
	return nil
}

// handleUnauthorized clears the persisted session atomically and notifies
// the host so the UI can force the login view.
func (c *Client) handleUnauthorized(ctx context.Context) {
	if err := c.store.ClearSession(ctx); err != nil {
		c.logger.WarnContext(ctx, "failed to clear session after 401", slog.String("error", err.Error()))
	}

	c.mu.Lock()
	fn := c.onUnauthorized
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// captureToken overwrites the stored token when a successful response
// carries a fresh valid one.
func (c *Client) captureToken(ctx context.Context, data []byte) {
	var probe struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Token == "" {
		return
	}
	if token.Validate(probe.Token) != nil {
		return
	}
	if err := c.store.SetToken(ctx, probe.Token); err != nil {
		c.logger.WarnContext(ctx, "failed to store fresh token", slog.String("error", err.Error()))
	}
}

func (c *Client) capture(ctx context.Context, err *apperrors.Error, method, path string) {
	if c.queue == nil {
		return
	}
	rec := apperrors.Record{
		Kind:      err.Kind,
		Message:   err.Error(),
		Status:    err.Status,
		Context:   map[string]any{"method": method, "path": path},
		OriginURL: c.baseURL + path,
	}

	c.mu.Lock()
	fn := c.userID
	c.mu.Unlock()
	if fn != nil {
		rec.UserID = fn()
	}

	c.queue.Append(ctx, rec)
}

func (c *Client) unavailableMessage() string {
	if strings.TrimSpace(c.baseURL) == "" {
		return "no backend configured for this origin"
	}
	return "backend is not reachable from this deployment"
}

func (c *Client) transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request to backend timed out"
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return "request to backend timed out"
	}
	return "backend unreachable"
}

// statusError maps a non-2xx HTTP response into the failure taxonomy.
func statusError(code int, status string, body []byte) *apperrors.Error {
	switch {
	case code == http.StatusForbidden:
		return apperrors.New(apperrors.KindAuthorization, "access denied").WithStatus(code)
	case code == http.StatusNotFound:
		return apperrors.New(apperrors.KindNotFound, "resource not found").WithStatus(code)
	case code == http.StatusUnprocessableEntity:
		return apperrors.New(apperrors.KindValidation, violationMessage(body)).WithStatus(code)
	case code == http.StatusTooManyRequests:
		return apperrors.New(apperrors.KindRateLimit, "too many requests").WithStatus(code)
	case code >= 500:
		return apperrors.Newf(apperrors.KindServer, "server error: %s", status).WithStatus(code)
	default:
		return apperrors.Newf(apperrors.KindUnknown, "unexpected response: %s", status).WithStatus(code)
	}
}

// violationMessage joins per-field violation messages from a structured
// 422 body into one message, falling back to a generic one.
func violationMessage(body []byte) string {
	var payload struct {
		Violations []struct {
			PropertyPath string `json:"propertyPath"`
			Message      string `json:"message"`
		} `json:"violations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Violations) == 0 {
		return "validation failed"
	}

	msgs := make([]string, 0, len(payload.Violations))
	for _, v := range payload.Violations {
		if v.Message == "" {
			continue
		}
		if v.PropertyPath != "" {
			msgs = append(msgs, v.PropertyPath+": "+v.Message)
		} else {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) == 0 {
		return "validation failed"
	}
	return strings.Join(msgs, "; ")
}
