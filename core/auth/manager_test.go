package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/core/auth"
	"github.com/dmitrymomot/storefront/core/client"
	"github.com/dmitrymomot/storefront/core/storage"
	"github.com/dmitrymomot/storefront/pkg/apperrors"
	"github.com/dmitrymomot/storefront/pkg/token"
)

func freshToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func expiredToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

// newManager wires a manager against the given base URL with a fresh
// in-memory repository.
func newManager(t *testing.T, baseURL string) (*auth.Manager, *storage.MemoryRepository[auth.User]) {
	t.Helper()

	repo := storage.NewMemoryRepository[auth.User]()
	api, err := client.New(client.Config{BaseURL: baseURL}, repo)
	require.NoError(t, err)
	mgr, err := auth.New(api, repo)
	require.NoError(t, err)
	return mgr, repo
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestManager_Login(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty and malformed input locally", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		mgr, _ := newManager(t, srv.URL)
		ctx := context.Background()

		for _, tc := range []struct{ email, password string }{
			{"", "secret"},
			{"user@example.com", ""},
			{"not-an-email", "secret"},
		} {
			_, err := mgr.Login(ctx, tc.email, tc.password)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		}
		assert.Zero(t, hits.Load(), "local rejection must not hit the network")
	})

	t.Run("success transitions to authenticated", func(t *testing.T) {
		t.Parallel()

		tok := freshToken(t, "u1")
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/login", r.URL.Path)
			writeJSON(t, w, map[string]any{
				"token": tok,
				"user":  auth.User{ID: "u1", Email: "user@example.com", Role: auth.RoleRequester},
			})
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()

		user, err := mgr.Login(ctx, "user@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleRequester, user.Role)
		assert.True(t, mgr.IsAuthenticated())
		assert.Equal(t, auth.StateAuthenticated, mgr.State())

		sess, err := repo.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, tok, sess.Token)
		assert.Equal(t, "u1", sess.User.ID)
	})

	t.Run("expired server token never authenticates", func(t *testing.T) {
		t.Parallel()

		tok := expiredToken(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{
				"token": tok,
				"user":  auth.User{ID: "u1", Role: auth.RoleRequester},
			})
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)

		_, err := mgr.Login(context.Background(), "user@example.com", "secret")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
		assert.False(t, mgr.IsAuthenticated())

		_, err = repo.GetSession(context.Background())
		assert.ErrorIs(t, err, storage.ErrNoSession)
	})

	t.Run("failure clears previously cached session", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: freshToken(t, "old"),
			User:  auth.User{ID: "old"},
		}))

		_, err := mgr.Login(ctx, "user@example.com", "wrong")
		require.Error(t, err)
		assert.False(t, mgr.IsAuthenticated())

		_, err = repo.GetSession(ctx)
		assert.ErrorIs(t, err, storage.ErrNoSession)
	})
}

func TestManager_RateLimit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mgr, _ := newManager(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := mgr.Login(ctx, "user@example.com", "wrong")
		require.Error(t, err)
		require.Equal(t, apperrors.KindServer, apperrors.KindOf(err))
	}
	require.EqualValues(t, 5, hits.Load())

	// Sixth attempt fails fast without touching the network.
	_, err := mgr.Login(ctx, "user@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindRateLimit, apperrors.KindOf(err))
	assert.EqualValues(t, 5, hits.Load())
}

func TestManager_SignupRateLimit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mgr, _ := newManager(t, srv.URL)
	ctx := context.Background()
	req := auth.SignupRequest{
		Email:    "user@example.com",
		Password: "secret",
		Role:     auth.RoleRequester,
	}

	for range 5 {
		_, err := mgr.Signup(ctx, req)
		require.Error(t, err)
		require.Equal(t, apperrors.KindServer, apperrors.KindOf(err))
	}
	require.EqualValues(t, 5, hits.Load())

	_, err := mgr.Signup(ctx, req)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindRateLimit, apperrors.KindOf(err))
	assert.EqualValues(t, 5, hits.Load())

	// The signup ledger is independent of the login ledger.
	_, err = mgr.Login(ctx, "user@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindServer, apperrors.KindOf(err))
}

func TestManager_DemoFallback(t *testing.T) {
	t.Parallel()

	t.Run("vendor email yields supplier role without network", func(t *testing.T) {
		t.Parallel()

		// No backend configured at all.
		mgr, repo := newManager(t, "")
		ctx := context.Background()

		user, err := mgr.Login(ctx, "vendor@example.com", auth.DemoPassword)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleSupplier, user.Role)
		assert.True(t, mgr.IsAuthenticated())

		sess, err := repo.GetSession(ctx)
		require.NoError(t, err)
		assert.True(t, token.IsDemo(sess.Token))
		assert.Equal(t, "supplier", token.DemoRole(sess.Token))
	})

	t.Run("sponsor and requester markers", func(t *testing.T) {
		t.Parallel()

		cases := map[string]auth.Role{
			"sponsor.smith@example.com": auth.RoleSponsor,
			"donor@example.com":         auth.RoleSponsor,
			"client1@example.com":       auth.RoleRequester,
			"demo@example.com":          auth.RoleRequester,
		}
		for email, want := range cases {
			mgr, _ := newManager(t, "")
			user, err := mgr.Login(context.Background(), email, auth.DemoPassword)
			require.NoError(t, err, email)
			assert.Equal(t, want, user.Role, email)
		}
	})

	t.Run("wrong demo password surfaces the original failure", func(t *testing.T) {
		t.Parallel()

		mgr, _ := newManager(t, "")
		_, err := mgr.Login(context.Background(), "vendor@example.com", "not-the-demo-password")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNetwork, apperrors.KindOf(err))
		assert.False(t, mgr.IsAuthenticated())
	})

	t.Run("demo fallback also applies when backend errors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		mgr, _ := newManager(t, srv.URL)
		user, err := mgr.Login(context.Background(), "supplier@example.com", auth.DemoPassword)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleSupplier, user.Role)
	})

	t.Run("demo fallback applies when backend rejects with 401", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()

		user, err := mgr.Login(ctx, "vendor@example.com", auth.DemoPassword)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleSupplier, user.Role)
		assert.True(t, mgr.IsAuthenticated())

		sess, err := repo.GetSession(ctx)
		require.NoError(t, err)
		assert.True(t, token.IsDemo(sess.Token))

		// Without a demo match the same 401 is an ordinary failure.
		_, err = mgr.Login(ctx, "someone@example.com", "wrongpass")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
	})
}

func TestManager_Logout(t *testing.T) {
	t.Parallel()

	t.Run("clears session even when network logout fails", func(t *testing.T) {
		t.Parallel()

		// Backend gone: every call fails.
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		mgr, repo := newManager(t, url)
		ctx := context.Background()

		// Seed an authenticated demo session directly.
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: token.NewDemo("requester"),
			User:  auth.User{ID: "u1", Role: auth.RoleRequester},
		}))
		require.NoError(t, mgr.Refresh(ctx))
		require.True(t, mgr.IsAuthenticated())

		mgr.Logout(ctx)

		assert.False(t, mgr.IsAuthenticated())
		_, err := repo.GetSession(ctx)
		assert.ErrorIs(t, err, storage.ErrNoSession)
	})

	t.Run("logout wins over in-flight login", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})
		tok := freshToken(t, "u1")

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/auth/login" {
				close(started)
				<-release
				writeJSON(t, w, map[string]any{
					"token": tok,
					"user":  auth.User{ID: "u1", Role: auth.RoleRequester},
				})
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()

		loginErr := make(chan error, 1)
		go func() {
			_, err := mgr.Login(ctx, "user@example.com", "secret")
			loginErr <- err
		}()

		<-started
		mgr.Logout(ctx)
		close(release)

		err := <-loginErr
		require.Error(t, err, "stale login completion must not resurrect the session")
		assert.ErrorIs(t, err, auth.ErrStaleOperation)
		assert.False(t, mgr.IsAuthenticated())

		_, err = repo.GetSession(ctx)
		assert.ErrorIs(t, err, storage.ErrNoSession)
	})
}

func TestManager_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("no stored session stays anonymous", func(t *testing.T) {
		t.Parallel()

		mgr, _ := newManager(t, "")
		require.NoError(t, mgr.Refresh(context.Background()))
		assert.False(t, mgr.IsAuthenticated())
	})

	t.Run("expired stored token clears the session", func(t *testing.T) {
		t.Parallel()

		mgr, repo := newManager(t, "")
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: expiredToken(t),
			User:  auth.User{ID: "u1"},
		}))

		require.NoError(t, mgr.Refresh(ctx))
		assert.False(t, mgr.IsAuthenticated())
		_, err := repo.GetSession(ctx)
		assert.ErrorIs(t, err, storage.ErrNoSession)
	})

	t.Run("demo token trusts the cached user", func(t *testing.T) {
		t.Parallel()

		mgr, repo := newManager(t, "")
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: token.NewDemo("sponsor"),
			User:  auth.User{ID: "u9", Role: auth.RoleSponsor, Email: "sponsor@example.com"},
		}))

		require.NoError(t, mgr.Refresh(ctx))
		assert.True(t, mgr.IsAuthenticated())

		user, ok := mgr.CurrentUser()
		require.True(t, ok)
		assert.Equal(t, auth.RoleSponsor, user.Role)
	})

	t.Run("real token re-confirms the user", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/users/me", r.URL.Path)
			writeJSON(t, w, auth.User{ID: "u1", Email: "user@example.com", Role: auth.RoleRequester, City: "Lyon"})
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: freshToken(t, "u1"),
			User:  auth.User{ID: "u1", Role: auth.RoleRequester},
		}))

		require.NoError(t, mgr.Refresh(ctx))
		user, ok := mgr.CurrentUser()
		require.True(t, ok)
		assert.Equal(t, "Lyon", user.City, "cached user must be refreshed from the backend")
	})

	t.Run("falls back to /me when /users/me is missing", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/users/me" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			require.Equal(t, "/me", r.URL.Path)
			writeJSON(t, w, auth.User{ID: "u1", Role: auth.RoleRequester})
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: freshToken(t, "u1"),
			User:  auth.User{ID: "u1", Role: auth.RoleRequester},
		}))

		require.NoError(t, mgr.Refresh(ctx))
		assert.True(t, mgr.IsAuthenticated())
	})

	t.Run("unreachable backend keeps the cached session", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		mgr, repo := newManager(t, url)
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: freshToken(t, "u1"),
			User:  auth.User{ID: "u1", Role: auth.RoleSupplier},
		}))

		require.NoError(t, mgr.Refresh(ctx))
		assert.True(t, mgr.IsAuthenticated())

		user, ok := mgr.CurrentUser()
		require.True(t, ok)
		assert.Equal(t, auth.RoleSupplier, user.Role)
	})

	t.Run("401 during refresh returns to anonymous", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: freshToken(t, "u1"),
			User:  auth.User{ID: "u1"},
		}))

		require.NoError(t, mgr.Refresh(ctx))
		assert.False(t, mgr.IsAuthenticated())
		_, err := repo.GetSession(ctx)
		assert.ErrorIs(t, err, storage.ErrNoSession)
	})
}

func TestManager_UpdateUser(t *testing.T) {
	t.Parallel()

	authenticated := func(t *testing.T, handler http.HandlerFunc) (*auth.Manager, *storage.MemoryRepository[auth.User]) {
		t.Helper()
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		mgr, repo := newManager(t, srv.URL)
		ctx := context.Background()
		require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
			Token: token.NewDemo("requester"),
			User:  auth.User{ID: "u1", Email: "user@example.com", Role: auth.RoleRequester, City: "Paris"},
		}))
		require.NoError(t, mgr.Refresh(ctx))
		return mgr, repo
	}

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		mgr, _ := newManager(t, "")
		_, err := mgr.UpdateUser(context.Background(), map[string]any{"city": "Lyon"})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
		assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
	})

	t.Run("role is immutable", func(t *testing.T) {
		t.Parallel()

		mgr, _ := authenticated(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("role patch must be rejected locally")
		})

		_, err := mgr.UpdateUser(context.Background(), map[string]any{"role": "sponsor"})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrRoleImmutable)
	})

	t.Run("merges server response into memory and store", func(t *testing.T) {
		t.Parallel()

		mgr, repo := authenticated(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPatch, r.Method)
			require.Equal(t, "application/merge-patch+json", r.Header.Get("Content-Type"))
			writeJSON(t, w, auth.User{ID: "u1", Email: "user@example.com", Role: auth.RoleRequester, City: "Lyon"})
		})

		updated, err := mgr.UpdateUser(context.Background(), map[string]any{"city": "Lyon"})
		require.NoError(t, err)
		assert.Equal(t, "Lyon", updated.City)

		sess, err := repo.GetSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Lyon", sess.User.City)

		user, ok := mgr.CurrentUser()
		require.True(t, ok)
		assert.Equal(t, "Lyon", user.City)
	})

	t.Run("empty response applies the patch locally", func(t *testing.T) {
		t.Parallel()

		mgr, _ := authenticated(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		updated, err := mgr.UpdateUser(context.Background(), map[string]any{"city": "Nantes"})
		require.NoError(t, err)
		assert.Equal(t, "Nantes", updated.City)
		assert.Equal(t, "user@example.com", updated.Email, "untouched fields survive the merge")
	})

	t.Run("failure leaves previous state untouched", func(t *testing.T) {
		t.Parallel()

		mgr, repo := authenticated(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"violations":[{"propertyPath":"phone","message":"is invalid"}]}`))
		})

		_, err := mgr.UpdateUser(context.Background(), map[string]any{"phone": "nope"})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

		user, ok := mgr.CurrentUser()
		require.True(t, ok)
		assert.Equal(t, "Paris", user.City)

		sess, err := repo.GetSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Paris", sess.User.City)
	})
}

func TestManager_StampsUserIDOnDiagnostics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := storage.NewMemoryRepository[auth.User]()
	queue := apperrors.NewQueue()
	api, err := client.New(client.Config{BaseURL: srv.URL}, repo, client.WithQueue(queue))
	require.NoError(t, err)
	mgr, err := auth.New(api, repo)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.SetSession(ctx, storage.Session[auth.User]{
		Token: token.NewDemo("requester"),
		User:  auth.User{ID: "u7", Role: auth.RoleRequester},
	}))
	require.NoError(t, mgr.Refresh(ctx))

	_, err = mgr.UpdateUser(ctx, map[string]any{"city": "Lyon"})
	require.Error(t, err)

	records := queue.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, "u7", records[len(records)-1].UserID)
}

func TestManager_UnauthorizedSignal(t *testing.T) {
	t.Parallel()

	// Login succeeds, then the backend starts rejecting the token.
	var reject atomic.Bool
	tok := freshToken(t, "u1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reject.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, map[string]any{
			"token": tok,
			"user":  auth.User{ID: "u1", Role: auth.RoleRequester},
		})
	}))
	defer srv.Close()

	mgr, repo := newManager(t, srv.URL)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "user@example.com", "secret")
	require.NoError(t, err)
	require.True(t, mgr.IsAuthenticated())

	reject.Store(true)
	require.NoError(t, mgr.Refresh(ctx))

	assert.False(t, mgr.IsAuthenticated(), "401 must drop the session everywhere")
	_, err = repo.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrNoSession)
}
