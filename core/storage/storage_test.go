package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/core/storage"
)

type testUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// repoFactory lets the same suite run against every implementation.
type repoFactory func(t *testing.T) storage.Repository[testUser]

func repositories() map[string]repoFactory {
	return map[string]repoFactory{
		"memory": func(t *testing.T) storage.Repository[testUser] {
			return storage.NewMemoryRepository[testUser]()
		},
		"file": func(t *testing.T) storage.Repository[testUser] {
			repo, err := storage.NewFileRepository[testUser](filepath.Join(t.TempDir(), "state.json"))
			require.NoError(t, err)
			return repo
		},
	}
}

func TestRepository_SessionLifecycle(t *testing.T) {
	t.Parallel()

	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := factory(t)
			ctx := context.Background()

			_, err := repo.GetSession(ctx)
			require.ErrorIs(t, err, storage.ErrNoSession)

			tok, err := repo.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, tok)

			sess := storage.Session[testUser]{
				Token: "tok-1",
				User:  testUser{ID: "u1", Email: "u1@example.com", Role: "requester"},
			}
			require.NoError(t, repo.SetSession(ctx, sess))

			got, err := repo.GetSession(ctx)
			require.NoError(t, err)
			assert.Equal(t, sess, got)

			tok, err = repo.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-1", tok)

			// Fresh token mid-session only replaces the token.
			require.NoError(t, repo.SetToken(ctx, "tok-2"))
			got, err = repo.GetSession(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-2", got.Token)
			assert.Equal(t, "u1", got.User.ID)

			require.NoError(t, repo.ClearSession(ctx))
			_, err = repo.GetSession(ctx)
			assert.ErrorIs(t, err, storage.ErrNoSession)
			tok, err = repo.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, tok)
		})
	}
}

func TestRepository_PendingToken(t *testing.T) {
	t.Parallel()

	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := factory(t)
			ctx := context.Background()

			// Token captured before the user fetch completes the session.
			require.NoError(t, repo.SetToken(ctx, "early-token"))

			tok, err := repo.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "early-token", tok)

			// No full session exists yet.
			_, err = repo.GetSession(ctx)
			assert.ErrorIs(t, err, storage.ErrNoSession)

			// Completing the session supersedes the pending token.
			require.NoError(t, repo.SetSession(ctx, storage.Session[testUser]{Token: "final", User: testUser{ID: "u1"}}))
			tok, err = repo.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "final", tok)
		})
	}
}

func TestRepository_Attempts(t *testing.T) {
	t.Parallel()

	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := factory(t)
			ctx := context.Background()
			now := time.Now()

			require.NoError(t, repo.RecordAttempt(ctx, "login", now.Add(-time.Hour)))
			require.NoError(t, repo.RecordAttempt(ctx, "login", now))
			require.NoError(t, repo.RecordAttempt(ctx, "signup", now))

			count, err := repo.CountAttempts(ctx, "login", now.Add(-time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, count, "stale attempt should be discarded lazily")

			count, err = repo.CountAttempts(ctx, "signup", now.Add(-time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			require.NoError(t, repo.ResetAttempts(ctx, "login"))
			count, err = repo.CountAttempts(ctx, "login", now.Add(-time.Minute))
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestRepository_ErrorLog(t *testing.T) {
	t.Parallel()

	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := factory(t)
			ctx := context.Background()

			_, err := repo.LoadErrorLog(ctx)
			require.ErrorIs(t, err, storage.ErrNotFound)

			require.NoError(t, repo.SaveErrorLog(ctx, []byte(`[{"kind":"NETWORK"}]`)))
			data, err := repo.LoadErrorLog(ctx)
			require.NoError(t, err)
			assert.JSONEq(t, `[{"kind":"NETWORK"}]`, string(data))
		})
	}
}

func TestFileRepository_Durability(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first, err := storage.NewFileRepository[testUser](path)
	require.NoError(t, err)
	require.NoError(t, first.SetSession(ctx, storage.Session[testUser]{
		Token: "persisted",
		User:  testUser{ID: "u1", Role: "supplier"},
	}))
	require.NoError(t, first.RecordAttempt(ctx, "login", time.Now()))

	// Reopen from disk as a fresh process would.
	second, err := storage.NewFileRepository[testUser](path)
	require.NoError(t, err)

	sess, err := second.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", sess.Token)
	assert.Equal(t, "supplier", sess.User.Role)

	count, err := second.CountAttempts(ctx, "login", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFileRepository_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{definitely not json"), 0o600))

	repo, err := storage.NewFileRepository[testUser](path)
	require.NoError(t, err, "corrupt state should be discarded, not fatal")

	_, err = repo.GetSession(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoSession)
}
