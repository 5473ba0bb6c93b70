package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("resolves with the function result", func(t *testing.T) {
		t.Parallel()

		f := async.Go(context.Background(), func(ctx context.Context) (int, error) {
			return 42, nil
		})

		v, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.True(t, f.IsComplete())

		// Await is repeatable.
		v, err = f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("propagates the function error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		f := async.Go(context.Background(), func(ctx context.Context) (string, error) {
			return "", boom
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("pre-canceled context skips the function", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		f := async.Go(ctx, func(ctx context.Context) (int, error) {
			called = true
			return 0, nil
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestAwaitWithTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	f := async.Go(context.Background(), func(ctx context.Context) (int, error) {
		<-block
		return 1, nil
	})

	_, err := f.AwaitWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, async.ErrTimeout)
	assert.False(t, f.IsComplete())

	close(block)
	v, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestWaitErr(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ok := async.Go(context.Background(), func(ctx context.Context) (int, error) { return 1, nil })
	bad := async.Go(context.Background(), func(ctx context.Context) (int, error) { return 0, boom })

	err := async.WaitErr(ok, bad)
	assert.ErrorIs(t, err, boom)

	require.NoError(t, async.WaitErr(ok))
}
