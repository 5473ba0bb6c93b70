package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by AwaitWithTimeout when the future does not
// complete in time. The underlying work keeps running.
var ErrTimeout = errors.New("async: await timed out")

// Future is the handle to an in-flight asynchronous call that resolves
// to a value and an error.
type Future[T any] struct {
	value T
	err   error
	done  chan struct{}
}

// Await blocks until the call completes and returns its result.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// AwaitWithTimeout blocks until completion or the timeout, whichever
// comes first.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

// IsComplete reports completion without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Go runs fn in its own goroutine and returns a future for its result.
// A pre-canceled context resolves the future immediately without
// invoking fn.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}
		f.value, f.err = fn(ctx)
	}()

	return f
}

// WaitErr awaits every future and joins their errors. Values are read
// through the individual futures; this only synchronizes completion.
func WaitErr[T any](futures ...*Future[T]) error {
	var errs []error
	for _, f := range futures {
		if _, err := f.Await(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
