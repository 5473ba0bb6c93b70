// Package ratelimiter throttles repeated sensitive operations using a
// sliding window of attempt timestamps per action key.
//
// Unlike a token bucket, the ledger records explicit attempts: callers
// check Allow before the operation, Record on failure, and Reset on
// success. This matches login throttling semantics where only failed
// attempts count against the ceiling.
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.New(store, ratelimiter.Config{
//		Limit:  5,
//		Window: 15 * time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ok, err := limiter.Allow(ctx, "login")
//	if err != nil || !ok {
//		// fail fast, no network call
//	}
//	if loginFailed {
//		_ = limiter.Record(ctx, "login")
//	} else {
//		_ = limiter.Reset(ctx, "login")
//	}
//
// Entries older than the window are discarded lazily on the next check;
// no background goroutine is required. Any Store implementation may be
// plugged in, e.g. the persistent session store in core/storage so that
// counters survive restarts.
package ratelimiter
