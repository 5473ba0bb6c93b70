// Package apperrors defines the closed failure taxonomy shared by the
// gateway client and session manager, classification of untyped failures
// into it, localized user-facing messages per kind, and a bounded
// diagnostic queue of structured error records.
//
// Classification prefers explicit kind tags attached at the failure origin
// (see Error) and falls back to message substring heuristics only for
// untyped failures:
//
//	err := doSomething()
//	switch apperrors.KindOf(err) {
//	case apperrors.KindAuthentication:
//		// force re-login
//	case apperrors.KindNetwork:
//		// degrade to offline behavior
//	}
//
// Every classified record can be appended to a Queue, which keeps the
// newest records up to a fixed capacity, persists them opportunistically
// through a Persister, and flushes them best-effort to a monitoring Sink:
//
//	queue := apperrors.NewQueue(
//		apperrors.WithPersister(repo),
//		apperrors.WithCapacity(50),
//	)
//	queue.Restore(ctx)
//	queue.Capture(ctx, err, map[string]any{"path": "/products"})
//
// Persistence and flush failures are swallowed: a broken diagnostic
// channel must never surface as a user-visible error.
package apperrors
