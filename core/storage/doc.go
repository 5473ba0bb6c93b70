// Package storage provides the durable, process-wide key/value state
// behind the session layer: the current session (token + cached user),
// per-action rate-limit attempt lists, and the serialized diagnostic
// error log.
//
// The Repository interface is deliberately narrow so the gateway client
// and session manager depend on an interface rather than on ambient
// global storage, and tests can supply the in-memory implementation.
//
// # Implementations
//
//   - MemoryRepository: non-durable, for tests and ephemeral processes
//   - FileRepository: single JSON document rewritten synchronously on
//     every mutation, the Go analog of browser localStorage
//   - integration/storage/redis: Redis-backed, for hosts sharing one
//     session across processes
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/storefront/core/storage"
//
//	repo, err := storage.NewFileRepository[auth.User](
//		filepath.Join(configDir, "storefront", "state.json"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := repo.GetSession(ctx)
//	if errors.Is(err, storage.ErrNoSession) {
//		// anonymous
//	}
//
// Ownership: the session manager is the only writer of the cached user
// record; the gateway client only reads the token and clears the session
// on a detected-invalid-session signal. Other components must not write
// session fields directly.
package storage
