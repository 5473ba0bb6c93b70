// Package auth orchestrates the session lifecycle: login, signup,
// logout, restore-from-storage, and profile updates, all through the
// gateway client in core/client.
//
// # State machine
//
// The manager moves between Anonymous, Authenticating, Authenticated and
// Expiring. A monotonically increasing operation id guards every session
// write: logout and 401 invalidation bump it, so an in-flight login or
// refresh that resolves afterwards is stale and cannot resurrect a
// cleared session. Last-writer-wins is acceptable for racing logins, but
// a logout always wins.
//
// # Demo fallback
//
// When the backend path fails and the credentials match one of the
// well-known demo identities (fixed demo password, role inferred from
// the email's local part), login silently succeeds with a locally
// fabricated user record and a demo-kind token. This keeps the app
// usable with no backend configured at all.
//
// # Basic Usage
//
//	mgr, err := auth.New(api, repo)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Restore a previous session at startup.
//	if err := mgr.Refresh(ctx); err != nil {
//		log.Printf("session restore: %v", err)
//	}
//
//	user, err := mgr.Login(ctx, email, password)
//	if err != nil {
//		msg := apperrors.UserMessage(apperrors.KindOf(err))
//		// render msg
//	}
//
// Login and signup attempts are throttled through the rate-limit ledger
// before any network call: after 5 failures within a 15-minute sliding
// window the next attempt for that action fails fast with a RATE_LIMIT
// error.
package auth
