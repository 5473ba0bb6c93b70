// Package client implements the single chokepoint for outbound calls to
// the marketplace backend.
//
// Every request goes through one path that builds the required headers
// (JSON content type, bearer token when a session exists, XHR marker),
// dispatches the call, unwraps the response envelope, and converts every
// transport or HTTP failure into the closed taxonomy of
// pkg/apperrors. The client never swallows a failure: callers always
// receive a classified error they can branch on.
//
// # Availability and demo mode
//
// IsAvailable gates all real network I/O. When no backend origin is
// configured, or the configured origin cannot be reached from the current
// deployment context, the client performs no network calls at all and
// callers degrade to demo/offline behavior. The decision is an injectable
// Policy, so hosts control the environment heuristics.
//
// # Session side effects
//
// The client owns the token's presence in the persistent store: a
// successful response carrying a fresh valid token overwrites it, and a
// 401 clears the whole session and fires the OnUnauthorized callback so
// the UI can force the login view. All other session writes belong to the
// session manager in core/auth.
//
// # Basic Usage
//
//	api, err := client.New(client.Config{
//		BaseURL: "https://api.example.com",
//	}, repo, client.WithQueue(queue))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var products []catalog.Product
//	if err := api.Get(ctx, "/products?category=fruits", &products); err != nil {
//		switch apperrors.KindOf(err) {
//		case apperrors.KindNetwork:
//			// offline, show cached/demo data
//		}
//	}
package client
