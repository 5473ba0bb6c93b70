// Package token validates session tokens on the client side.
//
// Two token kinds exist: real tokens issued by the backend (JWT-shaped,
// parsed without signature verification since the client holds no signing
// key) and demo tokens synthesized locally when the app runs without a
// reachable backend. A token may back an authenticated session only if it
// parses and, for real tokens, its expiry claim is strictly in the future.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/storefront/pkg/token"
//
//	if err := token.Validate(tok); err != nil {
//		// session must be cleared, err is ErrMalformed, ErrExpired
//		// or ErrMissingExpiry
//	}
//
//	if token.IsDemo(tok) {
//		role := token.DemoRole(tok) // e.g. "supplier"
//	}
//
// The backend remains the sole authority on real-token validity; this
// package only prevents the client from trusting a token that is already
// structurally broken or expired.
package token
