package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DemoPrefix marks locally synthesized tokens that carry no expiry claim
// and never touch the network.
const DemoPrefix = "demo-token."

var (
	// ErrMalformed is returned when a token fails structural parsing.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired is returned when a real token's expiry claim is in the past.
	ErrExpired = errors.New("token expired")
	// ErrMissingExpiry is returned when a real token carries no expiry claim.
	ErrMissingExpiry = errors.New("token has no expiry claim")
)

// parser never verifies signatures: the client holds no signing key and
// only needs the structural shape and the exp claim. The backend remains
// the authority on token validity.
var parser = jwt.NewParser()

// IsDemo reports whether the token is a locally synthesized demo token.
func IsDemo(tok string) bool {
	return strings.HasPrefix(tok, DemoPrefix)
}

// NewDemo synthesizes a demo token embedding the role name. The trailing
// timestamp only keeps tokens unique across logins.
func NewDemo(role string) string {
	return fmt.Sprintf("%s%s.%d", DemoPrefix, role, time.Now().Unix())
}

// DemoRole extracts the role name embedded in a demo token, or "" when
// the token is not a demo token.
func DemoRole(tok string) string {
	if !IsDemo(tok) {
		return ""
	}
	rest := strings.TrimPrefix(tok, DemoPrefix)
	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

// Validate reports whether the token may back an authenticated session.
// Demo tokens are always valid; real tokens must parse as three
// dot-separated base64url segments and carry an expiry claim strictly in
// the future.
func Validate(tok string) error {
	if tok == "" {
		return ErrMalformed
	}
	if IsDemo(tok) {
		return nil
	}

	exp, err := ExpiresAt(tok)
	if err != nil {
		return err
	}
	if !exp.After(time.Now()) {
		return ErrExpired
	}
	return nil
}

// ExpiresAt returns the expiry claim of a real token. Demo tokens have no
// expiry and report ErrMissingExpiry.
func ExpiresAt(tok string) (time.Time, error) {
	if IsDemo(tok) {
		return time.Time{}, ErrMissingExpiry
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return time.Time{}, errors.Join(ErrMalformed, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrMissingExpiry
	}
	return exp.Time, nil
}

// Subject returns the sub claim of a real token, useful for sanity checks
// against the cached user record. Demo tokens report "".
func Subject(tok string) string {
	if IsDemo(tok) {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// unixString is kept close to DemoRole for symmetry: it parses the
// trailing demo-token timestamp, zero when absent.
func unixString(tok string) int64 {
	parts := strings.Split(strings.TrimPrefix(tok, DemoPrefix), ".")
	if len(parts) < 2 {
		return 0
	}
	ts, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return ts
}

// IssuedAt returns the creation time of a demo token, zero time otherwise.
func IssuedAt(tok string) time.Time {
	if !IsDemo(tok) {
		return time.Time{}
	}
	ts := unixString(tok)
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
