package auth

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requires an
	// authenticated session and none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStaleOperation is returned when an auth operation completed
	// after the session it was building was superseded or cleared.
	ErrStaleOperation = errors.New("stale auth operation")
	// ErrRoleImmutable is returned when a profile update tries to change
	// the user role.
	ErrRoleImmutable = errors.New("role cannot be changed")
)
