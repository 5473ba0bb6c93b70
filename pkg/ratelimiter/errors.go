package ratelimiter

import "errors"

// Package-level error definitions for rate limiter operations.
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrStoreUnavailable  = errors.New("attempt store unavailable")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
