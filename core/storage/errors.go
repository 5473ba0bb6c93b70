package storage

import "errors"

var (
	// ErrNoSession is returned when no session is currently stored.
	ErrNoSession = errors.New("no stored session")
	// ErrNotFound is returned when a requested entry does not exist.
	ErrNotFound = errors.New("entry not found")
	// ErrPersistence is returned when the durable store cannot be written.
	ErrPersistence = errors.New("failed to persist state")
)
