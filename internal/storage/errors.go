package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists in an append-only store.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptCheckpoint is returned when resume state cannot be decoded.
	// Callers fall back to a fresh start rather than proceed inconsistently.
	ErrCorruptCheckpoint = errors.New("corrupt resume checkpoint")
)
