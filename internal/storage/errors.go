package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyFinal is returned when attempting to finalize a trade
	// record that already reached a terminal status. A pending record
	// transitions to completed or failed exactly once.
	ErrAlreadyFinal = errors.New("trade record already finalized")
)
