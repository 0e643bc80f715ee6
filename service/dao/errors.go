package dao

import "errors"

// Sentinel errors shared by the run and experiment stores; detect them with
// errors.Is.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates an empty or malformed record key.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist nil.
	ErrNilEntity = errors.New("dao: nil entity")
)
