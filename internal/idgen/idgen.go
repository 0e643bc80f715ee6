// Package idgen generates run identifiers. Callers treat them as opaque
// strings; tests stub NewFunc for stable IDs.
package idgen

import "github.com/google/uuid"

// NewFunc produces a new identifier.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new run identifier.
func New() string { return NewFunc() }
