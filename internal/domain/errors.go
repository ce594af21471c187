package domain

import "errors"

// Precondition violations. Callers match them with errors.Is; the message
// carries the offending values through %w wrapping.
var (
	ErrEmptyGrid        = errors.New("grid is empty")
	ErrInvalidCellSize  = errors.New("cell size must be positive and finite")
	ErrShapeMismatch    = errors.New("grid shapes do not match")
	ErrInvalidWeights   = errors.New("invalid risk weights")
	ErrInvalidRiskLevel = errors.New("risk level out of range")
)

// ErrRunNotFound is returned by run history lookups with no match.
var ErrRunNotFound = errors.New("run not found")
