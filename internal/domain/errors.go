package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Progress errors
var (
	ErrSnapshotNotFound = errors.New("progress snapshot not found")
	ErrInvalidDiet      = errors.New("invalid diet")
	ErrInvalidArea      = errors.New("invalid chapter area")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
