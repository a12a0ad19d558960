package local

import "errors"

var (
	// ErrNotFound means no document exists under the key
	ErrNotFound = errors.New("document not found")

	// ErrCorrupt means the file exists but does not decode
	ErrCorrupt = errors.New("corrupt document")

	// ErrBadKey rejects keys that would escape their collection
	ErrBadKey = errors.New("invalid document key")

	// ErrLocked means another process holds the lock
	ErrLocked = errors.New("store locked by another process")
)
