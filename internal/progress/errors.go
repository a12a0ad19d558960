package progress

import "errors"

var (
	// ErrNotFound is returned by stores when no snapshot is persisted under a key
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorrupt is returned by stores when the stored document does not decode
	ErrCorrupt = errors.New("snapshot corrupt")
)
