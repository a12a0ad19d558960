package remote

import (
	"context"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// Table is the remote relation holding one progress document per user
const Table = "user_progress"

// Store is the remote replica of a user's progress. Writes replace the
// stored document (upsert keyed by user id).
type Store interface {
	// GetProgress returns ErrNotFound when the user has no remote record
	GetProgress(ctx context.Context, userID string) (*domain.ProgressSnapshot, error)
	PutProgress(ctx context.Context, userID string, snapshot *domain.ProgressSnapshot, syncedAt time.Time) error
}

// Ensure adapters implement Store
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*HTTPStore)(nil)
	_ Store = (*Resilient)(nil)
)
