package sqlite

import (
	"github.com/felixgeelhaar/personal21/internal/progress"
	"github.com/felixgeelhaar/personal21/internal/reconcile"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ progress.SnapshotStore = (*ProgressStore)(nil)
	_ reconcile.SyncLedger   = (*ProgressStore)(nil)
)
