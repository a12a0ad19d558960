package progress

import (
	"context"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// SnapshotStore defines the durable local persistence for snapshots.
// Both the JSON file store and SQLite store implement this.
//
// Load decodes the stored document into dst, leaving fields absent from the
// document untouched, and returns ErrNotFound when nothing is stored.
type SnapshotStore interface {
	Load(key string, dst *domain.ProgressSnapshot) error
	Save(key string, snapshot *domain.ProgressSnapshot) error
}

// ExclusiveStore is a SnapshotStore that can hold off every other process
// sharing the same storage while fn runs. fn reads and writes through tx.
type ExclusiveStore interface {
	SnapshotStore
	Exclusive(ctx context.Context, key string, fn func(tx SnapshotStore) error) error
}

// ProgressService defines the mutator and query operations used by the
// daemon handlers, the CLI and the MCP server
type ProgressService interface {
	Snapshot(ctx context.Context) *domain.ProgressSnapshot
	Summary(ctx context.Context) Summary

	CompleteChapter(ctx context.Context, area domain.Area, chapter int) (*domain.ProgressSnapshot, error)
	RecordRecipeCompletion(ctx context.Context, diet domain.DietType, name string, macros domain.Macros) (*domain.ProgressSnapshot, error)
	CompleteWorkoutDay(ctx context.Context, day, caloriesBurned, durationSeconds int) (*domain.ProgressSnapshot, error)
	AddHydration(ctx context.Context, ml int) (*domain.ProgressSnapshot, error)
	SetSleep(ctx context.Context, hours float64) (*domain.ProgressSnapshot, error)
	AdvanceOnboarding(ctx context.Context, step int) (*domain.ProgressSnapshot, error)
	Reset(ctx context.Context) (*domain.ProgressSnapshot, error)
}

// Ensure Service implements ProgressService
var _ ProgressService = (*Service)(nil)

// Ensure Store (JSON) implements ExclusiveStore
var _ ExclusiveStore = (*Store)(nil)
