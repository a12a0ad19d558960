package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// DefaultKey is the well-known key the snapshot is stored under
const DefaultKey = "personal21_progress"

// Repository owns the in-process snapshot and its durable local copy.
// Every write goes through Update so read-modify-save cycles never interleave.
type Repository struct {
	store  SnapshotStore
	key    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRepository creates a repository over store. An empty key selects DefaultKey.
func NewRepository(store SnapshotStore, key string, logger *slog.Logger) *Repository {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, key: key, logger: logger}
}

// Key returns the storage key of the snapshot
func (r *Repository) Key() string {
	return r.key
}

// Load returns the persisted snapshot with missing sub-records defaulted.
// It never fails: a store that cannot be read yields a fresh snapshot.
// Writers go through Update, which refuses to overwrite an unreadable document.
func (r *Repository) Load() *domain.ProgressSnapshot {
	snap, err := r.load(r.store)
	if err != nil {
		r.logger.Warn("progress snapshot unreadable, showing defaults", "key", r.key, "error", err)
		return domain.NewProgressSnapshot()
	}
	return snap
}

// Current is Load for callers that must not act on defaults standing in
// for a document the store failed to read
func (r *Repository) Current() (*domain.ProgressSnapshot, error) {
	return r.load(r.store)
}

// load reads the snapshot through store. An absent or undecodable document
// yields defaults; any other store failure is returned.
func (r *Repository) load(store SnapshotStore) (*domain.ProgressSnapshot, error) {
	snap := &domain.ProgressSnapshot{}
	err := store.Load(r.key, snap)
	switch {
	case err == nil:
		snap.Normalize()
		return snap, nil
	case errors.Is(err, ErrNotFound):
		return domain.NewProgressSnapshot(), nil
	case errors.Is(err, ErrCorrupt):
		r.logger.Warn("discarding corrupt progress snapshot", "key", r.key, "error", err)
		return domain.NewProgressSnapshot(), nil
	}
	return nil, fmt.Errorf("load snapshot: %w", err)
}

// Save overwrites the persisted snapshot
func (r *Repository) Save(snapshot *domain.ProgressSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exclusive(func(store SnapshotStore) error {
		return r.save(store, snapshot)
	})
}

func (r *Repository) save(store SnapshotStore, snapshot *domain.ProgressSnapshot) error {
	if err := store.Save(r.key, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// exclusive runs fn under the store's cross-process lock when it has one
func (r *Repository) exclusive(fn func(SnapshotStore) error) error {
	if ex, ok := r.store.(ExclusiveStore); ok {
		return ex.Exclusive(context.Background(), r.key, fn)
	}
	return fn(r.store)
}

// Update runs one atomic read-modify-save cycle. fn receives a private copy
// of the current snapshot and returns the next snapshot and whether it changed;
// unchanged results are not persisted. When the stored document cannot be
// read, fn is not called, nothing is written and the snapshot is nil.
func (r *Repository) Update(fn func(current *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool)) (*domain.ProgressSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current, result *domain.ProgressSnapshot
	err := r.exclusive(func(store SnapshotStore) error {
		var err error
		if current, err = r.load(store); err != nil {
			return err
		}
		next, changed := fn(current)
		if !changed {
			result = current
			return nil
		}
		if err := r.save(store, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return current, err
	}
	return result, nil
}
