package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/storage/local"
)

const (
	collectionProgress = "progress"
	collectionSync     = "sync"
)

// Store persists snapshots as JSON documents on the local filesystem
type Store struct {
	dir       *local.Dir
	snapshots *local.Collection[*domain.ProgressSnapshot]
	ledger    *local.Collection[SyncRecord]
}

// NewStore creates a new JSON snapshot store rooted at basePath
func NewStore(basePath string) (*Store, error) {
	dir, err := local.Open(basePath)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	return &Store{
		dir:       dir,
		snapshots: local.NewCollection[*domain.ProgressSnapshot](dir, collectionProgress),
		ledger:    local.NewCollection[SyncRecord](dir, collectionSync),
	}, nil
}

// Load decodes the document stored under key into dst
func (s *Store) Load(key string, dst *domain.ProgressSnapshot) error {
	snap, err := s.snapshots.Get(key)
	if errors.Is(err, local.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, local.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("%w: %s is null", ErrCorrupt, key)
	}
	*dst = *snap
	return nil
}

// Save overwrites the document stored under key
func (s *Store) Save(key string, snapshot *domain.ProgressSnapshot) error {
	return s.snapshots.Put(key, snapshot)
}

// Exclusive runs fn holding a lock file that every process opening the
// same directory honors
func (s *Store) Exclusive(ctx context.Context, key string, fn func(tx SnapshotStore) error) error {
	unlock, err := s.dir.Lock(ctx, collectionProgress+"-"+key)
	if err != nil {
		return err
	}
	return errors.Join(fn(s), unlock())
}

// SyncRecord is the last successful reconciliation for one user
type SyncRecord struct {
	UserID   string                   `json:"user_id"`
	SyncedAt time.Time                `json:"synced_at"`
	Remote   *domain.ProgressSnapshot `json:"remote,omitempty"`
}

// RecordSync stores the outcome of a reconciliation
func (s *Store) RecordSync(rec SyncRecord) error {
	return s.ledger.Put(rec.UserID, rec)
}

// LastSync returns the last reconciliation for a user
func (s *Store) LastSync(userID string) (*SyncRecord, error) {
	rec, err := s.ledger.Get(userID)
	if errors.Is(err, local.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
