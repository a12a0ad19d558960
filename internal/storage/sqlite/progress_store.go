package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/progress"
	"github.com/sqlc-dev/pqtype"
)

// querier is the part of *sql.DB and *sql.Tx the store uses
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// ProgressStore implements snapshot persistence backed by SQLite.
type ProgressStore struct {
	db *DB
	q  querier
}

var _ progress.ExclusiveStore = (*ProgressStore)(nil)

// NewProgressStore creates a new SQLite-backed snapshot store.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db, q: db}
}

// Exclusive runs fn inside one write transaction. Transactions begin
// IMMEDIATE, so other connections to the file, in this process or another,
// wait for the commit instead of interleaving their read-modify-save.
func (s *ProgressStore) Exclusive(ctx context.Context, key string, fn func(tx progress.SnapshotStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ProgressStore{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return nil
}

// Save persists a snapshot (insert or update).
func (s *ProgressStore) Save(key string, snapshot *domain.ProgressSnapshot) error {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.q.Exec(`
		INSERT INTO snapshots (key, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			document=excluded.document,
			updated_at=excluded.updated_at`,
		key, doc, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Load decodes the snapshot stored under key into dst.
func (s *ProgressStore) Load(key string, dst *domain.ProgressSnapshot) error {
	var doc []byte
	err := s.q.QueryRow(`SELECT document FROM snapshots WHERE key = ?`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return progress.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query snapshot: %w", err)
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("%w: %w", progress.ErrCorrupt, err)
	}
	return nil
}

// RecordSync stores the outcome of a reconciliation.
func (s *ProgressStore) RecordSync(rec progress.SyncRecord) error {
	var remote pqtype.NullRawMessage
	if rec.Remote != nil {
		data, err := json.Marshal(rec.Remote)
		if err != nil {
			return fmt.Errorf("marshal remote snapshot: %w", err)
		}
		remote = pqtype.NullRawMessage{RawMessage: data, Valid: true}
	}

	_, err := s.q.Exec(`
		INSERT INTO sync_ledger (user_id, synced_at, remote_document)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			synced_at=excluded.synced_at,
			remote_document=excluded.remote_document`,
		rec.UserID, rec.SyncedAt.UTC(), remote,
	)
	if err != nil {
		return fmt.Errorf("upsert sync record: %w", err)
	}
	return nil
}

// LastSync returns the last reconciliation recorded for a user.
func (s *ProgressStore) LastSync(userID string) (*progress.SyncRecord, error) {
	var (
		rec    = progress.SyncRecord{UserID: userID}
		remote pqtype.NullRawMessage
	)
	err := s.q.QueryRow(`
		SELECT synced_at, remote_document
		FROM sync_ledger WHERE user_id = ?`, userID).Scan(&rec.SyncedAt, &remote)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sync record: %w", err)
	}

	if remote.Valid {
		var snap domain.ProgressSnapshot
		if err := json.Unmarshal(remote.RawMessage, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal remote snapshot: %w", err)
		}
		snap.Normalize()
		rec.Remote = &snap
	}
	return &rec, nil
}
