package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// Schema creates the remote table when it does not exist
const Schema = `
CREATE TABLE IF NOT EXISTS user_progress (
	user_id       TEXT PRIMARY KEY,
	progress_data JSONB NOT NULL,
	synced_at     TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL remote store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect opens a pool for dsn and verifies connectivity
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the user_progress table
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create user_progress: %w", err)
	}
	return nil
}

// GetProgress retrieves the stored document for a user
func (s *PostgresStore) GetProgress(ctx context.Context, userID string) (*domain.ProgressSnapshot, error) {
	query := `SELECT progress_data FROM user_progress WHERE user_id = $1`

	var data []byte
	err := s.pool.QueryRow(ctx, query, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}

	snap := &domain.ProgressSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// PutProgress upserts the document for a user
func (s *PostgresStore) PutProgress(ctx context.Context, userID string, snapshot *domain.ProgressSnapshot, syncedAt time.Time) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	query := `
		INSERT INTO user_progress (user_id, progress_data, synced_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
			progress_data = EXCLUDED.progress_data,
			synced_at = EXCLUDED.synced_at,
			updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, userID, data, syncedAt); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}
