package sqlite

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/personal21/internal/storage/migrations"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the replica database: snapshots plus the sync ledger.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger routes migration logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// migration is one numbered schema file.
type migration struct {
	version int
	name    string
}

// dsn builds the go-sqlite3 connection string for path.
func dsn(file string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "ON")
	q.Set("_busy_timeout", "5000")
	q.Set("_txlock", "immediate")
	return "file:" + file + "?" + q.Encode()
}

// Open connects to the database at file. The pool is pinned to a single
// connection so writes from the app and the sync worker serialize.
func Open(file string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn(file))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping sqlite: %w", err), conn.Close())
	}

	db := &DB{DB: conn, logger: slog.Default()}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Migrate brings the schema up to the newest embedded migration and
// returns how many files it applied.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	const bootstrap = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`
	if _, err := db.ExecContext(ctx, bootstrap); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := db.Version(ctx)
	if err != nil {
		return 0, err
	}

	pending, err := pendingMigrations(migrations.FS, current)
	if err != nil {
		return 0, err
	}

	for _, m := range pending {
		if err := db.apply(ctx, m); err != nil {
			return 0, err
		}
		db.logger.Info("schema migrated", "file", m.name, "version", m.version)
	}
	return len(pending), nil
}

func (db *DB) apply(ctx context.Context, m migration) error {
	body, err := fs.ReadFile(migrations.FS, m.name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

// Version reports the highest applied migration, 0 for a fresh file.
func (db *DB) Version(ctx context.Context) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// pendingMigrations lists the *.sql files in fsys newer than current,
// ordered by version.
func pendingMigrations(fsys fs.FS, current int) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var out []migration
	for _, name := range names {
		v, err := parseVersion(name)
		if err != nil {
			return nil, err
		}
		if v > current {
			out = append(out, migration{version: v, name: name})
		}
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return out, nil
}

// parseVersion reads the numeric prefix of names like 002_sync_ledger.sql.
func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(path.Base(name), "_")
	if !ok {
		return 0, fmt.Errorf("migration %q: missing version prefix", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("migration %q: bad version %q", name, prefix)
	}
	return v, nil
}
