package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/progress"
	"github.com/felixgeelhaar/personal21/internal/remote"
)

// SyncLedger records the outcome of reconciliations
type SyncLedger interface {
	RecordSync(rec progress.SyncRecord) error
	LastSync(userID string) (*progress.SyncRecord, error)
}

var _ SyncLedger = (*progress.Store)(nil)

// Engine reconciles the local replica with the remote one
type Engine struct {
	repo        *progress.Repository
	remote      remote.Store
	ledger      SyncLedger
	events      *domain.EventDispatcher
	now         func() time.Time
	pushTimeout time.Duration
	logger      *slog.Logger

	group  singleflight.Group
	pushes sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithLedger records every successful reconciliation
func WithLedger(l SyncLedger) Option {
	return func(e *Engine) { e.ledger = l }
}

// WithDispatcher publishes synced events
func WithDispatcher(d *domain.EventDispatcher) Option {
	return func(e *Engine) { e.events = d }
}

// WithClock overrides the clock used for syncedAt
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPushTimeout bounds each background push and each shared synchronization
func WithPushTimeout(d time.Duration) Option {
	return func(e *Engine) { e.pushTimeout = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a reconciliation engine
func NewEngine(repo *progress.Repository, store remote.Store, opts ...Option) *Engine {
	e := &Engine{
		repo:        repo,
		remote:      store,
		now:         time.Now,
		pushTimeout: 30 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Synchronize merges the remote replica into the local one, persists the
// result and uploads it. Overlapping calls for the same user share one run.
// The shared run is bounded by the push timeout rather than by any single
// caller, so a caller that gives up returns ctx.Err() without failing the
// others. On failure to fetch, local state is left untouched.
func (e *Engine) Synchronize(ctx context.Context, userID string) (*domain.ProgressSnapshot, error) {
	ch := e.group.DoChan(userID, func() (any, error) {
		e.pushes.Add(1)
		defer e.pushes.Done()

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.pushTimeout)
		defer cancel()
		return e.synchronize(runCtx, userID)
	})

	select {
	case <-ctx.Done():
		e.logger.Debug("caller left in-flight synchronization", "user_id", userID, "error", ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			e.logger.Debug("joined in-flight synchronization", "user_id", userID)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ProgressSnapshot).Clone(), nil
	}
}

func (e *Engine) synchronize(ctx context.Context, userID string) (*domain.ProgressSnapshot, error) {
	start := time.Now()

	remoteSnap, err := e.remote.GetProgress(ctx, userID)
	adopted := false
	switch {
	case errors.Is(err, remote.ErrNotFound):
		adopted = true
	case err != nil:
		e.logger.Warn("fetch remote progress failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("fetch remote progress: %w", err)
	}

	// merge into whatever local holds now, so mutations made during the
	// fetch are kept
	merged, err := e.repo.Update(func(current *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		if adopted {
			return current, false
		}
		next := Merge(current, remoteSnap)
		return next, !Equal(next, current)
	})
	if err != nil {
		return nil, fmt.Errorf("persist merged progress: %w", err)
	}

	syncedAt := e.now()
	if err := e.remote.PutProgress(ctx, userID, merged, syncedAt); err != nil {
		e.logger.Warn("push merged progress failed", "user_id", userID, "error", err)
		return merged, fmt.Errorf("push merged progress: %w", err)
	}

	e.record(userID, syncedAt, merged)
	if e.events != nil {
		e.events.Publish(domain.NewProgressSyncedEvent(userID, syncedAt, adopted))
	}

	e.logger.Info("progress synchronized",
		"user_id", userID,
		"adopted_local", adopted,
		"duration_ms", time.Since(start).Milliseconds())
	return merged, nil
}

// Push uploads the current local snapshot in the background. Failures are
// logged; the next Push or Synchronize is the retry.
func (e *Engine) Push(userID string) {
	snap, err := e.repo.Current()
	if err != nil {
		// never upload defaults in place of a document we could not read
		e.logger.Warn("push skipped", "user_id", userID, "error", err)
		return
	}

	e.pushes.Add(1)
	go func() {
		defer e.pushes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.pushTimeout)
		defer cancel()

		syncedAt := e.now()
		if err := e.remote.PutProgress(ctx, userID, snap, syncedAt); err != nil {
			e.logger.Warn("push progress failed", "user_id", userID, "error", err)
			return
		}
		e.record(userID, syncedAt, snap)
		e.logger.Debug("progress pushed", "user_id", userID)
	}()
}

// Wait blocks until in-flight pushes and synchronizations finish
func (e *Engine) Wait() {
	e.pushes.Wait()
}

// Apply merges a snapshot received out of band into the local replica.
// Late or repeated deliveries are harmless because Merge is idempotent.
func (e *Engine) Apply(ctx context.Context, snapshot *domain.ProgressSnapshot) (*domain.ProgressSnapshot, error) {
	return e.repo.Update(func(current *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		next := Merge(current, snapshot)
		return next, !Equal(next, current)
	})
}

// Status describes the sync state of one user
type Status struct {
	UserID       string     `json:"user_id"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	// Pending is true when local holds facts the remote did not have at
	// the last reconciliation
	Pending bool `json:"pending"`
}

// Status reports when the user was last reconciled
func (e *Engine) Status(ctx context.Context, userID string) (Status, error) {
	st := Status{UserID: userID, Pending: true}
	if e.ledger == nil {
		return st, nil
	}

	rec, err := e.ledger.LastSync(userID)
	if errors.Is(err, progress.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read sync ledger: %w", err)
	}

	at := rec.SyncedAt
	st.LastSyncedAt = &at
	if rec.Remote != nil {
		local := e.repo.Load()
		st.Pending = !Equal(Merge(local, rec.Remote), rec.Remote)
	}
	return st, nil
}

func (e *Engine) record(userID string, syncedAt time.Time, snap *domain.ProgressSnapshot) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.RecordSync(progress.SyncRecord{UserID: userID, SyncedAt: syncedAt, Remote: snap}); err != nil {
		e.logger.Warn("record sync failed", "user_id", userID, "error", err)
	}
}
