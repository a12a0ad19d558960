// Package app wires configuration, storage, the progress service, the
// reconciliation engine and the optional message queue together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/felixgeelhaar/personal21/internal/config"
	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/progress"
	"github.com/felixgeelhaar/personal21/internal/queue"
	"github.com/felixgeelhaar/personal21/internal/reconcile"
	"github.com/felixgeelhaar/personal21/internal/remote"
	"github.com/felixgeelhaar/personal21/internal/storage/sqlite"
	"github.com/felixgeelhaar/personal21/internal/workout"
)

var (
	// ErrSyncDisabled is returned by sync operations when no remote is configured
	ErrSyncDisabled = errors.New("sync is not configured")
	// ErrQueueDisabled is returned by queue operations when RabbitMQ is not enabled
	ErrQueueDisabled = errors.New("queue is not enabled")
	// ErrUnknownUser is returned for sync jobs addressed to another user
	ErrUnknownUser = errors.New("sync job for unknown user")
)

// DatabaseFile is the SQLite file name inside the data directory
const DatabaseFile = "personal21.db"

// App holds the wired components of one local replica
type App struct {
	Config     *config.LocalConfig
	Repository *progress.Repository
	Service    *progress.Service
	Catalog    *workout.Catalog
	// Engine is nil when sync is disabled
	Engine *reconcile.Engine
	// Producer is nil when the queue is disabled
	Producer *queue.Producer

	events  *domain.EventDispatcher
	broker  *queue.Broker
	closers []func() error
	logger  *slog.Logger
}

// Option configures New
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
	remote remote.Store
}

// WithLogger sets the logger passed to every component
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the clock used for dates and sync stamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRemote replaces the configured remote store
func WithRemote(s remote.Store) Option {
	return func(o *options) { o.remote = s }
}

// New builds an App from cfg. dir is the configuration directory used to
// resolve the default data path.
func New(ctx context.Context, cfg *config.LocalConfig, dir string, opts ...Option) (*App, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config: cfg,
		events: domain.NewEventDispatcher(),
		logger: o.logger,
	}

	store, ledger, err := a.openStore(ctx, cfg.DataPath(dir))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Repository = progress.NewRepository(store, progress.DefaultKey, o.logger)
	a.Service = progress.NewService(a.Repository,
		progress.WithDispatcher(a.events),
		progress.WithMessages(progress.NewMessages(cfg.Locale)),
		progress.WithClock(o.now),
		progress.WithLogger(o.logger),
	)

	a.Catalog, err = workout.LoadCatalog(cfg.Workout.CatalogPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load workout catalog: %w", err)
	}

	if cfg.SyncEnabled() {
		rs := o.remote
		if rs == nil {
			rs, err = a.openRemote(ctx)
			if err != nil {
				a.Close()
				return nil, err
			}
		}
		a.Engine = reconcile.NewEngine(a.Repository, rs,
			reconcile.WithLedger(ledger),
			reconcile.WithDispatcher(a.events),
			reconcile.WithClock(o.now),
			reconcile.WithPushTimeout(time.Duration(cfg.Sync.PushTimeoutSeconds)*time.Second),
			reconcile.WithLogger(o.logger),
		)
		if cfg.Sync.AutoPush {
			a.Service.OnChange(a.pushOnChange)
		}
	}

	if cfg.Queue.Enabled {
		conn, err := queue.Dial(cfg.Queue.URL, queue.WithBrokerLogger(o.logger))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect queue: %w", err)
		}
		a.broker = conn
		a.closers = append(a.closers, conn.Close)
		a.Producer = queue.NewProducer(conn, o.logger)
		a.Producer.Forward(a.events, cfg.Sync.UserID, 5*time.Second)
	}

	o.logger.Debug("app ready",
		"backend", cfg.Storage.Backend,
		"remote", cfg.Remote.Kind,
		"sync", a.Engine != nil,
		"queue", a.Producer != nil,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, dataPath string) (progress.SnapshotStore, reconcile.SyncLedger, error) {
	switch a.Config.Storage.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := sqlite.Open(filepath.Join(dataPath, DatabaseFile), sqlite.WithLogger(a.logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if _, err := db.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		s := sqlite.NewProgressStore(db)
		return s, s, nil
	default:
		s, err := progress.NewStore(dataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open progress store: %w", err)
		}
		return s, s, nil
	}
}

func (a *App) openRemote(ctx context.Context) (remote.Store, error) {
	cfg := a.Config.Remote
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var base remote.Store
	switch cfg.Kind {
	case config.RemotePostgres:
		pool, err := remote.Connect(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		pg := remote.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure remote schema: %w", err)
		}
		base = pg
	case config.RemoteHTTP:
		base = remote.NewHTTPStore(remote.HTTPConfig{
			BaseURL: cfg.URL,
			APIKey:  cfg.APIKey,
			Token:   cfg.Token,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("%w: remote kind %q", ErrSyncDisabled, cfg.Kind)
	}

	rc := remote.DefaultResilientConfig()
	if cfg.RatePerSecond > 0 {
		rc.RatePerSecond = cfg.RatePerSecond
	}
	rc.Logger = a.logger
	r := remote.NewResilient(base, rc)
	a.closers = append(a.closers, r.Close)
	return r, nil
}

// pushOnChange uploads after every local mutation. Sync events are skipped
// so a synchronization does not trigger a second upload.
func (a *App) pushOnChange(event domain.Event) {
	if event.EventType() == domain.EventProgressSynced {
		return
	}
	a.Engine.Push(a.Config.Sync.UserID)
}

// Events returns the dispatcher shared by the service and the engine
func (a *App) Events() *domain.EventDispatcher {
	return a.events
}

// Synchronize reconciles the configured user with the remote replica
func (a *App) Synchronize(ctx context.Context) (*domain.ProgressSnapshot, error) {
	if a.Engine == nil {
		return nil, ErrSyncDisabled
	}
	return a.Engine.Synchronize(ctx, a.Config.Sync.UserID)
}

// SyncStatus reports the ledger state of the configured user
func (a *App) SyncStatus(ctx context.Context) (reconcile.Status, error) {
	if a.Engine == nil {
		return reconcile.Status{}, ErrSyncDisabled
	}
	return a.Engine.Status(ctx, a.Config.Sync.UserID)
}

// HandleSyncJob runs a queued sync request
func (a *App) HandleSyncJob(ctx context.Context, job *queue.SyncJob) (*queue.SyncResult, error) {
	if a.Engine == nil {
		return nil, ErrSyncDisabled
	}
	if job.UserID != a.Config.Sync.UserID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, job.UserID)
	}
	snap, err := a.Engine.Synchronize(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	return &queue.SyncResult{OverallProgress: progress.OverallProgress(snap)}, nil
}

// StartWorker consumes sync jobs until Close
func (a *App) StartWorker(ctx context.Context) error {
	if a.broker == nil {
		return ErrQueueDisabled
	}
	consumer := queue.NewConsumer(a.broker, a.HandleSyncJob, queue.ConsumerConfig{
		Workers: a.Config.Queue.Workers,
		Logger:  a.logger,
	})
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { consumer.Stop(); return nil })
	return nil
}

// RequestSync queues a sync job and waits for its result
func (a *App) RequestSync(ctx context.Context, reason string) (*queue.SyncResult, error) {
	if a.broker == nil {
		return nil, ErrQueueDisabled
	}
	results := queue.NewResultConsumer(a.broker)
	if err := results.Start(ctx); err != nil {
		return nil, err
	}
	defer results.Stop()
	return results.Await(ctx, a.Producer, queue.CreateSyncJob(a.Config.Sync.UserID, reason))
}

// NewWorkoutSession prepares a timer for day whose completion is recorded
// through the progress service
func (a *App) NewWorkoutSession(day int, opts ...workout.SessionOption) (*workout.Session, error) {
	def, err := a.Catalog.Day(day)
	if err != nil {
		return nil, err
	}
	record := workout.WithOnCompleted(func(r workout.Result) {
		if _, err := a.Service.CompleteWorkoutDay(context.Background(), r.Day, r.CaloriesBurned, r.TotalElapsed); err != nil {
			a.logger.Error("record workout failed", "day", r.Day, "error", err)
		}
	})
	opts = append([]workout.SessionOption{workout.WithSessionLogger(a.logger)}, opts...)
	return workout.NewSession(def, append(opts, record)...)
}

// Close waits for background pushes and releases every resource
func (a *App) Close() error {
	if a.Engine != nil {
		a.Engine.Wait()
	}
	var errs []error
	for _, closeFn := range slices.Backward(a.closers) {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
