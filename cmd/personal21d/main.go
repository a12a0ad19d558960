package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/config"
	"github.com/felixgeelhaar/personal21/internal/daemon"
)

const (
	pidFileName = "personal21d.pid"
	logFileName = "personal21d.log"

	shutdownGrace = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("personal21d exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logFile, err := newLogger(dir, parseLogLevel(cfg.Daemon.LogLevel), os.Stderr)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	release, err := acquirePID(filepath.Join(dir, pidFileName))
	if err != nil {
		return err
	}
	defer release()

	a, err := app.New(ctx, cfg, dir, app.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	if cfg.Queue.Enabled {
		if err := a.StartWorker(ctx); err != nil {
			return fmt.Errorf("start sync worker: %w", err)
		}
	}

	// local state stays authoritative when the first pull fails
	if a.Engine != nil {
		go func() {
			if _, err := a.Synchronize(ctx); err != nil {
				logger.Warn("startup sync failed", "error", err)
			}
		}()
	}

	srv, err := daemon.NewServer(ctx, daemon.ServerConfig{
		App:          a,
		TickInterval: time.Duration(cfg.Workout.TickMillis) * time.Millisecond,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	served := make(chan error, 1)
	go func() { served <- srv.Start() }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("personal21d stopped")
	return nil
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger writes JSON records to logs/personal21d.log and text records
// to console, which is what a foreground run shows.
func newLogger(dir string, level slog.Level, console io.Writer) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(filepath.Join(dir, "logs", logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(fanout{
		slog.NewJSONHandler(f, opts),
		slog.NewTextHandler(console, opts),
	}), f, nil
}

// acquirePID records this process in path. The returned func removes it.
func acquirePID(path string) (func(), error) {
	if err := os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return func() { os.Remove(path) }, nil
}

// fanout sends each record to every handler that accepts its level
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
