package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

const (
	lockExt = ".lock"

	// a lock file older than this is left over from a crashed holder
	staleLockAge = 30 * time.Second
)

// LockConfig tunes how long Lock waits for a lock held by someone else
type LockConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultLockConfig waits a few seconds in total
func DefaultLockConfig() LockConfig {
	return LockConfig{Attempts: 40, InitialDelay: 5 * time.Millisecond, MaxDelay: 250 * time.Millisecond}
}

// Lock takes the named lock shared by every process using root. The lock
// is a file created exclusively; unlock removes it.
func (d *Dir) Lock(ctx context.Context, name string) (unlock func() error, err error) {
	return d.LockWith(ctx, name, DefaultLockConfig())
}

// LockWith is Lock with explicit wait settings
func (d *Dir) LockWith(ctx context.Context, name string, cfg LockConfig) (func() error, error) {
	if err := checkKey(name); err != nil {
		return nil, err
	}
	path := filepath.Join(d.root, "."+name+lockExt)

	acquire := retry.New[struct{}](retry.Config{
		MaxAttempts:     max(cfg.Attempts, 1),
		InitialDelay:    cfg.InitialDelay,
		MaxDelay:        cfg.MaxDelay,
		Multiplier:      2.0,
		BackoffPolicy:   retry.BackoffExponential,
		RetryableErrors: []error{ErrLocked},
	})
	_, err := acquire.Do(ctx, func(context.Context) (struct{}, error) {
		return struct{}{}, tryLock(path)
	})
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}

	return func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unlock %s: %w", name, err)
		}
		return nil
	}, nil
}

func tryLock(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err == nil {
		_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
		return errors.Join(werr, f.Close())
	}
	if !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create lock file: %w", err)
	}

	info, statErr := os.Stat(path)
	if statErr == nil && time.Since(info.ModTime()) > staleLockAge {
		// break it and let the next attempt race for it
		os.Remove(path)
	}
	return ErrLocked
}
