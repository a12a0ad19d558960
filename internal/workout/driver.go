package workout

import (
	"context"
	"time"
)

// Driver delivers periodic ticks to a session
type Driver struct {
	session *Session
	ticks   func() (<-chan time.Time, func())
}

// NewDriver creates a driver ticking session every interval
func NewDriver(session *Session, interval time.Duration) *Driver {
	return &Driver{
		session: session,
		ticks: func() (<-chan time.Time, func()) {
			t := time.NewTicker(interval)
			return t.C, t.Stop
		},
	}
}

// NewDriverWithTicks creates a driver fed by an external tick source
func NewDriverWithTicks(session *Session, ticks <-chan time.Time) *Driver {
	return &Driver{
		session: session,
		ticks: func() (<-chan time.Time, func()) {
			return ticks, func() {}
		},
	}
}

// Run ticks a started session until it completes or ctx is done. A session
// that is idle, whether never started or canceled, ends the run with ErrCanceled.
func (d *Driver) Run(ctx context.Context) error {
	if d.session.State().Phase == PhaseIdle {
		return ErrCanceled
	}

	c, stop := d.ticks()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-c:
			if !ok {
				return nil
			}
			switch d.session.Tick().Phase {
			case PhaseCompleted:
				return nil
			case PhaseIdle:
				return ErrCanceled
			}
		}
	}
}
