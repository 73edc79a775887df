package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	DefaultTickLength = time.Second * 2
)

type Manager interface {
	Tick(context.Context) error
}

// Driver ticks its managers on a fixed interval until the context ends.
type Driver struct {
	tickLength time.Duration
	managers   []Manager
	now        func() time.Time
	overruns   atomic.Uint64
}

func NewDriver(managers []Manager, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		managers:   managers,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
		}
	}
}

// Tick runs every manager once, in order. A manager that takes longer than
// a whole tick is logged, since the ticker drops the ticks it misses.
func (d *Driver) Tick(ctx context.Context) error {
	for _, m := range d.managers {
		start := d.now()
		err := m.Tick(ctx)
		elapsed := d.now().Sub(start)

		if err != nil {
			return fmt.Errorf("ticking %T: %w", m, err)
		}

		if elapsed > d.tickLength {
			d.overruns.Add(1)
			slog.WarnContext(ctx, "manager tick overran", "manager", fmt.Sprintf("%T", m), "elapsed", elapsed, "tick_length", d.tickLength)
		} else {
			slog.DebugContext(ctx, "manager ticked", "manager", fmt.Sprintf("%T", m), "elapsed", elapsed)
		}
	}
	return nil
}

// Overruns counts manager ticks that took longer than the tick length.
func (d *Driver) Overruns() uint64 {
	return d.overruns.Load()
}
