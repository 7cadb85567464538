package relay

import (
	"context"
	"time"
)

// Runner drives a started Controller with one-second ticks until it
// completes, is closed or ctx is cancelled.
type Runner struct {
	c     *Controller
	ticks <-chan time.Time
	stop  func()
}

type RunnerOption func(*Runner)

// WithTicks replaces the wall-clock ticker, typically with a channel a test
// sends on.
func WithTicks(ticks <-chan time.Time) RunnerOption {
	return func(r *Runner) {
		r.ticks = ticks
		r.stop = func() {}
	}
}

func NewRunner(c *Controller, opts ...RunnerOption) *Runner {
	r := &Runner{c: c}
	for _, opt := range opts {
		opt(r)
	}
	if r.ticks == nil {
		t := time.NewTicker(time.Second)
		r.ticks = t.C
		r.stop = t.Stop
	}
	return r
}

// Run blocks until the relay reaches Complete or Idle. Cancelling ctx closes
// the controller and returns ctx.Err(). A Stalled relay keeps the runner
// waiting for Retry or Close.
func (r *Runner) Run(ctx context.Context) error {
	defer r.stop()

	for {
		switch r.c.State().Phase {
		case Complete, Idle:
			return nil
		}

		select {
		case <-ctx.Done():
			r.c.Close()
			return ctx.Err()
		case _, ok := <-r.ticks:
			if !ok {
				return nil
			}
			r.c.Tick()
		}
	}
}
