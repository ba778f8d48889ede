package pairing

import (
	"context"
	"fmt"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration)

// Option configures a polling loop.
type Option func(*loopConfig)

type loopConfig struct {
	interval    time.Duration
	maxDuration time.Duration
	sleep       SleepFunc
	now         func() time.Time
}

func newLoopConfig(defaultInterval time.Duration, opts []Option) loopConfig {
	cfg := loopConfig{
		interval: defaultInterval,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithInterval sets the delay between polls. For QR pairing a zero value
// means the interval the provider returned with the challenge.
func WithInterval(d time.Duration) Option {
	return func(c *loopConfig) {
		c.interval = d
	}
}

// WithMaxDuration bounds the loop. Zero, the default, polls until cancelled.
func WithMaxDuration(d time.Duration) Option {
	return func(c *loopConfig) {
		c.maxDuration = d
	}
}

// WithSleep replaces the wait between polls.
func WithSleep(sleep SleepFunc) Option {
	return func(c *loopConfig) {
		c.sleep = sleep
	}
}

// WithClock replaces the clock used for the maximum duration.
func WithClock(now func() time.Time) Option {
	return func(c *loopConfig) {
		c.now = now
	}
}

// run repeats sleep-then-poll until poll reports done, poll fails, ctx is
// cancelled or the maximum duration elapses. Cancellation is observed before
// and after each sleep; a poll in flight is never interrupted.
func (c loopConfig) run(ctx context.Context, interval func() time.Duration, poll func(context.Context) (bool, error)) error {
	var deadline time.Time
	if c.maxDuration > 0 {
		deadline = c.now().Add(c.maxDuration)
	}

	for {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}

		c.sleep(ctx, interval())

		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		if !deadline.IsZero() && !c.now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrTimedOut, c.maxDuration)
		}

		done, err := poll(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
