package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrUnavailable marks a transient outage of the polled system.
var ErrUnavailable = errors.New("source unavailable")

// Unavailable wraps err so that it matches ErrUnavailable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Runner repeats a cycle until its context is canceled.
type Runner struct {
	// Name is used in log fields.
	Name string
	// Interval is the sleep between two completed cycles.
	Interval time.Duration
	// RetryWait is the delay between probes during an outage.
	RetryWait time.Duration
	// ResetAfter is the outage length after which Reset runs. Zero disables it.
	ResetAfter time.Duration

	// Cycle runs one complete poll.
	Cycle func(ctx context.Context) error
	// Probe checks availability. A nil Probe waits RetryWait once.
	Probe func(ctx context.Context) error
	// Reset reloads state after a long outage. Optional.
	Reset func(ctx context.Context) error

	Logger *zap.Logger
}

// Run executes cycles until ctx is canceled, which is not an error.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger.With(zap.String("runner", r.Name))
	logger.Info("Runner started", zap.Duration("interval", r.Interval))

	for {
		start := time.Now()
		err := r.Cycle(ctx)
		switch {
		case ctx.Err() != nil:
			logger.Info("Runner stopped")
			return nil
		case errors.Is(err, ErrUnavailable):
			logger.Warn("Source unavailable, waiting for it to come back", zap.Error(err))
			if err := r.recover(ctx, logger); err != nil {
				if ctx.Err() != nil {
					logger.Info("Runner stopped")
					return nil
				}
				return err
			}
			continue
		case err != nil:
			return fmt.Errorf("%s cycle failed: %w", r.Name, err)
		}

		logger.Debug("Cycle completed", zap.Duration("duration", time.Since(start)))

		select {
		case <-ctx.Done():
			logger.Info("Runner stopped")
			return nil
		case <-time.After(r.Interval):
		}
	}
}

// recover waits RetryWait, blocks until the probe succeeds, then runs Reset
// when the outage exceeded ResetAfter.
func (r *Runner) recover(ctx context.Context, logger *zap.Logger) error {
	started := time.Now()

	// A probe can pass while the cycle keeps failing, so the cycle is never
	// rerun before RetryWait has elapsed.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.RetryWait):
	}

	probe := r.Probe
	if probe == nil {
		probe = func(context.Context) error {
			return nil
		}
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := probe(ctx)
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(r.RetryWait)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("Still unavailable",
				zap.Duration("outage", time.Since(started)),
				zap.Duration("next_probe", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("%s availability probe failed: %w", r.Name, err)
	}

	outage := time.Since(started)
	logger.Info("Source available again", zap.Duration("outage", outage))

	if r.Reset != nil && r.ResetAfter > 0 && outage >= r.ResetAfter {
		logger.Warn("Outage exceeded reset threshold, reloading state", zap.Duration("threshold", r.ResetAfter))
		if err := r.Reset(ctx); err != nil {
			return fmt.Errorf("%s reset failed: %w", r.Name, err)
		}
	}
	return nil
}
