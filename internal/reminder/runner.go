package reminder

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNoSchedule is returned when a Runner is started without a schedule.
var ErrNoSchedule = errors.New("reminder: runner has no schedule")

// Runner triggers sweeps on a schedule in the background. Overlap between a
// scheduled trigger and a manual one is already handled by the sweeper's
// single-flight lock; the runner just keeps time.
type Runner struct {
	sweeper  *Sweeper
	schedule Schedule
	log      *slog.Logger
}

// NewRunner creates a background sweep runner.
func NewRunner(sweeper *Sweeper, schedule Schedule, log *slog.Logger) *Runner {
	if sweeper == nil {
		panic("reminder: Sweeper is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{sweeper: sweeper, schedule: schedule, log: log}
}

// Start blocks, running a sweep at each scheduled instant until the context
// is cancelled. Sweep errors are logged and the runner keeps going; only
// context cancellation stops it.
func (r *Runner) Start(ctx context.Context) error {
	if r.schedule == nil {
		return ErrNoSchedule
	}

	r.log.InfoContext(ctx, "reminder runner started",
		slog.String("schedule", r.schedule.String()))

	timer := time.NewTimer(time.Until(r.schedule.Next(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoContext(ctx, "reminder runner shutting down")
			return ctx.Err()
		case <-timer.C:
			if _, err := r.sweeper.Sweep(ctx); err != nil {
				r.log.ErrorContext(ctx, "scheduled sweep failed", slog.Any("error", err))
			}
			timer.Reset(time.Until(r.schedule.Next(time.Now())))
		}
	}
}
