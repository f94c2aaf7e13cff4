package scheduler

import (
	"context"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/usecase"
	"TurtleStock/pkg/config"
	"TurtleStock/pkg/logger"
)

// Scheduler fires the batch runner at fixed wall-clock times in the market
// timezone: a primary run after the close and a backup run before the next
// open. The run lock makes the backup a no-op when the primary succeeded on
// another instance, so overlapping deployments stay safe.
type Scheduler struct {
	runner *usecase.BatchRunner
	loc    *time.Location
	slots  []config.Clock
	log    *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

func New(runner *usecase.BatchRunner, timezone string, slots []config.Clock, log *logger.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errs.Validation("unknown timezone %q", timezone).WithError(err)
	}
	return &Scheduler{
		runner: runner,
		loc:    loc,
		slots:  slots,
		log:    log,
		now:    time.Now,
	}, nil
}

// Run blocks until ctx is cancelled, triggering one batch run per slot per
// day. A slot that finds a run already in flight is skipped quietly.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := NextSlot(s.now().In(s.loc), s.slots)
		s.log.Info("next scheduled run", logger.String("at", next.Format(time.RFC3339)))

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		if _, err := s.runner.Run(ctx, models.TriggerScheduled); err != nil {
			if errs.IsKind(err, errs.KindConflict) {
				s.log.Info("scheduled run skipped, another run active")
			} else {
				s.log.Error("scheduled run failed", logger.Error(err))
			}
		}
	}
}

// NextSlot returns the earliest slot strictly after now, today or tomorrow,
// in now's location.
func NextSlot(now time.Time, slots []config.Clock) time.Time {
	var best time.Time
	for _, slot := range slots {
		at := time.Date(now.Year(), now.Month(), now.Day(), slot.Hour, slot.Minute, 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		if best.IsZero() || at.Before(best) {
			best = at
		}
	}
	return best
}
