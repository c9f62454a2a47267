package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultJobTimeout = time.Minute

// PurgeFunc removes stale rows and reports how many went away
type PurgeFunc func(ctx context.Context) (int64, error)

// Scheduler runs housekeeping jobs on cron schedules
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler whose specs accept an optional seconds field
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}
}

// AddPurge registers fn under schedule, e.g. "@every 15m" or "0 */5 * * * *"
func (s *Scheduler) AddPurge(schedule, name string, fn PurgeFunc) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runPurge(name, fn)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, name, err)
	}
	if s.logger != nil {
		s.logger.Info("🗓️ Housekeeping job scheduled", zap.String("job", name), zap.String("schedule", schedule))
	}
	return nil
}

func (s *Scheduler) runPurge(name string, fn PurgeFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Error("❌ Housekeeping job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("🧹 Housekeeping job finished",
		zap.String("job", name),
		zap.Int64("removed", n),
		zap.Duration("duration", time.Since(start)),
	)
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx expires
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
