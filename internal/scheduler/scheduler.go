package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"portfolio-assistant/internal/logger"
)

// DefaultReportSchedule fires every day at 21:00 UTC.
const DefaultReportSchedule = "0 21 * * *"

// Scheduler runs the daily usage report.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
	entry      cron.EntryID
}

// New creates a scheduler for schedule, a standard five-field cron expression
// evaluated in UTC. An empty schedule means DefaultReportSchedule.
func New(schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultReportSchedule
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetReportFunction sets the job run on every tick.
func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		logger.L().Warn("scheduler_no_report_function")
		return nil
	}
	id, err := s.cron.AddFunc(s.schedule, s.runReport)
	if err != nil {
		return err
	}
	s.entry = id
	s.cron.Start()
	logger.L().Info("scheduler_started", zap.String("schedule", s.schedule), zap.Time("next", s.Next()))
	return nil
}

func (s *Scheduler) runReport() {
	logger.L().Info("daily_report_triggered")
	if err := s.reportFunc(s.ctx); err != nil {
		logger.L().Error("daily_report_failed", zap.Error(err))
	}
}

// RunNow runs the report job once, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if s.reportFunc == nil {
		return errors.New("scheduler: report function not set")
	}
	return s.reportFunc(ctx)
}

// Next returns the next fire time, or the zero time when not started.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop waits for a running job to finish, then cancels its context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	logger.L().Info("scheduler_stopped")
}

// IsRunning reports whether a job is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
