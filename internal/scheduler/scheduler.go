package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs recurring jobs identified by a unique tag.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

// New creates a new Scheduler. Jobs registered before Start run once the
// scheduler is started.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
	}
}

// Every runs job every interval, starting one interval from now. A run that
// is still in progress when the next one is due causes that run to be skipped
// rather than overlapped.
func (s *Scheduler) Every(tag string, interval time.Duration, job func()) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: invalid interval %s for %s", interval, tag)
	}

	_, err := s.scheduler.Every(interval).
		Tag(tag).
		SingletonMode().
		WaitForSchedule().
		Do(func() {
			s.logger.Debug("running job", "tag", tag)
			job()
		})
	if err != nil {
		return fmt.Errorf("scheduler: schedule %s: %w", tag, err)
	}

	s.logger.Info("job scheduled", "tag", tag, "interval", interval)
	return nil
}

// Cancel removes the job registered under tag. A run already in progress is
// not interrupted.
func (s *Scheduler) Cancel(tag string) error {
	if err := s.scheduler.RemoveByTag(tag); err != nil {
		return fmt.Errorf("scheduler: cancel %s: %w", tag, err)
	}
	s.logger.Info("job cancelled", "tag", tag)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// Start starts the underlying scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
