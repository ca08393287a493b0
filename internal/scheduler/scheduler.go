package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/langbot/internal/audio"
	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/metrics"
	"github.com/example/langbot/pkg/models"
)

const (
	jobTimeout     = 5 * time.Minute
	sweepAt        = "00:01"
	cleanupEvery   = 6 * time.Hour
	defaultFileAge = 24 * time.Hour
)

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(ctx context.Context, user models.User) error
}

// Progress is the part of the progression engine the jobs drive
type Progress interface {
	UsersForReminder(ctx context.Context) ([]models.User, error)
	SweepStreaks(ctx context.Context) (int, error)
	RefreshRanks(ctx context.Context) error
}

// Options configures job times and cleanup targets
type Options struct {
	ReminderHour   int
	ReminderMinute int
	Location       *time.Location
	CleanupDirs    []string
	FileMaxAge     time.Duration
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	progress  Progress
	notifier  Notifier
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(progress Progress, notifier Notifier, opts Options, log *logger.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FileMaxAge <= 0 {
		opts.FileMaxAge = defaultFileAge
	}
	s := gocron.NewScheduler(opts.Location)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		progress:  progress,
		notifier:  notifier,
		opts:      opts,
		log:       log.With("component", "scheduler"),
		now:       time.Now,
	}
}

// Start registers all jobs and runs them in the background
func (s *Scheduler) Start() error {
	if err := s.register(); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.log.Info("Scheduler started", "jobs", len(s.scheduler.Jobs()))
	return nil
}

func (s *Scheduler) register() error {
	reminderAt := fmt.Sprintf("%02d:%02d", s.opts.ReminderHour, s.opts.ReminderMinute)
	if _, err := s.scheduler.Every(1).Day().At(reminderAt).Do(s.run, "reminders", s.SendReminders); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	if _, err := s.scheduler.Every(1).Day().At(sweepAt).Do(s.run, "streaks", s.SweepStreaks); err != nil {
		return fmt.Errorf("failed to schedule streak sweep: %w", err)
	}
	if _, err := s.scheduler.Every(1).Hour().Do(s.run, "leaderboard", s.RefreshLeaderboard); err != nil {
		return fmt.Errorf("failed to schedule leaderboard refresh: %w", err)
	}
	if _, err := s.scheduler.Every(cleanupEvery).Do(s.run, "cleanup", s.CleanupFiles); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		metrics.JobRuns.WithLabelValues(name, "error").Inc()
		s.log.Error("Scheduled job failed", "job", name, "error", err)
		return
	}
	metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	s.log.Debug("Scheduled job finished", "job", name, "took", time.Since(start))
}

// SendReminders notifies users who opted in and have not been active today.
// A failed delivery is logged and does not stop the rest.
func (s *Scheduler) SendReminders(ctx context.Context) error {
	users, err := s.progress.UsersForReminder(ctx)
	if err != nil {
		return fmt.Errorf("failed to get users for reminders: %w", err)
	}

	sent := 0
	for _, u := range users {
		if err := s.notifier.SendReminder(ctx, u); err != nil {
			s.log.Warn("Failed to send reminder", "user_id", u.ID, "error", err)
			continue
		}
		sent++
	}
	s.log.Info("Daily reminders sent", "sent", sent, "eligible", len(users))
	return nil
}

// SweepStreaks resets streaks of users who missed a day
func (s *Scheduler) SweepStreaks(ctx context.Context) error {
	n, err := s.progress.SweepStreaks(ctx)
	if err != nil {
		return err
	}
	s.log.Info("Streaks updated", "changed", n)
	return nil
}

// RefreshLeaderboard rebuilds leaderboard ranks
func (s *Scheduler) RefreshLeaderboard(ctx context.Context) error {
	return s.progress.RefreshRanks(ctx)
}

// CleanupFiles removes old generated audio and downloaded voice files
func (s *Scheduler) CleanupFiles(context.Context) error {
	total := 0
	for _, dir := range s.opts.CleanupDirs {
		n, err := audio.CleanupOldFiles(dir, s.opts.FileMaxAge, s.now())
		total += n
		if err != nil {
			return err
		}
	}
	s.log.Info("Cleanup task completed", "removed", total)
	return nil
}
