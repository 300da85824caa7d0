// Package scheduler turns the cron expressions of scheduled playbooks into trigger events.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukex/deskflow/pkg/eventbus"
	"github.com/dukex/deskflow/pkg/events"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// DefaultRefreshInterval is how often the set of scheduled playbooks is reloaded.
const DefaultRefreshInterval = time.Minute

// Job is one cron entry. Playbooks of a user sharing an expression share a job.
type Job struct {
	UserID string
	Cron   string
}

type Scheduler struct {
	playbooks       persistence.PlaybookRepository
	publisher       eventbus.EventPublisher
	logger          *slog.Logger
	refreshInterval time.Duration
	now             func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[Job]cron.EntryID
}

type Option func(*Scheduler)

func WithRefreshInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.refreshInterval = interval
		}
	}
}

func New(playbooks persistence.PlaybookRepository, publisher eventbus.EventPublisher, logger *slog.Logger, opts ...Option) *Scheduler {
	logger = logger.With("module", "scheduler")

	s := &Scheduler{
		playbooks:       playbooks,
		publisher:       publisher,
		logger:          logger,
		refreshInterval: DefaultRefreshInterval,
		now:             time.Now,
		entries:         make(map[Job]cron.EntryID),
	}

	for _, opt := range opts {
		opt(s)
	}

	cronLog := cronLogger{logger: logger}
	s.cron = cron.New(cron.WithLogger(cronLog), cron.WithChain(
		cron.SkipIfStillRunning(cronLog),
		cron.Recover(cronLog),
	))

	return s
}

// Start loads the schedules, starts the cron runner and keeps the schedules fresh until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		return err
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.refreshInterval), func() {
		if err := s.Sync(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to refresh schedules", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "jobs", len(s.Jobs()))

	return nil
}

// Stop stops the cron runner and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Sync reconciles cron entries with the enabled scheduled playbooks.
func (s *Scheduler) Sync(ctx context.Context) error {
	playbooks, err := s.playbooks.EnabledByTriggerType(ctx, models.TriggerTypeScheduled)
	if err != nil {
		return fmt.Errorf("failed to load scheduled playbooks: %w", err)
	}

	wanted := make(map[Job]bool)

	for _, playbook := range playbooks {
		if !playbook.Enabled || playbook.Trigger.Config.Cron == "" {
			continue
		}

		wanted[Job{UserID: playbook.UserID, Cron: playbook.Trigger.Config.Cron}] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for job, entryID := range s.entries {
		if !wanted[job] {
			s.cron.Remove(entryID)
			delete(s.entries, job)
			s.logger.InfoContext(ctx, "Removed schedule", "user_id", job.UserID, "cron", job.Cron)
		}
	}

	for job := range wanted {
		if _, exists := s.entries[job]; exists {
			continue
		}

		entryID, err := s.cron.AddFunc(job.Cron, func() {
			if err := s.Fire(ctx, job); err != nil {
				s.logger.ErrorContext(ctx, "Failed to publish scheduled trigger", "user_id", job.UserID, "cron", job.Cron, "error", err)
			}
		})
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid schedule", "user_id", job.UserID, "cron", job.Cron, "error", err)

			continue
		}

		s.entries[job] = entryID
		s.logger.InfoContext(ctx, "Added schedule", "user_id", job.UserID, "cron", job.Cron)
	}

	return nil
}

// Jobs returns the active jobs ordered by user and expression.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.entries))
	for job := range s.entries {
		jobs = append(jobs, job)
	}

	slices.SortFunc(jobs, func(a, b Job) int {
		return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.Cron, b.Cron))
	})

	return jobs
}

// Fire publishes the scheduled trigger of job. Only playbooks whose cron equals job.Cron will match it.
func (s *Scheduler) Fire(ctx context.Context, job Job) error {
	trigger := models.TriggerEvent{
		Type:     models.TriggerTypeScheduled,
		Schedule: job.Cron,
		UserID:   job.UserID,
		Data: map[string]any{
			"scheduled_at": s.now().UTC().Format(time.RFC3339),
			"cron":         job.Cron,
		},
	}

	return s.publisher.Publish(ctx, job.UserID, events.NewTriggerReceived(trigger))
}

// cronLogger routes robfig/cron logs to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
