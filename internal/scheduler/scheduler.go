// Package scheduler owns the recurring sync jobs. Each job is a cron entry
// bound to one of four canned behaviors; job rows are persisted through the
// ledger so history survives stop and restart.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/insightdash/syncengine/internal/ledger"
	"github.com/insightdash/syncengine/internal/models"
	"github.com/insightdash/syncengine/internal/orchestrator"
)

// logRetention is how long sync history is kept before the purge job
// removes it.
const logRetention = 30 * 24 * time.Hour

// InvalidScheduleError reports a cron expression the parser rejected.
type InvalidScheduleError struct {
	Schedule string
	Err      error
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule %q: %v", e.Schedule, e.Err)
}

func (e *InvalidScheduleError) Unwrap() error { return e.Err }

// JobNotFoundError reports a stop against a job id with no live entry and
// no persisted row.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// Scheduler maps job ids to live cron entries. Creating an existing job id
// replaces its entry; stopping keeps the persisted row for audit.
type Scheduler struct {
	orch        *orchestrator.Orchestrator
	ledger      ledger.SyncLedger
	logger      *slog.Logger
	criticalIDs []string

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// New builds a scheduler. criticalIDs names the connectors the
// sync-critical behavior targets.
func New(orch *orchestrator.Orchestrator, led ledger.SyncLedger, logger *slog.Logger, criticalIDs []string) *Scheduler {
	return &Scheduler{
		orch:        orch,
		ledger:      led,
		logger:      logger,
		criticalIDs: criticalIDs,
		cron:        cron.New(),
		entries:     make(map[string]cron.EntryID),
	}
}

// Start begins firing schedules. Safe to call once after jobs are created.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Shutdown stops the cron runner and waits for in-flight firings.
func (s *Scheduler) Shutdown() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// CreateJob validates and registers one recurring job, persisting its row.
// Creating a job id that already has a live entry replaces the entry, so
// the call is safe to repeat with an updated schedule.
func (s *Scheduler) CreateJob(ctx context.Context, job models.SyncJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return &InvalidScheduleError{Schedule: job.Schedule, Err: err}
	}

	switch job.Type {
	case models.JobSyncAll, models.JobSyncCritical, models.JobPurgeLogs:
	case models.JobSyncConnector:
		if job.ConnectorID == "" {
			return fmt.Errorf("job %s: sync-connector jobs need a connector id", job.JobID)
		}
	default:
		return fmt.Errorf("job %s: unknown job type %q", job.JobID, job.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.entries[job.JobID]; exists {
		s.cron.Remove(old)
	}

	entryID, err := s.cron.AddFunc(job.Schedule, func() { s.runJob(job) })
	if err != nil {
		return &InvalidScheduleError{Schedule: job.Schedule, Err: err}
	}
	s.entries[job.JobID] = entryID

	now := time.Now()
	job.IsActive = true
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if err := s.ledger.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("persisting job %s: %w", job.JobID, err)
	}

	s.logger.Info("job scheduled", "job", job.JobID, "schedule", job.Schedule, "type", job.Type)
	return nil
}

// StopJob removes the live entry and marks the persisted row inactive. The
// row itself stays for audit.
func (s *Scheduler) StopJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	entryID, live := s.entries[jobID]
	if live {
		s.cron.Remove(entryID)
		delete(s.entries, jobID)
	}
	s.mu.Unlock()

	err := s.ledger.SetJobActive(ctx, jobID, false)
	if errors.Is(err, ledger.ErrJobNotFound) {
		if !live {
			return &JobNotFoundError{JobID: jobID}
		}
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("job stopped", "job", jobID)
	return nil
}

// StopAll removes every live entry and marks their rows inactive.
func (s *Scheduler) StopAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.StopJob(ctx, id); err != nil {
			s.logger.Error("failed to stop job", "job", id, "error", err)
		}
	}
}

// RestartAll drops every live entry and re-registers the default job set.
func (s *Scheduler) RestartAll(ctx context.Context) error {
	s.StopAll(ctx)
	return s.RegisterDefaults(ctx)
}

// RegisterDefaults creates the canned recurring jobs: an hourly full sync,
// a nightly full sync, a half-hourly sync of the critical connectors, and
// a nightly purge of expired sync history.
func (s *Scheduler) RegisterDefaults(ctx context.Context) error {
	defaults := []models.SyncJob{
		{JobID: "hourly-sync", Schedule: "0 * * * *", Type: models.JobSyncAll, Description: "Hourly sync of every connector"},
		{JobID: "nightly-sync", Schedule: "0 2 * * *", Type: models.JobSyncAll, Description: "Nightly full sync"},
		{JobID: "critical-sync", Schedule: "*/30 * * * *", Type: models.JobSyncCritical, Description: "Half-hourly sync of critical connectors"},
		{JobID: "purge-logs", Schedule: "0 3 * * *", Type: models.JobPurgeLogs, Description: "Nightly purge of expired sync history"},
	}
	for _, job := range defaults {
		if err := s.CreateJob(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// Jobs lists every persisted job row, live or stopped.
func (s *Scheduler) Jobs(ctx context.Context) ([]models.SyncJob, error) {
	return s.ledger.ListJobs(ctx)
}

// LiveEntries reports how many jobs currently have a cron entry.
func (s *Scheduler) LiveEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// runJob dispatches one firing to its behavior. Sync outcomes land in the
// ledger through the orchestrator; only dispatch-level problems are logged
// here.
func (s *Scheduler) runJob(job models.SyncJob) {
	ctx := context.Background()
	s.logger.Info("job firing", "job", job.JobID, "type", job.Type)

	switch job.Type {
	case models.JobSyncAll:
		s.orch.RunAll(ctx)
	case models.JobSyncConnector:
		if _, err := s.orch.Run(ctx, job.ConnectorID); err != nil && !errors.Is(err, orchestrator.ErrSyncInProgress) {
			s.logger.Error("scheduled sync failed to dispatch", "job", job.JobID, "connector", job.ConnectorID, "error", err)
		}
	case models.JobSyncCritical:
		s.orch.RunMany(ctx, s.criticalIDs)
	case models.JobPurgeLogs:
		purged, err := s.ledger.PurgeLogs(ctx, time.Now().Add(-logRetention))
		if err != nil {
			s.logger.Error("log purge failed", "job", job.JobID, "error", err)
			return
		}
		s.logger.Info("log purge finished", "job", job.JobID, "purged", purged)
	}
}
