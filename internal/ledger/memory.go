package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insightdash/syncengine/internal/models"
)

// MemoryLedger keeps the full ledger in process memory. Used by tests and
// by deployments without a database.
type MemoryLedger struct {
	mu       sync.Mutex
	logs     []models.SyncLog // Append order; newest last
	statuses map[string]*models.ConnectorStatus
	alerts   []models.Alert
	jobs     map[string]models.SyncJob
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		statuses: make(map[string]*models.ConnectorStatus),
		jobs:     make(map[string]models.SyncJob),
	}
}

func (l *MemoryLedger) RecordResult(ctx context.Context, result models.SyncResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, models.SyncLog{ID: uuid.New().String(), Result: result})

	status, ok := l.statuses[result.ConnectorID]
	if !ok {
		status = &models.ConnectorStatus{ConnectorID: result.ConnectorID}
		l.statuses[result.ConnectorID] = status
	}
	status.Apply(result)

	if result.Status == models.SyncError {
		message := "sync failed"
		if len(result.Errors) > 0 {
			message = result.Errors[0]
		}
		l.alerts = append(l.alerts, models.Alert{
			ID:          uuid.New().String(),
			ConnectorID: result.ConnectorID,
			Message:     message,
			CreatedAt:   result.FinishedAt,
		})
	}

	return nil
}

func (l *MemoryLedger) ListLogs(ctx context.Context, filter models.LogFilter) ([]models.SyncLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.SyncLog, 0, len(l.logs))
	for i := len(l.logs) - 1; i >= 0; i-- {
		log := l.logs[i]
		if filter.ConnectorID != "" && log.Result.ConnectorID != filter.ConnectorID {
			continue
		}
		if filter.Status != "" && log.Result.Status != filter.Status {
			continue
		}
		out = append(out, log)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (l *MemoryLedger) GetStatus(ctx context.Context, connectorID string) (models.ConnectorStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	status, ok := l.statuses[connectorID]
	if !ok {
		return models.ConnectorStatus{}, ErrStatusNotFound
	}
	return *status, nil
}

func (l *MemoryLedger) ListStatuses(ctx context.Context) ([]models.ConnectorStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ConnectorStatus, 0, len(l.statuses))
	for _, status := range l.statuses {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectorID < out[j].ConnectorID })
	return out, nil
}

func (l *MemoryLedger) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Alert, 0, len(l.alerts))
	for i := len(l.alerts) - 1; i >= 0; i-- {
		alert := l.alerts[i]
		if unresolvedOnly && alert.IsResolved {
			continue
		}
		out = append(out, alert)
	}
	return out, nil
}

func (l *MemoryLedger) ResolveAlert(ctx context.Context, alertID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.alerts {
		if l.alerts[i].ID == alertID {
			now := time.Now()
			l.alerts[i].IsResolved = true
			l.alerts[i].ResolvedAt = &now
			return nil
		}
	}
	return ErrAlertNotFound
}

func (l *MemoryLedger) PurgeLogs(ctx context.Context, olderThan time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.logs[:0]
	purged := 0
	for _, log := range l.logs {
		if log.Result.FinishedAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, log)
	}
	l.logs = kept
	return purged, nil
}

func (l *MemoryLedger) Stats(ctx context.Context, connectorID string) (models.Stats, error) {
	if connectorID != "" {
		status, err := l.GetStatus(ctx, connectorID)
		if err != nil {
			return models.Stats{}, err
		}
		return connectorStats(status), nil
	}

	statuses, err := l.ListStatuses(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return fleetStats(statuses), nil
}

func (l *MemoryLedger) SaveJob(ctx context.Context, job models.SyncJob) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs[job.JobID] = job
	return nil
}

func (l *MemoryLedger) ListJobs(ctx context.Context) ([]models.SyncJob, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.SyncJob, 0, len(l.jobs))
	for _, job := range l.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

func (l *MemoryLedger) SetJobActive(ctx context.Context, jobID string, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.IsActive = active
	job.UpdatedAt = time.Now()
	l.jobs[jobID] = job
	return nil
}
