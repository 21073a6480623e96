// Package ledger is the durable record of every sync attempt: append-only
// sync logs, a rolling status row per connector, alerts opened on failure,
// and the persisted job definitions. Two interchangeable backends exist:
// in-memory and PostgreSQL.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/insightdash/syncengine/internal/models"
)

var (
	ErrStatusNotFound = errors.New("connector status not found")
	ErrAlertNotFound  = errors.New("alert not found")
	ErrJobNotFound    = errors.New("job not found")
)

// SyncLedger is the single interface the orchestrator, scheduler and admin
// API depend on.
type SyncLedger interface {
	// RecordResult appends one immutable sync-log row, folds the result
	// into the connector's rolling status, and opens an alert when the
	// result is an error. The status update is a critical section:
	// concurrent syncs of one connector must not lose updates.
	RecordResult(ctx context.Context, result models.SyncResult) error

	// ListLogs returns sync-log rows newest-first, honoring the filter.
	ListLogs(ctx context.Context, filter models.LogFilter) ([]models.SyncLog, error)

	// GetStatus returns one connector's rolling status.
	GetStatus(ctx context.Context, connectorID string) (models.ConnectorStatus, error)

	// ListStatuses returns every connector's rolling status.
	ListStatuses(ctx context.Context) ([]models.ConnectorStatus, error)

	// ListAlerts returns alerts, optionally only unresolved ones,
	// newest-first.
	ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.Alert, error)

	// ResolveAlert marks an alert resolved and stamps the time.
	ResolveAlert(ctx context.Context, alertID string) error

	// PurgeLogs deletes sync-log rows older than the cutoff and reports
	// how many were removed.
	PurgeLogs(ctx context.Context, olderThan time.Time) (int, error)

	// Stats aggregates one connector's status into a success-rate summary,
	// or, with an empty id, a fleet-wide summary.
	Stats(ctx context.Context, connectorID string) (models.Stats, error)

	// SaveJob upserts a job-definition row.
	SaveJob(ctx context.Context, job models.SyncJob) error

	// ListJobs returns every persisted job definition.
	ListJobs(ctx context.Context) ([]models.SyncJob, error)

	// SetJobActive flips a job row's active flag.
	SetJobActive(ctx context.Context, jobID string, active bool) error
}

// fleetStats folds per-connector statuses into one summary; shared by both
// backends.
func fleetStats(statuses []models.ConnectorStatus) models.Stats {
	stats := models.Stats{Connectors: len(statuses)}

	var rateSum float64
	counted := 0
	for _, s := range statuses {
		stats.TotalSyncs += s.TotalSyncs
		stats.SuccessfulSyncs += s.SuccessfulSyncs
		stats.FailedSyncs += s.FailedSyncs
		stats.TotalRecordsSynced += s.TotalRecordsSynced
		if s.TotalSyncs > 0 {
			rateSum += s.SuccessRate()
			counted++
		}
	}
	if counted > 0 {
		stats.SuccessRate = rateSum / float64(counted)
	}
	return stats
}

func connectorStats(s models.ConnectorStatus) models.Stats {
	return models.Stats{
		ConnectorID:        s.ConnectorID,
		Connectors:         1,
		TotalSyncs:         s.TotalSyncs,
		SuccessfulSyncs:    s.SuccessfulSyncs,
		FailedSyncs:        s.FailedSyncs,
		TotalRecordsSynced: s.TotalRecordsSynced,
		SuccessRate:        s.SuccessRate(),
	}
}
