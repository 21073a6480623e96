package models

import "time"

// SyncStatus classifies the outcome of one sync attempt.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// SyncResult is the immutable outcome of one orchestrated sync attempt,
// written to the ledger exactly once.
type SyncResult struct {
	ConnectorID      string     `json:"connector_id"`
	Status           SyncStatus `json:"status"`
	RecordsProcessed int        `json:"records_processed"` // Raw count before transform
	RecordsInserted  int        `json:"records_inserted"`  // Post-dedup valid count
	RecordsSkipped   int        `json:"records_skipped"`   // Invalid count
	Errors           []string   `json:"errors,omitempty"`
	DurationMs       int64      `json:"duration_ms"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       time.Time  `json:"finished_at"`
}

// SyncLog is one persisted row of sync history.
type SyncLog struct {
	ID     string     `json:"id"`
	Result SyncResult `json:"result"`
}

// LogFilter bounds a sync-log query. Zero values mean "no filter";
// results are newest-first.
type LogFilter struct {
	ConnectorID string
	Status      SyncStatus
	Limit       int
}

// Alert is raised whenever a sync attempt fails. It lives until explicitly
// resolved; it never auto-expires.
type Alert struct {
	ID          string     `json:"id"`
	ConnectorID string     `json:"connector_id"`
	Message     string     `json:"message"`
	IsResolved  bool       `json:"is_resolved"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// JobType selects one of the canned scheduler behaviors.
type JobType string

const (
	JobSyncConnector JobType = "sync-connector"
	JobSyncAll       JobType = "sync-all"
	JobSyncCritical  JobType = "sync-critical"
	JobPurgeLogs     JobType = "purge-logs"
)

// SyncJob is a named recurring schedule. Stopping a job clears IsActive and
// removes its live timer, but the row persists for audit.
type SyncJob struct {
	JobID       string    `json:"job_id"`
	Schedule    string    `json:"schedule"` // Cron expression (5-field)
	Type        JobType   `json:"type"`
	ConnectorID string    `json:"connector_id,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats aggregates ledger state for one connector or the whole fleet.
type Stats struct {
	ConnectorID        string  `json:"connector_id,omitempty"` // Empty for fleet-wide stats
	Connectors         int     `json:"connectors"`
	TotalSyncs         int64   `json:"total_syncs"`
	SuccessfulSyncs    int64   `json:"successful_syncs"`
	FailedSyncs        int64   `json:"failed_syncs"`
	TotalRecordsSynced int64   `json:"total_records_synced"`
	SuccessRate        float64 `json:"success_rate"` // Percentage
}
