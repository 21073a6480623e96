package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/insightdash/syncengine/internal/models"
)

// PostgresLedger persists the ledger in PostgreSQL. See migrations/ for the
// schema.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) RecordResult(ctx context.Context, result models.SyncResult) error {
	errsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_logs (id, connector_id, status, records_processed, records_inserted, records_skipped, errors, duration_ms, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.New().String(),
		result.ConnectorID,
		result.Status,
		result.RecordsProcessed,
		result.RecordsInserted,
		result.RecordsSkipped,
		errsJSON,
		result.DurationMs,
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync log: %w", err)
	}

	success := result.Status == models.SyncSuccess
	lastError := ""
	if !success && len(result.Errors) > 0 {
		lastError = result.Errors[0]
	}
	inserted := 0
	if success {
		inserted = result.RecordsInserted
	}

	// One statement so the read-modify-write of the running totals cannot
	// interleave across concurrent syncs. SET expressions read the old row,
	// so the incremental mean (avg*n + new)/(n+1) uses the prior count.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO connector_status (connector_id, is_connected, last_sync_at, last_sync_status, last_error, total_syncs, successful_syncs, failed_syncs, total_records_synced, avg_duration_ms)
		VALUES ($1, $2, $3, $4, $5, 1, CASE WHEN $2 THEN 1 ELSE 0 END, CASE WHEN $2 THEN 0 ELSE 1 END, $6, $7)
		ON CONFLICT (connector_id) DO UPDATE SET
			avg_duration_ms = (connector_status.avg_duration_ms * connector_status.total_syncs + EXCLUDED.avg_duration_ms) / (connector_status.total_syncs + 1),
			total_syncs = connector_status.total_syncs + 1,
			successful_syncs = connector_status.successful_syncs + CASE WHEN EXCLUDED.is_connected THEN 1 ELSE 0 END,
			failed_syncs = connector_status.failed_syncs + CASE WHEN EXCLUDED.is_connected THEN 0 ELSE 1 END,
			total_records_synced = connector_status.total_records_synced + EXCLUDED.total_records_synced,
			is_connected = EXCLUDED.is_connected,
			last_sync_at = EXCLUDED.last_sync_at,
			last_sync_status = EXCLUDED.last_sync_status,
			last_error = EXCLUDED.last_error
	`,
		result.ConnectorID,
		success,
		result.FinishedAt,
		result.Status,
		lastError,
		inserted,
		result.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert connector status: %w", err)
	}

	if result.Status == models.SyncError {
		message := "sync failed"
		if len(result.Errors) > 0 {
			message = result.Errors[0]
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alerts (id, connector_id, message, is_resolved, created_at)
			VALUES ($1, $2, $3, FALSE, $4)
		`, uuid.New().String(), result.ConnectorID, message, result.FinishedAt)
		if err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}

	return tx.Commit()
}

func (l *PostgresLedger) ListLogs(ctx context.Context, filter models.LogFilter) ([]models.SyncLog, error) {
	query := `
		SELECT id, connector_id, status, records_processed, records_inserted, records_skipped, errors, duration_ms, started_at, finished_at
		FROM sync_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	if filter.ConnectorID != "" {
		query += fmt.Sprintf(" AND connector_id = $%d", argPos)
		args = append(args, filter.ConnectorID)
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	query += fmt.Sprintf(" ORDER BY finished_at DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	logs := []models.SyncLog{}
	for rows.Next() {
		var log models.SyncLog
		var errsJSON []byte

		err := rows.Scan(
			&log.ID,
			&log.Result.ConnectorID,
			&log.Result.Status,
			&log.Result.RecordsProcessed,
			&log.Result.RecordsInserted,
			&log.Result.RecordsSkipped,
			&errsJSON,
			&log.Result.DurationMs,
			&log.Result.StartedAt,
			&log.Result.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		if len(errsJSON) > 0 {
			if err := json.Unmarshal(errsJSON, &log.Result.Errors); err != nil {
				return nil, fmt.Errorf("failed to parse sync log errors: %w", err)
			}
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

const statusColumns = `connector_id, is_connected, last_sync_at, last_sync_status, last_error, total_syncs, successful_syncs, failed_syncs, total_records_synced, avg_duration_ms`

func scanStatus(scan func(...any) error) (models.ConnectorStatus, error) {
	var status models.ConnectorStatus
	var lastSyncAt sql.NullTime
	var lastStatus, lastError sql.NullString

	err := scan(
		&status.ConnectorID,
		&status.IsConnected,
		&lastSyncAt,
		&lastStatus,
		&lastError,
		&status.TotalSyncs,
		&status.SuccessfulSyncs,
		&status.FailedSyncs,
		&status.TotalRecordsSynced,
		&status.AvgDurationMs,
	)
	if err != nil {
		return status, err
	}
	if lastSyncAt.Valid {
		status.LastSyncAt = &lastSyncAt.Time
	}
	status.LastSyncStatus = models.SyncStatus(lastStatus.String)
	status.LastError = lastError.String
	return status, nil
}

func (l *PostgresLedger) GetStatus(ctx context.Context, connectorID string) (models.ConnectorStatus, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM connector_status WHERE connector_id = $1`, connectorID)

	status, err := scanStatus(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConnectorStatus{}, ErrStatusNotFound
	}
	if err != nil {
		return models.ConnectorStatus{}, fmt.Errorf("failed to get connector status: %w", err)
	}
	return status, nil
}

func (l *PostgresLedger) ListStatuses(ctx context.Context) ([]models.ConnectorStatus, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+statusColumns+` FROM connector_status ORDER BY connector_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query connector statuses: %w", err)
	}
	defer rows.Close()

	statuses := []models.ConnectorStatus{}
	for rows.Next() {
		status, err := scanStatus(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connector status: %w", err)
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

func (l *PostgresLedger) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]models.Alert, error) {
	query := `SELECT id, connector_id, message, is_resolved, created_at, resolved_at FROM alerts`
	if unresolvedOnly {
		query += ` WHERE is_resolved = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var alert models.Alert
		var resolvedAt sql.NullTime
		if err := rows.Scan(&alert.ID, &alert.ConnectorID, &alert.Message, &alert.IsResolved, &alert.CreatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if resolvedAt.Valid {
			alert.ResolvedAt = &resolvedAt.Time
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (l *PostgresLedger) ResolveAlert(ctx context.Context, alertID string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE alerts SET is_resolved = TRUE, resolved_at = $1 WHERE id = $2`,
		time.Now(), alertID)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (l *PostgresLedger) PurgeLogs(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM sync_logs WHERE finished_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sync logs: %w", err)
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (l *PostgresLedger) Stats(ctx context.Context, connectorID string) (models.Stats, error) {
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

func (l *PostgresLedger) SaveJob(ctx context.Context, job models.SyncJob) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (job_id, schedule, type, connector_id, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (job_id) DO UPDATE SET
			schedule = EXCLUDED.schedule,
			type = EXCLUDED.type,
			connector_id = EXCLUDED.connector_id,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		job.JobID,
		job.Schedule,
		job.Type,
		job.ConnectorID,
		job.Description,
		job.IsActive,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (l *PostgresLedger) ListJobs(ctx context.Context) ([]models.SyncJob, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT job_id, schedule, type, connector_id, description, is_active, created_at, updated_at
		FROM sync_jobs
		ORDER BY job_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.SyncJob{}
	for rows.Next() {
		var job models.SyncJob
		if err := rows.Scan(&job.JobID, &job.Schedule, &job.Type, &job.ConnectorID, &job.Description, &job.IsActive, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (l *PostgresLedger) SetJobActive(ctx context.Context, jobID string, active bool) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE sync_jobs SET is_active = $1, updated_at = $2 WHERE job_id = $3`,
		active, time.Now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}
