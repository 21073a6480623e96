package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/insightdash/syncengine/internal/models"
)

func syncResult(connectorID string, status models.SyncStatus, finishedAt time.Time) models.SyncResult {
	result := models.SyncResult{
		ConnectorID:      connectorID,
		Status:           status,
		RecordsProcessed: 10,
		RecordsInserted:  8,
		RecordsSkipped:   2,
		DurationMs:       120,
		StartedAt:        finishedAt.Add(-time.Second),
		FinishedAt:       finishedAt,
	}
	if status == models.SyncError {
		result.Errors = []string{"connection refused"}
		result.RecordsInserted = 0
	}
	return result
}

func TestRecordResultUpdatesStatus(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	now := time.Now()
	for _, s := range []models.SyncStatus{models.SyncSuccess, models.SyncError, models.SyncSuccess} {
		if err := l.RecordResult(ctx, syncResult("sf", s, now)); err != nil {
			t.Fatalf("RecordResult() returned error: %v", err)
		}
	}

	status, err := l.GetStatus(ctx, "sf")
	if err != nil {
		t.Fatalf("GetStatus() returned error: %v", err)
	}
	if status.TotalSyncs != 3 || status.SuccessfulSyncs != 2 || status.FailedSyncs != 1 {
		t.Errorf("unexpected totals: %+v", status)
	}
	if status.SuccessfulSyncs+status.FailedSyncs != status.TotalSyncs {
		t.Error("totals invariant broken")
	}
	if status.TotalRecordsSynced != 16 {
		t.Errorf("expected 16 records synced, got %d", status.TotalRecordsSynced)
	}
}

func TestRecordResultOpensAlertOnError(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	if err := l.RecordResult(ctx, syncResult("sap", models.SyncError, time.Now())); err != nil {
		t.Fatalf("RecordResult() returned error: %v", err)
	}

	alerts, err := l.ListAlerts(ctx, true)
	if err != nil {
		t.Fatalf("ListAlerts() returned error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	alert := alerts[0]
	if alert.ConnectorID != "sap" || alert.IsResolved || alert.Message != "connection refused" {
		t.Errorf("unexpected alert: %+v", alert)
	}
}

func TestSuccessOpensNoAlert(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	if err := l.RecordResult(ctx, syncResult("sap", models.SyncSuccess, time.Now())); err != nil {
		t.Fatalf("RecordResult() returned error: %v", err)
	}

	alerts, _ := l.ListAlerts(ctx, false)
	if len(alerts) != 0 {
		t.Errorf("successful syncs must not open alerts, got %d", len(alerts))
	}
}

func TestResolveAlert(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	l.RecordResult(ctx, syncResult("sap", models.SyncError, time.Now()))
	alerts, _ := l.ListAlerts(ctx, true)

	if err := l.ResolveAlert(ctx, alerts[0].ID); err != nil {
		t.Fatalf("ResolveAlert() returned error: %v", err)
	}

	unresolved, _ := l.ListAlerts(ctx, true)
	if len(unresolved) != 0 {
		t.Error("resolved alert still listed as unresolved")
	}

	all, _ := l.ListAlerts(ctx, false)
	if len(all) != 1 || !all[0].IsResolved || all[0].ResolvedAt == nil {
		t.Errorf("alert should persist resolved with a timestamp: %+v", all)
	}
}

func TestResolveAlertUnknown(t *testing.T) {
	l := NewMemoryLedger()
	if err := l.ResolveAlert(context.Background(), "missing"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestListLogsNewestFirstWithFilters(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	l.RecordResult(ctx, syncResult("a", models.SyncSuccess, base))
	l.RecordResult(ctx, syncResult("b", models.SyncError, base.Add(time.Minute)))
	l.RecordResult(ctx, syncResult("a", models.SyncError, base.Add(2*time.Minute)))

	logs, err := l.ListLogs(ctx, models.LogFilter{})
	if err != nil {
		t.Fatalf("ListLogs() returned error: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	if logs[0].Result.FinishedAt.Before(logs[1].Result.FinishedAt) {
		t.Error("logs should be newest-first")
	}

	logs, _ = l.ListLogs(ctx, models.LogFilter{ConnectorID: "a"})
	if len(logs) != 2 {
		t.Errorf("connector filter: expected 2 logs, got %d", len(logs))
	}

	logs, _ = l.ListLogs(ctx, models.LogFilter{Status: models.SyncError})
	if len(logs) != 2 {
		t.Errorf("status filter: expected 2 logs, got %d", len(logs))
	}

	logs, _ = l.ListLogs(ctx, models.LogFilter{Limit: 1})
	if len(logs) != 1 {
		t.Errorf("limit: expected 1 log, got %d", len(logs))
	}
}

func TestPurgeLogs(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	old := time.Now().Add(-40 * 24 * time.Hour)
	recent := time.Now()

	l.RecordResult(ctx, syncResult("a", models.SyncSuccess, old))
	l.RecordResult(ctx, syncResult("a", models.SyncSuccess, recent))

	purged, err := l.PurgeLogs(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeLogs() returned error: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged row, got %d", purged)
	}

	logs, _ := l.ListLogs(ctx, models.LogFilter{})
	if len(logs) != 1 {
		t.Errorf("expected 1 remaining log, got %d", len(logs))
	}
}

func TestStatsPerConnectorAndFleet(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	l.RecordResult(ctx, syncResult("a", models.SyncSuccess, now))
	l.RecordResult(ctx, syncResult("a", models.SyncError, now))
	l.RecordResult(ctx, syncResult("b", models.SyncSuccess, now))

	stats, err := l.Stats(ctx, "a")
	if err != nil {
		t.Fatalf("Stats(a) returned error: %v", err)
	}
	if stats.SuccessRate != 50 {
		t.Errorf("expected 50%% success rate for a, got %v", stats.SuccessRate)
	}

	fleet, err := l.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats() returned error: %v", err)
	}
	if fleet.Connectors != 2 || fleet.TotalSyncs != 3 {
		t.Errorf("unexpected fleet stats: %+v", fleet)
	}
	if fleet.SuccessRate != 75 { // mean of 50 and 100
		t.Errorf("expected mean success rate 75, got %v", fleet.SuccessRate)
	}

	if _, err := l.Stats(ctx, "missing"); !errors.Is(err, ErrStatusNotFound) {
		t.Errorf("expected ErrStatusNotFound, got %v", err)
	}
}

func TestJobRowsPersistAfterStop(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	job := models.SyncJob{JobID: "hourly", Schedule: "0 * * * *", Type: models.JobSyncAll, IsActive: true, CreatedAt: time.Now()}
	if err := l.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() returned error: %v", err)
	}

	if err := l.SetJobActive(ctx, "hourly", false); err != nil {
		t.Fatalf("SetJobActive() returned error: %v", err)
	}

	jobs, _ := l.ListJobs(ctx)
	if len(jobs) != 1 {
		t.Fatalf("job row must persist for audit, got %d rows", len(jobs))
	}
	if jobs[0].IsActive {
		t.Error("stopped job should be inactive")
	}

	if err := l.SetJobActive(ctx, "missing", false); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}
