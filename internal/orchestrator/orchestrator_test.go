package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/insightdash/syncengine/internal/gateway"
	"github.com/insightdash/syncengine/internal/ledger"
	"github.com/insightdash/syncengine/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *gateway.Gateway, *ledger.MemoryLedger) {
	t.Helper()
	gw := gateway.New(testLogger())
	led := ledger.NewMemoryLedger()
	return New(gw, led, nil, testLogger()), gw, led
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestRunCSVPipeline(t *testing.T) {
	o, gw, led := newTestOrchestrator(t)
	ctx := context.Background()

	path := writeCSV(t, "id,name,amount\n"+
		"1,alice,10.5\n"+
		"2,bob,20\n"+
		"2,bobby,25\n"+
		"3,,30\n"+
		"4,dave,40\n")

	err := gw.Register(models.ConnectorConfig{
		ID:   "orders-csv",
		Kind: models.KindFileCSV,
		Settings: map[string]string{
			"path": path,
		},
		Schema: models.ValidationSchema{
			"id":     models.FieldNumber,
			"name":   models.FieldString,
			"amount": models.FieldNumber,
		},
		UniqueFields: []string{"id"},
	})
	if err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	result, err := o.Run(ctx, "orders-csv")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if result.Status != models.SyncSuccess {
		t.Errorf("expected success status, got %s (errors: %v)", result.Status, result.Errors)
	}
	if result.RecordsProcessed != 5 {
		t.Errorf("expected 5 processed, got %d", result.RecordsProcessed)
	}
	if result.RecordsInserted != 3 {
		t.Errorf("expected 3 inserted after validation and dedupe, got %d", result.RecordsInserted)
	}
	if result.RecordsSkipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.RecordsSkipped)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "1 records failed validation" {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	status, err := led.GetStatus(ctx, "orders-csv")
	if err != nil {
		t.Fatalf("GetStatus() returned error: %v", err)
	}
	if status.TotalSyncs != 1 || status.SuccessfulSyncs != 1 {
		t.Errorf("result not folded into status: %+v", status)
	}
}

func TestRunUnreachableHTTPSource(t *testing.T) {
	o, gw, led := newTestOrchestrator(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connector now points at a dead address

	err := gw.Register(models.ConnectorConfig{
		ID:       "events-api",
		Kind:     models.KindHTTPAPI,
		Settings: map[string]string{"url": srv.URL},
	})
	if err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	result, err := o.Run(ctx, "events-api")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if result.Status != models.SyncError {
		t.Errorf("expected error status, got %s", result.Status)
	}
	if result.RecordsProcessed != 0 {
		t.Errorf("expected 0 processed on read failure, got %d", result.RecordsProcessed)
	}
	if len(result.Errors) == 0 {
		t.Error("expected at least one error message")
	}

	alerts, _ := led.ListAlerts(ctx, true)
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 unresolved alert, got %d", len(alerts))
	}
	if alerts[0].ConnectorID != "events-api" {
		t.Errorf("alert opened for wrong connector: %s", alerts[0].ConnectorID)
	}
}

func TestRunVendorConnector(t *testing.T) {
	o, gw, _ := newTestOrchestrator(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "expires_in": 3600})
		case "/v1.0/myorg/reports":
			json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{
				{"id": "r1"}, {"id": "r2"},
			}})
		case "/v1.0/myorg/dashboards":
			json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{
				{"id": "d1"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	err := gw.Register(models.ConnectorConfig{
		ID:   "bi-prod",
		Kind: models.KindVendorBI,
		Settings: map[string]string{
			"auth_url": srv.URL + "/token",
			"base_url": srv.URL,
		},
	})
	if err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	result, err := o.Run(ctx, "bi-prod")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if result.Status != models.SyncSuccess {
		t.Errorf("expected success, got %s (errors: %v)", result.Status, result.Errors)
	}
	if result.RecordsProcessed != 3 || result.RecordsInserted != 3 || result.RecordsSkipped != 0 {
		t.Errorf("unexpected counts: %+v", result)
	}
}

func TestRunUnknownConnector(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	_, err := o.Run(context.Background(), "missing")
	var unknown *gateway.UnknownConnectorError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownConnectorError, got %v", err)
	}
	if unknown.ID != "missing" {
		t.Errorf("error carries wrong id: %s", unknown.ID)
	}
}

func TestRunSkipsWhenAlreadyInFlight(t *testing.T) {
	o, gw, _ := newTestOrchestrator(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	if err := gw.Register(models.ConnectorConfig{
		ID:       "slow-api",
		Kind:     models.KindHTTPAPI,
		Settings: map[string]string{"url": srv.URL},
	}); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Run(ctx, "slow-api")
	}()

	<-started
	if _, err := o.Run(ctx, "slow-api"); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}

	close(release)
	<-done

	// The guard must release once the first sync completes.
	if _, err := o.Run(ctx, "slow-api"); err != nil {
		t.Errorf("follow-up sync should run, got %v", err)
	}
}

func TestRunAllSyncsEveryConnector(t *testing.T) {
	o, gw, _ := newTestOrchestrator(t)
	ctx := context.Background()

	pathA := writeCSV(t, "id\n1\n2\n")
	pathB := writeCSV(t, "id\n3\n")

	for id, path := range map[string]string{"a": pathA, "b": pathB} {
		if err := gw.Register(models.ConnectorConfig{
			ID:       id,
			Kind:     models.KindFileCSV,
			Settings: map[string]string{"path": path},
		}); err != nil {
			t.Fatalf("Register(%s) returned error: %v", id, err)
		}
	}

	results := o.RunAll(ctx)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// AllConfigs is ordered by id.
	if results[0].ConnectorID != "a" || results[1].ConnectorID != "b" {
		t.Errorf("unexpected order: %s, %s", results[0].ConnectorID, results[1].ConnectorID)
	}
	if results[0].RecordsInserted != 2 || results[1].RecordsInserted != 1 {
		t.Errorf("unexpected counts: %+v", results)
	}
}

func TestRunManySkipsUnknownIDs(t *testing.T) {
	o, gw, _ := newTestOrchestrator(t)
	ctx := context.Background()

	path := writeCSV(t, "id\n1\n")
	if err := gw.Register(models.ConnectorConfig{
		ID:       "known",
		Kind:     models.KindFileCSV,
		Settings: map[string]string{"path": path},
	}); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	results := o.RunMany(ctx, []string{"known", "ghost"})
	if len(results) != 1 || results[0].ConnectorID != "known" {
		t.Errorf("expected only the known connector to sync, got %+v", results)
	}
}
