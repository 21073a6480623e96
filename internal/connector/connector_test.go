package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/insightdash/syncengine/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func stubOp(entity string, count int, err error) fetchOp {
	return fetchOp{
		entity: entity,
		fetch: func(ctx context.Context) ([]models.SourceRecord, error) {
			if err != nil {
				return nil, err
			}
			records := make([]models.SourceRecord, count)
			for i := range records {
				records[i] = models.SourceRecord{ID: fmt.Sprintf("%s-%d", entity, i), Type: entity}
			}
			return records, nil
		},
	}
}

func newTestBase(cfg models.ConnectorConfig) base {
	return newBase(cfg, testLogger())
}

func TestSyncAllFailSoft(t *testing.T) {
	b := newTestBase(models.ConnectorConfig{ID: "sf-test", Kind: models.KindVendorSalesforce})

	ops := []fetchOp{
		stubOp("account", 10, nil),
		stubOp("contact", 20, nil),
		stubOp("lead", 0, fmt.Errorf("vendor 500")),
		stubOp("opportunity", 5, nil),
		stubOp("campaign", 2, nil),
	}

	summary := b.syncAll(context.Background(), ops)

	if !summary.Success {
		t.Error("one failing fetch op must not flip success while others succeed")
	}
	if summary.Details["lead"] != 0 {
		t.Errorf("failed entity should report a zero count, got %d", summary.Details["lead"])
	}
	if summary.Details["account"] != 10 || summary.Details["contact"] != 20 ||
		summary.Details["opportunity"] != 5 || summary.Details["campaign"] != 2 {
		t.Errorf("healthy entities should retain real counts: %v", summary.Details)
	}
	if summary.RecordsSynced != 37 {
		t.Errorf("expected 37 records synced, got %d", summary.RecordsSynced)
	}
	if summary.RecordsFailed != 1 {
		t.Errorf("expected 1 failed fetch op, got %d", summary.RecordsFailed)
	}
}

func TestSyncAllAllOpsFail(t *testing.T) {
	b := newTestBase(models.ConnectorConfig{ID: "sf-test"})

	summary := b.syncAll(context.Background(), []fetchOp{
		stubOp("account", 0, fmt.Errorf("down")),
		stubOp("contact", 0, fmt.Errorf("down")),
	})

	if summary.Success {
		t.Error("summary must fail when every fetch op fails")
	}
	if summary.RecordsSynced != 0 {
		t.Errorf("expected 0 records synced, got %d", summary.RecordsSynced)
	}
}

func vendorAuthServer(t *testing.T, token string, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/oauth/token"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"access_token": %q, "expires_in": %d}`, token, expiresIn)
		default:
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"records": [{"Id": "001", "Name": "Acme", "LastModifiedDate": "2025-06-01T10:00:00.000-0300"}]}`))
		}
	}))
}

func TestAuthenticateRecordsToken(t *testing.T) {
	srv := vendorAuthServer(t, "tok-1", 3600)
	defer srv.Close()

	b := newTestBase(models.ConnectorConfig{
		ID:       "sf-test",
		Settings: map[string]string{"auth_url": srv.URL + "/oauth/token"},
	})

	if !b.Authenticate(context.Background()) {
		t.Fatal("Authenticate() should succeed")
	}
	if b.tokenStale() {
		t.Error("freshly acquired token should not be stale")
	}
	if b.bearer() != "tok-1" {
		t.Errorf("expected bearer tok-1, got %q", b.bearer())
	}
}

func TestAuthenticateFailsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := newTestBase(models.ConnectorConfig{
		ID:       "sf-test",
		Settings: map[string]string{"auth_url": srv.URL + "/oauth/token"},
	})

	if b.Authenticate(context.Background()) {
		t.Error("Authenticate() must return false, not panic, on rejection")
	}
	if !b.tokenStale() {
		t.Error("token should remain stale after failed authentication")
	}
}

func TestEnsureTokenRefreshesWhenExpired(t *testing.T) {
	srv := vendorAuthServer(t, "tok-2", 3600)
	defer srv.Close()

	b := newTestBase(models.ConnectorConfig{
		ID:       "sf-test",
		Settings: map[string]string{"auth_url": srv.URL + "/oauth/token"},
	})

	// Simulate an expired token.
	b.token = "expired"
	b.tokenExpiry = time.Now().Add(-time.Minute)

	if !b.tokenStale() {
		t.Fatal("token at/past expiry must be stale")
	}
	if err := b.ensureToken(context.Background()); err != nil {
		t.Fatalf("ensureToken() returned error: %v", err)
	}
	if b.bearer() != "tok-2" {
		t.Errorf("expected refreshed token tok-2, got %q", b.bearer())
	}
}

func TestSalesforceSyncAllEndToEnd(t *testing.T) {
	srv := vendorAuthServer(t, "tok-3", 3600)
	defer srv.Close()

	c := NewSalesforce(models.ConnectorConfig{
		ID:   "sf-prod",
		Kind: models.KindVendorSalesforce,
		Settings: map[string]string{
			"auth_url": srv.URL + "/oauth/token",
			"base_url": srv.URL,
		},
	}, testLogger())

	summary := c.SyncAll(context.Background())

	if !summary.Success {
		t.Fatal("sync against healthy vendor should succeed")
	}
	// Every entity endpoint serves one record.
	if summary.RecordsSynced != 5 {
		t.Errorf("expected 5 records across 5 entities, got %d", summary.RecordsSynced)
	}
	for _, entity := range []string{"account", "contact", "lead", "opportunity", "campaign"} {
		if summary.Details[entity] != 1 {
			t.Errorf("expected 1 %s record, got %d", entity, summary.Details[entity])
		}
	}
}

func TestNewRejectsReaderKinds(t *testing.T) {
	_, err := New(models.ConnectorConfig{ID: "csv", Kind: models.KindFileCSV}, testLogger())
	if err == nil {
		t.Error("reader kinds must not build vendor connectors")
	}
}
