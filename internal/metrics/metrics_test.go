package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorExposesSyncMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector() returned error: %v", err)
	}

	collector.ObserveSync("sf-prod", "success", 150*time.Millisecond, 42)
	collector.ObserveSync("sf-prod", "error", 10*time.Millisecond, 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`syncengine_sync_total{connector="sf-prod",status="success"} 1`,
		`syncengine_sync_total{connector="sf-prod",status="error"} 1`,
		`syncengine_sync_records_total{connector="sf-prod"} 42`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestInstrumentHandlerRecordsRequests(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector() returned error: %v", err)
	}

	handler := collector.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("wrapped handler status lost: %d", rec.Code)
	}

	metricsRec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(metricsRec.Body.String(), `syncengine_http_requests_total{method="GET",path="/api/status",status="418"} 1`) {
		t.Error("http request metric not recorded")
	}
}
