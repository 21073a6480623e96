package api

import (
	"net/http"

	"log/slog"

	"github.com/insightdash/syncengine/internal/gateway"
	"github.com/insightdash/syncengine/internal/ledger"
	"github.com/insightdash/syncengine/internal/orchestrator"
	"github.com/insightdash/syncengine/internal/scheduler"
)

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, orch *orchestrator.Orchestrator, sched *scheduler.Scheduler, gw *gateway.Gateway, led ledger.SyncLedger, criticalIDs []string, logger *slog.Logger) {
	handler := NewHandler(orch, sched, gw, led, criticalIDs, logger)

	// Exact patterns win over the /api/sync/ prefix, so the critical
	// subset route must be registered alongside it.
	mux.HandleFunc("/api/sync", handler.SyncHandler)
	mux.HandleFunc("/api/sync/critical", handler.SyncCriticalHandler)
	mux.HandleFunc("/api/sync/", handler.SyncHandler)

	mux.HandleFunc("/api/logs", handler.LogsHandler)

	mux.HandleFunc("/api/status", handler.StatusHandler)
	mux.HandleFunc("/api/status/", handler.StatusHandler)

	mux.HandleFunc("/api/alerts", handler.AlertsHandler)
	mux.HandleFunc("/api/alerts/", handler.AlertsHandler)

	mux.HandleFunc("/api/jobs", handler.JobsHandler)
	mux.HandleFunc("/api/jobs/", handler.JobsHandler)

	mux.HandleFunc("/api/stats", handler.StatsHandler)

	mux.HandleFunc("/api/connectors", handler.ConnectorsHandler)
	mux.HandleFunc("/api/connectors/", handler.ConnectorsHandler)

	mux.HandleFunc("/healthz", handler.HealthHandler)
}
