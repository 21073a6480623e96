package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/insightdash/syncengine/internal/gateway"
	"github.com/insightdash/syncengine/internal/ledger"
	"github.com/insightdash/syncengine/internal/models"
	"github.com/insightdash/syncengine/internal/orchestrator"
	"github.com/insightdash/syncengine/internal/scheduler"
)

type Handler struct {
	orch        *orchestrator.Orchestrator
	sched       *scheduler.Scheduler
	gw          *gateway.Gateway
	ledger      ledger.SyncLedger
	criticalIDs []string
	logger      *slog.Logger
	startTime   time.Time
}

func NewHandler(orch *orchestrator.Orchestrator, sched *scheduler.Scheduler, gw *gateway.Gateway, led ledger.SyncLedger, criticalIDs []string, logger *slog.Logger) *Handler {
	return &Handler{
		orch:        orch,
		sched:       sched,
		gw:          gw,
		ledger:      led,
		criticalIDs: criticalIDs,
		logger:      logger,
		startTime:   time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS for dev
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// SyncHandler handles POST /api/sync and POST /api/sync/:id
func (h *Handler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/sync")
	id = strings.Trim(id, "/")

	if id == "" {
		results := h.orch.RunAll(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"results": results,
			"count":   len(results),
		})
		return
	}

	result, err := h.orch.Run(r.Context(), id)
	if err != nil {
		var unknown *gateway.UnknownConnectorError
		switch {
		case errors.As(err, &unknown):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, orchestrator.ErrSyncInProgress):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("sync request failed", "connector", id, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SyncCriticalHandler handles POST /api/sync/critical. The body may name
// explicit connector ids; otherwise the configured critical set is used.
func (h *Handler) SyncCriticalHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ids := h.criticalIDs
	var body struct {
		ConnectorIDs []string `json:"connector_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && len(body.ConnectorIDs) > 0 {
		ids = body.ConnectorIDs
	}

	results := h.orch.RunMany(r.Context(), ids)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// LogsHandler handles GET /api/logs
func (h *Handler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := models.LogFilter{
		ConnectorID: r.URL.Query().Get("connector_id"),
		Status:      models.SyncStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	logs, err := h.ledger.ListLogs(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list sync logs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"count": len(logs),
	})
}

// StatusHandler handles GET /api/status and GET /api/status/:id
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/status")
	id = strings.Trim(id, "/")

	if id == "" {
		statuses, err := h.ledger.ListStatuses(r.Context())
		if err != nil {
			h.logger.Error("failed to list connector statuses", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"statuses": statuses,
			"count":    len(statuses),
		})
		return
	}

	status, err := h.ledger.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrStatusNotFound) {
			http.Error(w, "Connector status not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get connector status", "connector", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// AlertsHandler handles GET /api/alerts and POST /api/alerts/:id/resolve
func (h *Handler) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/resolve") {
		h.resolveAlert(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	unresolvedOnly := r.URL.Query().Get("unresolved_only") == "true"
	alerts, err := h.ledger.ListAlerts(r.Context(), unresolvedOnly)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.Error(w, "Alert ID required", http.StatusBadRequest)
		return
	}
	alertID := parts[2]

	if err := h.ledger.ResolveAlert(r.Context(), alertID); err != nil {
		if errors.Is(err, ledger.ErrAlertNotFound) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to resolve alert", "alert", alertID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// StatsHandler handles GET /api/stats
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.ledger.Stats(r.Context(), r.URL.Query().Get("connector_id"))
	if err != nil {
		if errors.Is(err, ledger.ErrStatusNotFound) {
			http.Error(w, "Connector status not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to compute stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ConnectorsHandler handles GET /api/connectors and POST /api/connectors/:id/test
func (h *Handler) ConnectorsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/test") {
		h.testConnector(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	configs := h.gw.AllConfigs()
	summaries := make([]map[string]any, 0, len(configs))
	for _, cfg := range configs {
		// Settings stay internal; they carry credentials.
		summaries = append(summaries, map[string]any{
			"id":   cfg.ID,
			"name": cfg.Name,
			"kind": cfg.Kind,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connectors": summaries,
		"count":      len(summaries),
	})
}

func (h *Handler) testConnector(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.Error(w, "Connector ID required", http.StatusBadRequest)
		return
	}
	id := parts[2]

	ok, err := h.gw.TestConnection(r.Context(), id)
	if err != nil {
		var unknown *gateway.UnknownConnectorError
		if errors.As(err, &unknown) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("connection test failed", "connector", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connector_id": id,
		"connected":    ok,
	})
}

// HealthHandler handles GET /healthz
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}
