package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/insightdash/syncengine/internal/models"
	"github.com/insightdash/syncengine/internal/scheduler"
)

// JobsHandler handles GET /api/jobs, POST /api/jobs, POST /api/jobs/stop,
// POST /api/jobs/restart and POST /api/jobs/:id/stop
func (h *Handler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet:
		h.listJobs(w, r)
	case r.Method == http.MethodPost && strings.Trim(r.URL.Path, "/") == "api/jobs/stop":
		h.stopAllJobs(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/stop"):
		h.stopJob(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/restart"):
		h.restartJobs(w, r)
	case r.Method == http.MethodPost:
		h.createJob(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.sched.Jobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	var job models.SyncJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid job payload", http.StatusBadRequest)
		return
	}

	if err := h.sched.CreateJob(r.Context(), job); err != nil {
		var invalid *scheduler.InvalidScheduleError
		if errors.As(err, &invalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create job", "job", job.JobID, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

func (h *Handler) stopJob(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}
	jobID := parts[2]

	if err := h.sched.StopJob(r.Context(), jobID); err != nil {
		var notFound *scheduler.JobNotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to stop job", "job", jobID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *Handler) stopAllJobs(w http.ResponseWriter, r *http.Request) {
	h.sched.StopAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *Handler) restartJobs(w http.ResponseWriter, r *http.Request) {
	if err := h.sched.RestartAll(r.Context()); err != nil {
		h.logger.Error("failed to restart jobs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	jobs, err := h.sched.Jobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs after restart", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
