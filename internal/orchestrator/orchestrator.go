// Package orchestrator drives one end-to-end sync for a connector: pull raw
// records, transform, validate, deduplicate, persist the outcome to the
// ledger. Pipeline-stage failures are fatal to the one attempt; connector
// internal fetch failures surface only as reduced counts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/insightdash/syncengine/internal/gateway"
	"github.com/insightdash/syncengine/internal/ledger"
	"github.com/insightdash/syncengine/internal/metrics"
	"github.com/insightdash/syncengine/internal/models"
	"github.com/insightdash/syncengine/internal/pipeline"
)

// ErrSyncInProgress reports a firing that found its connector already
// mid-sync. The caller skips; it never queues behind the running sync.
var ErrSyncInProgress = errors.New("sync already in progress")

// Orchestrator owns the pipeline stages transiently per sync; it keeps no
// cross-sync state beyond the in-flight guard.
type Orchestrator struct {
	gw       *gateway.Gateway
	ledger   ledger.SyncLedger
	metrics  *metrics.Collector
	logger   *slog.Logger
	inflight inflightGuard
}

func New(gw *gateway.Gateway, led ledger.SyncLedger, collector *metrics.Collector, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gw:      gw,
		ledger:  led,
		metrics: collector,
		logger:  logger,
	}
}

// Run executes one sync attempt for the connector. The returned result is
// already persisted; a non-nil error is a caller-input problem (unknown
// connector, sync already in flight), never a persisted sync failure.
func (o *Orchestrator) Run(ctx context.Context, connectorID string) (models.SyncResult, error) {
	cfg, ok := o.gw.GetConfig(connectorID)
	if !ok {
		return models.SyncResult{}, &gateway.UnknownConnectorError{ID: connectorID}
	}

	if !o.inflight.TryLock(connectorID) {
		o.logger.Info("sync skipped, connector already in flight", "connector", connectorID)
		return models.SyncResult{}, ErrSyncInProgress
	}
	defer o.inflight.Unlock(connectorID)

	start := time.Now()
	result := models.SyncResult{
		ConnectorID: connectorID,
		StartedAt:   start,
	}

	if cfg.Kind.IsVendor() {
		o.runVendor(ctx, connectorID, &result)
	} else {
		o.runPipeline(ctx, cfg, &result)
	}

	result.FinishedAt = time.Now()
	result.DurationMs = result.FinishedAt.Sub(start).Milliseconds()

	if err := o.ledger.RecordResult(ctx, result); err != nil {
		o.logger.Error("failed to persist sync result", "connector", connectorID, "error", err)
	}
	if o.metrics != nil {
		o.metrics.ObserveSync(connectorID, string(result.Status), result.FinishedAt.Sub(start), result.RecordsInserted)
	}

	o.logger.Info("sync finished",
		"connector", connectorID,
		"status", result.Status,
		"processed", result.RecordsProcessed,
		"inserted", result.RecordsInserted,
		"skipped", result.RecordsSkipped,
		"duration_ms", result.DurationMs,
	)

	return result, nil
}

// runVendor delegates to the vendor connector's SyncAll through the
// gateway. Fetch-level failures are already contained inside the summary.
func (o *Orchestrator) runVendor(ctx context.Context, connectorID string, result *models.SyncResult) {
	summary, err := o.gw.Sync(ctx, connectorID)
	if err != nil {
		result.Status = models.SyncError
		result.Errors = []string{err.Error()}
		return
	}

	result.RecordsProcessed = summary.RecordsSynced + summary.RecordsFailed
	result.RecordsInserted = summary.RecordsSynced
	result.RecordsSkipped = summary.RecordsFailed

	if summary.Success {
		result.Status = models.SyncSuccess
		if summary.RecordsFailed > 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%d fetch operations failed", summary.RecordsFailed))
		}
	} else {
		result.Status = models.SyncError
		result.Errors = []string{"all fetch operations failed"}
	}
}

// runPipeline reads records and runs them through the transform, validate
// and dedupe stages. Any read failure transitions straight to the error
// terminal state; validation failures only reduce the insert count.
func (o *Orchestrator) runPipeline(ctx context.Context, cfg models.ConnectorConfig, result *models.SyncResult) {
	reader, err := o.gw.Reader(cfg.ID)
	if err != nil {
		result.Status = models.SyncError
		result.Errors = []string{err.Error()}
		return
	}

	records, err := reader.Read(ctx)
	if err != nil {
		result.Status = models.SyncError
		result.Errors = []string{err.Error()}
		return
	}
	result.RecordsProcessed = len(records)

	stages := pipeline.Stages{Logger: o.logger}

	if len(cfg.Mapping) > 0 {
		records = stages.Transform(records, cfg.Mapping)
	}

	valid, invalid := stages.Validate(records, cfg.Schema)
	deduped := stages.Dedupe(valid, cfg.UniqueFields)

	result.RecordsInserted = len(deduped)
	result.RecordsSkipped = len(invalid)
	result.Status = models.SyncSuccess
	if len(invalid) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d records failed validation", len(invalid)))
	}
}

// RunAll syncs every registered connector sequentially, skipping any
// already in flight.
func (o *Orchestrator) RunAll(ctx context.Context) []models.SyncResult {
	var results []models.SyncResult
	for _, cfg := range o.gw.AllConfigs() {
		result, err := o.Run(ctx, cfg.ID)
		if err != nil {
			if !errors.Is(err, ErrSyncInProgress) {
				o.logger.Error("sync dispatch failed", "connector", cfg.ID, "error", err)
			}
			continue
		}
		results = append(results, result)
	}
	return results
}

// RunMany syncs the named connectors sequentially, skipping unknown ids
// and any already in flight.
func (o *Orchestrator) RunMany(ctx context.Context, connectorIDs []string) []models.SyncResult {
	var results []models.SyncResult
	for _, id := range connectorIDs {
		result, err := o.Run(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrSyncInProgress) {
				o.logger.Error("sync dispatch failed", "connector", id, "error", err)
			}
			continue
		}
		results = append(results, result)
	}
	return results
}
