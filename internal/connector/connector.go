// Package connector holds the vendor adapters: one named, stateful type per
// external system, bundling token authentication with typed fetch
// operations behind a single capability interface.
package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insightdash/syncengine/internal/models"
)

// Connector is the capability every vendor adapter implements. The gateway
// depends only on this interface, never on concrete connector types.
type Connector interface {
	// ID returns the unique identifier for this connector.
	ID() string

	// Kind returns the vendor kind this connector handles.
	Kind() models.ConnectorKind

	// Authenticate acquires or refreshes the bearer token and records its
	// expiry. It returns false on failure rather than an error so callers
	// can degrade gracefully.
	Authenticate(ctx context.Context) bool

	// SyncAll invokes every fetch operation, sums record counts, and
	// reports the aggregate. Fetch failures are contained per entity type.
	SyncAll(ctx context.Context) SyncSummary

	// TestConnection authenticates and issues one minimal probe call.
	TestConnection(ctx context.Context) bool
}

// SyncSummary is the aggregate outcome of one SyncAll invocation.
// RecordsFailed counts fetch operations that errored; a failed operation
// contributes a zero count under its entity type in Details.
type SyncSummary struct {
	Success       bool           `json:"success"`
	RecordsSynced int            `json:"records_synced"`
	RecordsFailed int            `json:"records_failed"`
	Details       map[string]int `json:"details"`
}

// fetchOp is one typed fetch operation of a connector. Each op ensures
// token freshness on its own and maps the vendor's native response into
// the uniform SourceRecord envelope.
type fetchOp struct {
	entity string
	fetch  func(ctx context.Context) ([]models.SourceRecord, error)
}

// New builds the connector matching a vendor config. Reader kinds have no
// connector; they sync through the reader pipeline instead.
func New(cfg models.ConnectorConfig, logger *slog.Logger) (Connector, error) {
	switch cfg.Kind {
	case models.KindVendorSalesforce:
		return NewSalesforce(cfg, logger), nil
	case models.KindVendorSAP:
		return NewSAP(cfg, logger), nil
	case models.KindVendorTOTVS:
		return NewTOTVS(cfg, logger), nil
	case models.KindVendorAnalytics:
		return NewAnalytics(cfg, logger), nil
	case models.KindVendorBI:
		return NewBI(cfg, logger), nil
	default:
		return nil, fmt.Errorf("no connector for kind %q", cfg.Kind)
	}
}
