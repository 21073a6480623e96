// Package gateway is the registry mapping connector ids to connector
// configuration and instances. It is a pure dispatch layer: it holds no
// sync history, so the orchestrator and ledger can be swapped without
// touching connector logic.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/insightdash/syncengine/internal/connector"
	"github.com/insightdash/syncengine/internal/models"
	"github.com/insightdash/syncengine/internal/readers"
)

// UnknownConnectorError reports a sync or lookup against an id that was
// never registered.
type UnknownConnectorError struct {
	ID string
}

func (e *UnknownConnectorError) Error() string {
	return fmt.Sprintf("unknown connector: %s", e.ID)
}

// Gateway owns every ConnectorConfig and vendor connector instance for the
// process lifetime.
type Gateway struct {
	logger *slog.Logger

	mu         sync.RWMutex
	configs    map[string]models.ConnectorConfig
	connectors map[string]connector.Connector
}

func New(logger *slog.Logger) *Gateway {
	return &Gateway{
		logger:     logger,
		configs:    make(map[string]models.ConnectorConfig),
		connectors: make(map[string]connector.Connector),
	}
}

// Register adds one connector config, instantiating the vendor connector
// for vendor kinds. Configs are immutable once registered; re-registering
// an id is an error.
func (g *Gateway) Register(cfg models.ConnectorConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("connector id is required")
	}
	if !cfg.Kind.Valid() {
		return fmt.Errorf("unknown connector kind %q", cfg.Kind)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.configs[cfg.ID]; exists {
		return fmt.Errorf("connector %s already registered", cfg.ID)
	}

	if cfg.Kind.IsVendor() {
		inst, err := connector.New(cfg, g.logger)
		if err != nil {
			return err
		}
		g.connectors[cfg.ID] = inst
	}

	g.configs[cfg.ID] = cfg
	g.logger.Info("connector registered", "id", cfg.ID, "kind", cfg.Kind)
	return nil
}

// GetConfig returns the config for an id.
func (g *Gateway) GetConfig(id string) (models.ConnectorConfig, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cfg, ok := g.configs[id]
	return cfg, ok
}

// AllConfigs returns every registered config, ordered by id.
func (g *Gateway) AllConfigs() []models.ConnectorConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.ConnectorConfig, 0, len(g.configs))
	for _, cfg := range g.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Connector returns the vendor connector instance for an id.
func (g *Gateway) Connector(id string) (connector.Connector, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inst, ok := g.connectors[id]
	if !ok {
		return nil, &UnknownConnectorError{ID: id}
	}
	return inst, nil
}

// Reader builds the record reader for a reader-kind id.
func (g *Gateway) Reader(id string) (readers.Reader, error) {
	cfg, ok := g.GetConfig(id)
	if !ok {
		return nil, &UnknownConnectorError{ID: id}
	}
	return readers.ForConfig(cfg)
}

// Sync dispatches "sync connector X" to the matching vendor connector's
// SyncAll. Reader-kind connectors sync through the orchestrator pipeline
// instead; asking the gateway directly is an error.
func (g *Gateway) Sync(ctx context.Context, id string) (connector.SyncSummary, error) {
	cfg, ok := g.GetConfig(id)
	if !ok {
		return connector.SyncSummary{}, &UnknownConnectorError{ID: id}
	}
	if !cfg.Kind.IsVendor() {
		return connector.SyncSummary{}, fmt.Errorf("connector %s is reader-backed; sync it through the orchestrator", id)
	}

	inst, err := g.Connector(id)
	if err != nil {
		return connector.SyncSummary{}, err
	}
	return inst.SyncAll(ctx), nil
}

// TestConnection probes a vendor connector's reachability.
func (g *Gateway) TestConnection(ctx context.Context, id string) (bool, error) {
	inst, err := g.Connector(id)
	if err != nil {
		return false, err
	}
	return inst.TestConnection(ctx), nil
}
