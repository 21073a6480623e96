package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insightdash/syncengine/internal/models"
)

// BIConnector pulls report and dashboard inventories from a BI platform.
type BIConnector struct {
	base
}

func NewBI(cfg models.ConnectorConfig, logger *slog.Logger) *BIConnector {
	return &BIConnector{base: newBase(cfg, logger)}
}

// biCollection is the BI platform's collection envelope.
type biCollection struct {
	Value []models.Record `json:"value"`
}

func (c *BIConnector) fetchCollection(ctx context.Context, entity, path string) ([]models.SourceRecord, error) {
	var collection biCollection
	if err := c.get(ctx, c.url(path), &collection); err != nil {
		return nil, err
	}

	out := make([]models.SourceRecord, 0, len(collection.Value))
	for _, rec := range collection.Value {
		out = append(out, models.SourceRecord{
			ID:           fmt.Sprint(rec["id"]),
			Type:         entity,
			Data:         rec,
			LastModified: parseVendorTime(rec["modifiedDateTime"]),
		})
	}
	return out, nil
}

func (c *BIConnector) FetchReports(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchCollection(ctx, "report", "/v1.0/myorg/reports")
}

func (c *BIConnector) FetchDashboards(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchCollection(ctx, "dashboard", "/v1.0/myorg/dashboards")
}

func (c *BIConnector) SyncAll(ctx context.Context) SyncSummary {
	return c.syncAll(ctx, []fetchOp{
		{"report", c.FetchReports},
		{"dashboard", c.FetchDashboards},
	})
}

func (c *BIConnector) TestConnection(ctx context.Context) bool {
	return c.testConnection(ctx, c.url("/v1.0/myorg/availableFeatures"))
}
