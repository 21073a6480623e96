package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insightdash/syncengine/internal/models"
)

// TOTVSConnector pulls ERP entities from the TOTVS Protheus REST API.
type TOTVSConnector struct {
	base
}

func NewTOTVS(cfg models.ConnectorConfig, logger *slog.Logger) *TOTVSConnector {
	return &TOTVSConnector{base: newBase(cfg, logger)}
}

// totvsPage is the Protheus paged list envelope.
type totvsPage struct {
	Items   []models.Record `json:"items"`
	HasNext bool            `json:"hasNext"`
}

func (c *TOTVSConnector) fetchList(ctx context.Context, entity, path, idField string) ([]models.SourceRecord, error) {
	var page totvsPage
	if err := c.get(ctx, c.url(path), &page); err != nil {
		return nil, err
	}

	out := make([]models.SourceRecord, 0, len(page.Items))
	for _, rec := range page.Items {
		out = append(out, models.SourceRecord{
			ID:           fmt.Sprint(rec[idField]),
			Type:         entity,
			Data:         rec,
			LastModified: parseVendorTime(rec["updatedAt"]),
		})
	}
	return out, nil
}

func (c *TOTVSConnector) FetchProducts(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchList(ctx, "product", "/api/inventory/v1/products", "code")
}

func (c *TOTVSConnector) FetchClients(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchList(ctx, "client", "/api/crm/v1/clients", "code")
}

func (c *TOTVSConnector) SyncAll(ctx context.Context) SyncSummary {
	return c.syncAll(ctx, []fetchOp{
		{"product", c.FetchProducts},
		{"client", c.FetchClients},
	})
}

func (c *TOTVSConnector) TestConnection(ctx context.Context) bool {
	return c.testConnection(ctx, c.url("/api/framework/v1/health"))
}
