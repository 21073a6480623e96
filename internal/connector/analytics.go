package connector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/insightdash/syncengine/internal/models"
)

// AnalyticsConnector pulls aggregated web-analytics reports.
type AnalyticsConnector struct {
	base
}

func NewAnalytics(cfg models.ConnectorConfig, logger *slog.Logger) *AnalyticsConnector {
	return &AnalyticsConnector{base: newBase(cfg, logger)}
}

// analyticsReport is the reporting API envelope: rows of dimension/metric
// pairs plus the report window.
type analyticsReport struct {
	Rows        []models.Record `json:"rows"`
	GeneratedAt string          `json:"generatedAt"`
}

func (c *AnalyticsConnector) fetchReport(ctx context.Context, entity, path string) ([]models.SourceRecord, error) {
	var report analyticsReport
	if err := c.get(ctx, c.url(path), &report); err != nil {
		return nil, err
	}

	generated := parseVendorTime(report.GeneratedAt)
	if generated.IsZero() {
		generated = time.Now()
	}

	out := make([]models.SourceRecord, 0, len(report.Rows))
	for i, rec := range report.Rows {
		out = append(out, models.SourceRecord{
			ID:           fmt.Sprintf("%s-%d", entity, i),
			Type:         entity,
			Data:         rec,
			LastModified: generated,
		})
	}
	return out, nil
}

func (c *AnalyticsConnector) FetchTrafficSummary(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchReport(ctx, "traffic_summary", "/v4/reports/traffic?period=7d")
}

func (c *AnalyticsConnector) FetchTopPages(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchReport(ctx, "top_pages", "/v4/reports/pages?period=7d&limit=100")
}

func (c *AnalyticsConnector) SyncAll(ctx context.Context) SyncSummary {
	return c.syncAll(ctx, []fetchOp{
		{"traffic_summary", c.FetchTrafficSummary},
		{"top_pages", c.FetchTopPages},
	})
}

func (c *AnalyticsConnector) TestConnection(ctx context.Context) bool {
	return c.testConnection(ctx, c.url("/v4/metadata"))
}
