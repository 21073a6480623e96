package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insightdash/syncengine/internal/models"
)

// SAPConnector pulls ERP entities through the SAP OData gateway.
type SAPConnector struct {
	base
}

func NewSAP(cfg models.ConnectorConfig, logger *slog.Logger) *SAPConnector {
	return &SAPConnector{base: newBase(cfg, logger)}
}

// sapODataResult is the OData v2 response envelope.
type sapODataResult struct {
	D struct {
		Results []models.Record `json:"results"`
	} `json:"d"`
}

func (c *SAPConnector) fetchEntitySet(ctx context.Context, entity, set, idField string) ([]models.SourceRecord, error) {
	var result sapODataResult
	if err := c.get(ctx, c.url("/sap/opu/odata/sap/"+set), &result); err != nil {
		return nil, err
	}

	out := make([]models.SourceRecord, 0, len(result.D.Results))
	for _, rec := range result.D.Results {
		delete(rec, "__metadata")
		out = append(out, models.SourceRecord{
			ID:           fmt.Sprint(rec[idField]),
			Type:         entity,
			Data:         rec,
			LastModified: parseVendorTime(rec["ChangedOn"]),
		})
	}
	return out, nil
}

func (c *SAPConnector) FetchMaterials(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchEntitySet(ctx, "material", "API_MATERIAL_SRV/A_Material", "Material")
}

func (c *SAPConnector) FetchProductionOrders(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchEntitySet(ctx, "production_order", "API_PRODUCTION_ORDER_SRV/A_ProductionOrder", "ProductionOrder")
}

func (c *SAPConnector) FetchInvoices(ctx context.Context) ([]models.SourceRecord, error) {
	return c.fetchEntitySet(ctx, "invoice", "API_BILLING_DOCUMENT_SRV/A_BillingDocument", "BillingDocument")
}

func (c *SAPConnector) SyncAll(ctx context.Context) SyncSummary {
	return c.syncAll(ctx, []fetchOp{
		{"material", c.FetchMaterials},
		{"production_order", c.FetchProductionOrders},
		{"invoice", c.FetchInvoices},
	})
}

func (c *SAPConnector) TestConnection(ctx context.Context) bool {
	return c.testConnection(ctx, c.url("/sap/opu/odata/sap/API_MATERIAL_SRV/$metadata"))
}
