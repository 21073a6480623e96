package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/insightdash/syncengine/internal/models"
)

// SalesforceConnector pulls CRM entities through the Salesforce query API.
type SalesforceConnector struct {
	base
}

func NewSalesforce(cfg models.ConnectorConfig, logger *slog.Logger) *SalesforceConnector {
	return &SalesforceConnector{base: newBase(cfg, logger)}
}

// sfQueryResult is the Salesforce SOQL response envelope.
type sfQueryResult struct {
	TotalSize int             `json:"totalSize"`
	Done      bool            `json:"done"`
	Records   []models.Record `json:"records"`
}

func (c *SalesforceConnector) query(ctx context.Context, entity, soql string) ([]models.SourceRecord, error) {
	var result sfQueryResult
	endpoint := c.url("/services/data/v58.0/query?q=" + url.QueryEscape(soql))
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	out := make([]models.SourceRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		delete(rec, "attributes") // SOQL metadata, not entity data
		out = append(out, models.SourceRecord{
			ID:           fmt.Sprint(rec["Id"]),
			Type:         entity,
			Data:         rec,
			LastModified: parseVendorTime(rec["LastModifiedDate"]),
		})
	}
	return out, nil
}

// FetchAccounts returns accounts, optionally filtered by industry.
func (c *SalesforceConnector) FetchAccounts(ctx context.Context) ([]models.SourceRecord, error) {
	soql := "SELECT Id, Name, Industry, AnnualRevenue, LastModifiedDate FROM Account"
	if industry := c.cfg.Setting("industry", ""); industry != "" {
		soql += " WHERE Industry = '" + industry + "'"
	}
	return c.query(ctx, "account", soql)
}

func (c *SalesforceConnector) FetchContacts(ctx context.Context) ([]models.SourceRecord, error) {
	return c.query(ctx, "contact",
		"SELECT Id, FirstName, LastName, Email, AccountId, LastModifiedDate FROM Contact")
}

func (c *SalesforceConnector) FetchLeads(ctx context.Context) ([]models.SourceRecord, error) {
	return c.query(ctx, "lead",
		"SELECT Id, Name, Company, Status, Email, LastModifiedDate FROM Lead")
}

func (c *SalesforceConnector) FetchOpportunities(ctx context.Context) ([]models.SourceRecord, error) {
	return c.query(ctx, "opportunity",
		"SELECT Id, Name, StageName, Amount, CloseDate, LastModifiedDate FROM Opportunity")
}

func (c *SalesforceConnector) FetchCampaigns(ctx context.Context) ([]models.SourceRecord, error) {
	return c.query(ctx, "campaign",
		"SELECT Id, Name, Status, Type, StartDate, LastModifiedDate FROM Campaign")
}

func (c *SalesforceConnector) SyncAll(ctx context.Context) SyncSummary {
	return c.syncAll(ctx, []fetchOp{
		{"account", c.FetchAccounts},
		{"contact", c.FetchContacts},
		{"lead", c.FetchLeads},
		{"opportunity", c.FetchOpportunities},
		{"campaign", c.FetchCampaigns},
	})
}

func (c *SalesforceConnector) TestConnection(ctx context.Context) bool {
	return c.testConnection(ctx, c.url("/services/data/v58.0/limits"))
}

// vendorTimeLayouts covers the timestamp formats the vendors emit.
var vendorTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700", // Salesforce
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseVendorTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range vendorTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
