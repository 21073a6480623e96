package models

import "time"

// ConnectorKind enumerates the supported data-source kinds.
type ConnectorKind string

const (
	KindFileCSV          ConnectorKind = "file-csv"
	KindFileExcel        ConnectorKind = "file-excel"
	KindHTTPAPI          ConnectorKind = "http-api"
	KindSQLPostgres      ConnectorKind = "sql-postgres"
	KindSQLMySQL         ConnectorKind = "sql-mysql"
	KindVendorSalesforce ConnectorKind = "vendor-salesforce"
	KindVendorSAP        ConnectorKind = "vendor-sap"
	KindVendorTOTVS      ConnectorKind = "vendor-totvs"
	KindVendorAnalytics  ConnectorKind = "vendor-analytics"
	KindVendorBI         ConnectorKind = "vendor-bi"
)

// IsVendor reports whether the kind is a stateful vendor connector rather
// than a plain record reader.
func (k ConnectorKind) IsVendor() bool {
	switch k {
	case KindVendorSalesforce, KindVendorSAP, KindVendorTOTVS, KindVendorAnalytics, KindVendorBI:
		return true
	}
	return false
}

// Valid reports whether the kind is one of the enumerated source kinds.
func (k ConnectorKind) Valid() bool {
	switch k {
	case KindFileCSV, KindFileExcel, KindHTTPAPI, KindSQLPostgres, KindSQLMySQL:
		return true
	}
	return k.IsVendor()
}

// ConnectorConfig identifies one external system. Created at registration
// time, immutable for the process lifetime, owned by the gateway.
type ConnectorConfig struct {
	ID       string            `json:"id"`       // Unique connector identifier
	Name     string            `json:"name"`     // Human-readable name
	Kind     ConnectorKind     `json:"kind"`     // Source kind
	Settings map[string]string `json:"settings"` // Credentials, URLs, query text

	// Per-source pipeline declarations, passed into the pipeline at sync
	// time rather than hard-coded per connector.
	Mapping      []FieldMapping   `json:"mapping,omitempty"`
	Schema       ValidationSchema `json:"schema,omitempty"`
	UniqueFields []string         `json:"unique_fields,omitempty"`
}

// Setting returns a settings value, or fallback when absent.
func (c ConnectorConfig) Setting(key, fallback string) string {
	if v, ok := c.Settings[key]; ok && v != "" {
		return v
	}
	return fallback
}

// ConnectorStatus is the rolling aggregate for one connector, mutated in
// place after every sync. Invariant: SuccessfulSyncs+FailedSyncs==TotalSyncs.
type ConnectorStatus struct {
	ConnectorID        string     `json:"connector_id"`
	IsConnected        bool       `json:"is_connected"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus     SyncStatus `json:"last_sync_status,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
	TotalSyncs         int64      `json:"total_syncs"`
	SuccessfulSyncs    int64      `json:"successful_syncs"`
	FailedSyncs        int64      `json:"failed_syncs"`
	TotalRecordsSynced int64      `json:"total_records_synced"`
	AvgDurationMs      float64    `json:"avg_duration_ms"`
}

// Apply folds one sync result into the rolling status. The average
// duration uses the incremental mean: (avg*n + new) / (n+1).
func (s *ConnectorStatus) Apply(result SyncResult) {
	n := float64(s.TotalSyncs)
	s.AvgDurationMs = (s.AvgDurationMs*n + float64(result.DurationMs)) / (n + 1)

	s.TotalSyncs++
	now := result.FinishedAt
	s.LastSyncAt = &now
	s.LastSyncStatus = result.Status

	if result.Status == SyncSuccess {
		s.SuccessfulSyncs++
		s.IsConnected = true
		s.LastError = ""
		s.TotalRecordsSynced += int64(result.RecordsInserted)
	} else {
		s.FailedSyncs++
		s.IsConnected = false
		if len(result.Errors) > 0 {
			s.LastError = result.Errors[0]
		}
	}
}

// SuccessRate returns the percentage of successful syncs, 0 when none ran.
func (s ConnectorStatus) SuccessRate() float64 {
	if s.TotalSyncs == 0 {
		return 0
	}
	return float64(s.SuccessfulSyncs) / float64(s.TotalSyncs) * 100
}
