package readers

import (
	"fmt"

	"github.com/insightdash/syncengine/internal/models"
)

// ForConfig builds the reader matching a connector config's kind. Vendor
// kinds have no reader; they sync through their connector instead.
func ForConfig(cfg models.ConnectorConfig) (Reader, error) {
	switch cfg.Kind {
	case models.KindFileCSV:
		r := NewCSVReader(cfg.Setting("path", ""))
		if d := cfg.Setting("delimiter", ""); d != "" {
			r.Delimiter = rune(d[0])
		}
		if cfg.Setting("has_header", "true") == "false" {
			r.HasHeader = false
		}
		return r, nil

	case models.KindFileExcel:
		r := NewExcelReader(cfg.Setting("path", ""))
		r.Sheet = cfg.Setting("sheet", "")
		return r, nil

	case models.KindHTTPAPI:
		headers := map[string]string{}
		if auth := cfg.Setting("authorization", ""); auth != "" {
			headers["Authorization"] = auth
		}
		return NewHTTPReader(cfg.Setting("url", ""), headers), nil

	case models.KindSQLPostgres:
		return NewSQLReader("postgres", cfg.Setting("dsn", ""), cfg.Setting("query", "")), nil

	case models.KindSQLMySQL:
		return NewSQLReader("mysql", cfg.Setting("dsn", ""), cfg.Setting("query", "")), nil

	default:
		return nil, fmt.Errorf("no reader for connector kind %q", cfg.Kind)
	}
}
