package readers

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver

	"github.com/insightdash/syncengine/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// SQLReader runs one query against a relational database and returns every
// row as a record keyed by column name. Driver is "postgres" or "mysql".
type SQLReader struct {
	Driver  string
	DSN     string
	Query   string
	Timeout time.Duration
}

func NewSQLReader(driver, dsn, query string) *SQLReader {
	return &SQLReader{Driver: driver, DSN: dsn, Query: query, Timeout: defaultQueryTimeout}
}

func (r *SQLReader) Read(ctx context.Context) ([]models.Record, error) {
	db, err := sql.Open(r.Driver, r.DSN)
	if err != nil {
		return nil, readErr(r.Query, err)
	}
	defer db.Close()

	timeout := r.Timeout
	if timeout == 0 {
		timeout = defaultQueryTimeout
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, r.Query)
	if err != nil {
		return nil, readErr(r.Query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, readErr(r.Query, err)
	}

	var records []models.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, readErr(r.Query, err)
		}

		rec := make(models.Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeSQLValue(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(r.Query, err)
	}

	return records, nil
}

// normalizeSQLValue converts driver-specific scan types into plain values.
func normalizeSQLValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}
