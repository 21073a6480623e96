package readers

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/insightdash/syncengine/internal/models"
)

// CSVReader reads records from a local delimited file. The first row is
// treated as the header unless HasHeader is false, in which case columns
// are named col_1, col_2, ...
type CSVReader struct {
	Path      string
	Delimiter rune // Defaults to comma
	HasHeader bool
}

// NewCSVReader returns a reader over the given file with a header row.
func NewCSVReader(path string) *CSVReader {
	return &CSVReader{Path: path, Delimiter: ',', HasHeader: true}
}

func (r *CSVReader) Read(ctx context.Context) ([]models.Record, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, readErr(r.Path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if r.Delimiter != 0 {
		reader.Comma = r.Delimiter
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, readErr(r.Path, err)
	}
	if len(rows) == 0 {
		return nil, readErr(r.Path, fmt.Errorf("empty file"))
	}

	var headers []string
	if r.HasHeader {
		headers = rows[0]
		rows = rows[1:]
	} else {
		headers = make([]string, len(rows[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i+1)
		}
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, readErr(r.Path, err)
		}
		rec := make(models.Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = inferValue(row[i])
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// inferValue parses a cell as a number or bool, falling back to the string.
func inferValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	return s
}
