package readers

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/insightdash/syncengine/internal/models"
)

// ExcelReader reads records from one sheet of an xlsx workbook. The first
// row is the header. When Sheet is empty the workbook's first sheet is used.
type ExcelReader struct {
	Path  string
	Sheet string
}

func NewExcelReader(path string) *ExcelReader {
	return &ExcelReader{Path: path}
}

func (r *ExcelReader) Read(ctx context.Context) ([]models.Record, error) {
	f, err := excelize.OpenFile(r.Path)
	if err != nil {
		return nil, readErr(r.Path, err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, readErr(r.Path, fmt.Errorf("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, readErr(r.Path, err)
	}
	if len(rows) == 0 {
		return nil, readErr(r.Path, fmt.Errorf("sheet %q is empty", sheet))
	}

	headers := rows[0]
	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
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
