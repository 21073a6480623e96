package pipeline

import (
	"fmt"
	"strings"

	"github.com/insightdash/syncengine/internal/models"
)

// Dedupe collapses records sharing a composite natural key built from the
// unique fields, keeping the first occurrence and preserving input order.
// Non-object records always pass through; they are never considered
// duplicates of anything. Running Dedupe on its own output is a no-op.
func (s Stages) Dedupe(records []models.Record, uniqueFields []string) []models.Record {
	if len(uniqueFields) == 0 {
		return records
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]models.Record, 0, len(records))
	nonObjects := 0

	for _, rec := range records {
		if !rec.IsObject() {
			nonObjects++
			out = append(out, rec)
			continue
		}

		key := compositeKey(rec, uniqueFields)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}

	if nonObjects > 0 {
		s.logger().Warn("non-object records passed deduplication untouched", "count", nonObjects)
	}

	return out
}

// compositeKey joins the string form of each unique-field value with "|".
func compositeKey(rec models.Record, uniqueFields []string) string {
	parts := make([]string, len(uniqueFields))
	for i, f := range uniqueFields {
		parts[i] = fmt.Sprint(rec[f])
	}
	return strings.Join(parts, "|")
}
