package pipeline

import (
	"github.com/insightdash/syncengine/internal/models"
)

// Transform reshapes each record according to the source→target field
// mapping. For every mapping entry whose source field is present, the value
// is copied under the target field into a fresh record; unmapped fields are
// dropped. Non-object records pass through unchanged. Order-preserving,
// never drops or merges rows.
func (s Stages) Transform(records []models.Record, mapping []models.FieldMapping) []models.Record {
	out := make([]models.Record, 0, len(records))

	for _, rec := range records {
		if !rec.IsObject() {
			out = append(out, rec)
			continue
		}

		mapped := make(models.Record, len(mapping))
		for _, m := range mapping {
			if v, ok := rec[m.SourceField]; ok {
				mapped[m.TargetField] = v
			}
		}
		out = append(out, mapped)
	}

	return out
}
