package pipeline

import (
	"fmt"
	"time"

	"github.com/insightdash/syncengine/internal/models"
)

// Invalid pairs a rejected record with the validation errors it collected.
type Invalid struct {
	Record models.Record `json:"record"`
	Errors []string      `json:"errors"`
}

// Validate partitions records into valid and invalid against the declared
// schema. Missing or nil declared fields and type mismatches are collected
// as messages, never panics. Non-object records are treated as trivially
// valid; this preserves the defensive behavior of the rest of the pipeline
// and is logged at warn pending product clarification.
func (s Stages) Validate(records []models.Record, schema models.ValidationSchema) (valid []models.Record, invalid []Invalid) {
	valid = make([]models.Record, 0, len(records))
	nonObjects := 0

	for _, rec := range records {
		if !rec.IsObject() {
			nonObjects++
			valid = append(valid, rec)
			continue
		}

		var errs []string
		for field, want := range schema {
			v, ok := rec[field]
			if !ok || v == nil {
				errs = append(errs, fmt.Sprintf("%s is required", field))
				continue
			}
			if !matchesType(v, want) {
				errs = append(errs, fmt.Sprintf("%s must be %s", field, want))
			}
		}

		if len(errs) > 0 {
			invalid = append(invalid, Invalid{Record: rec, Errors: errs})
		} else {
			valid = append(valid, rec)
		}
	}

	if nonObjects > 0 {
		s.logger().Warn("non-object records passed validation untouched", "count", nonObjects)
	}

	return valid, invalid
}

// dateLayouts are the string forms accepted as dates, broadly matching what
// lenient upstream date parsing allowed.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC1123,
}

func matchesType(v any, want models.FieldType) bool {
	switch want {
	case models.FieldString:
		_, ok := v.(string)
		return ok
	case models.FieldNumber:
		switch v.(type) {
		case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case models.FieldBoolean:
		_, ok := v.(bool)
		return ok
	case models.FieldDate:
		return isDate(v)
	}
	// Undeclared types never reject a record.
	return true
}

func isDate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	case string:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, t); err == nil {
				return true
			}
		}
		return false
	}
	return false
}
