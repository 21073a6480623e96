package models

import "time"

// Record is one untyped row/entity pulled from a data source.
// It is transient: created by a reader or connector, consumed by the
// pipeline, never persisted as-is. A nil Record models the "non-object"
// payloads that occasionally leak out of loosely-typed sources.
type Record map[string]any

// IsObject reports whether the record carries field data at all.
func (r Record) IsObject() bool {
	return r != nil
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SourceRecord is the uniform envelope every connector fetch operation
// maps its vendor's native response shape into.
type SourceRecord struct {
	ID           string    `json:"id"`            // Vendor-side identifier
	Type         string    `json:"type"`          // Entity type (account, material, ...)
	Data         Record    `json:"data"`          // Raw entity payload
	LastModified time.Time `json:"last_modified"` // Vendor-side modification timestamp
}
