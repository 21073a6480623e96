// Package pipeline holds the pure in-memory stages a sync runs records
// through: transform, validate, dedupe. Stages never suspend and keep no
// cross-sync state.
package pipeline

import (
	"log/slog"
)

// Stages bundles the pipeline stages with a logger for the defensive
// non-object warnings. A zero Stages value is usable.
type Stages struct {
	Logger *slog.Logger
}

func (s Stages) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
