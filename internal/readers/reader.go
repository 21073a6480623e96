// Package readers pulls flat record sets out of file, HTTP and SQL sources.
//
// A reader either yields the complete record set or fails atomically with a
// *ReadError; it performs no validation or transformation.
package readers

import (
	"context"
	"fmt"

	"github.com/insightdash/syncengine/internal/models"
)

// Reader retrieves all records from one source.
type Reader interface {
	Read(ctx context.Context) ([]models.Record, error)
}

// ReadError wraps the underlying I/O or parse failure of a reader.
type ReadError struct {
	Source string // What was being read (path, URL, query)
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

func readErr(source string, err error) error {
	return &ReadError{Source: source, Err: err}
}
