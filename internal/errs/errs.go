// Package errs defines the error values shared across the service.
package errs

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a submission carries no payload.
var ErrNoData = errors.New("No data provided")

// StorageError reports a failed store operation.
type StorageError struct {
	Op       string // store operation, e.g. "insert"
	ClientID string // empty for operations not tied to one client
	Err      error
}

func (e *StorageError) Error() string {
	if e.ClientID != "" {
		return fmt.Sprintf("storage %s [client=%s]: %v", e.Op, e.ClientID, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RenderError reports a chart that could not be drawn.
type RenderError struct {
	Dimension string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.Dimension, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
