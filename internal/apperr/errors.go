// Package apperr defines the error taxonomy shared by the exporter.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrWriteFailure      = errors.New("write failure")
	ErrFormatFailure     = errors.New("format failure")
	ErrNotManaged        = errors.New("not a managed entry")
)

// EntryError reports a failure tied to a single entry. It unwraps to both
// Kind and Err, so errors.Is matches the taxonomy sentinel and the cause.
type EntryError struct {
	ID   string
	Path string
	Kind error
	Err  error
}

func (e *EntryError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("entry %s: %v: %v", e.ID, e.Kind, e.Err)
	}
	return fmt.Sprintf("entry %s (%s): %v: %v", e.ID, e.Path, e.Kind, e.Err)
}

func (e *EntryError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ErrConflict reports that a file changed on disk after the vault was scanned.
var ErrConflict = errors.New("conflict")
