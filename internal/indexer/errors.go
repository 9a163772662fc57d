package indexer

import (
	"errors"
	"fmt"

	"github.com/cseelye/file-crawler/internal/metrics"
)

var (
	// ErrInvalidThreadCount is returned for a non-positive thread count.
	ErrInvalidThreadCount = errors.New("thread count must be a positive integer")
	ErrEmptyPath          = errors.New("path is required")
	ErrAlreadyRunning     = errors.New("indexer is already running")
)

// File operations that can fail while processing a single file.
const (
	OpOpen = "open"
	OpRead = "read"
)

// FileError records a failure to process one file. It is reported and
// counted but never aborts the run.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// failureReason maps a job error to the metrics label it is counted under.
// Anything that is not a FileError came out of a recovered panic.
func failureReason(err error) string {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		switch fileErr.Op {
		case OpOpen:
			return metrics.ReasonOpen
		case OpRead:
			return metrics.ReasonRead
		}
	}
	return metrics.ReasonPanic
}
