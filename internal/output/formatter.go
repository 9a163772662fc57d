// Package output renders indexing results for the terminal or for other
// programs.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cseelye/file-crawler/internal/accumulator"
	"github.com/cseelye/file-crawler/internal/indexer"
)

// Format represents the output format type
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be %s or %s", s, FormatText, FormatJSON)
	}
}

// Report is the result of a run: the vocabulary size and the ranked words.
type Report struct {
	UniqueWords int
	Top         []accumulator.WordCount
}

// Duration represents a time duration as seconds, nanoseconds and a human
// readable string.
type Duration struct {
	Secs  int64  `json:"secs"`
	Nanos int64  `json:"nanos"`
	Human string `json:"human"`
}

// NewDuration creates a Duration from time.Duration
func NewDuration(d time.Duration) Duration {
	nanos := d.Nanoseconds()
	return Duration{
		Secs:  nanos / 1e9,
		Nanos: nanos % 1e9,
		Human: d.String(),
	}
}

// Formatter defines the interface for output formatting
type Formatter interface {
	// FormatReport writes the unique word count and the ranked words.
	FormatReport(report Report) error

	// FormatSummary writes run statistics.
	FormatSummary(stats *indexer.RunStats) error

	// Flush any buffered output
	Flush() error
}

// New creates a formatter for format writing to w.
func New(w io.Writer, format Format) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(w)
	default:
		return NewTextFormatter(w)
	}
}
