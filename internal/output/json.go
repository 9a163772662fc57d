package output

import (
	"encoding/json"
	"io"

	"github.com/cseelye/file-crawler/internal/indexer"
)

// JSONFormatter writes one JSON message per line: a "count" message, one
// "word" message per ranked word and, optionally, a "summary" message.
type JSONFormatter struct {
	writer  io.Writer
	encoder *json.Encoder
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)

	return &JSONFormatter{
		writer:  w,
		encoder: encoder,
	}
}

// JSONMessage is the envelope of every line.
type JSONMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type JSONCountData struct {
	UniqueWords int `json:"unique_words"`
}

type JSONWordData struct {
	Rank  int    `json:"rank"`
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type JSONSummaryData struct {
	RunID           string   `json:"run_id"`
	Elapsed         Duration `json:"elapsed"`
	FilesDiscovered int64    `json:"files_discovered"`
	FilesProcessed  int64    `json:"files_processed"`
	FilesFailed     int64    `json:"files_failed"`
	Tokens          int64    `json:"tokens"`
	BytesRead       int64    `json:"bytes_read"`
	DirsTraversed   int64    `json:"dirs_traversed"`
	DirsFailed      int64    `json:"dirs_failed"`
	SymlinksSkipped int64    `json:"symlinks_skipped"`
	UniqueWords     int      `json:"unique_words"`
}

func (f *JSONFormatter) FormatReport(report Report) error {
	if err := f.encoder.Encode(JSONMessage{
		Type: "count",
		Data: JSONCountData{UniqueWords: report.UniqueWords},
	}); err != nil {
		return err
	}

	for i, wc := range report.Top {
		msg := JSONMessage{
			Type: "word",
			Data: JSONWordData{Rank: i + 1, Word: wc.Word, Count: wc.Count},
		}
		if err := f.encoder.Encode(msg); err != nil {
			return err
		}
	}
	return f.Flush()
}

func (f *JSONFormatter) FormatSummary(stats *indexer.RunStats) error {
	msg := JSONMessage{
		Type: "summary",
		Data: JSONSummaryData{
			RunID:           stats.RunID,
			Elapsed:         NewDuration(stats.Duration),
			FilesDiscovered: stats.FilesDiscovered,
			FilesProcessed:  stats.FilesProcessed,
			FilesFailed:     stats.FilesFailed,
			Tokens:          stats.Tokens,
			BytesRead:       stats.BytesRead,
			DirsTraversed:   stats.DirsTraversed,
			DirsFailed:      stats.DirsFailed,
			SymlinksSkipped: stats.SymlinksSkipped,
			UniqueWords:     stats.UniqueWords,
		},
	}
	if err := f.encoder.Encode(msg); err != nil {
		return err
	}
	return f.Flush()
}

// Flush flushes the writer if it buffers.
func (f *JSONFormatter) Flush() error {
	if flusher, ok := f.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
