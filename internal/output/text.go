package output

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cseelye/file-crawler/internal/indexer"
)

// TextFormatter writes the plain "<n> words found" report followed by
// tab-separated word and count lines.
type TextFormatter struct {
	writer *bufio.Writer
}

func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: bufio.NewWriter(w)}
}

func (f *TextFormatter) FormatReport(report Report) error {
	fmt.Fprintf(f.writer, "%d words found\n", report.UniqueWords)
	for _, wc := range report.Top {
		fmt.Fprintf(f.writer, "%s\t%d\n", wc.Word, wc.Count)
	}
	return f.Flush()
}

func (f *TextFormatter) FormatSummary(stats *indexer.RunStats) error {
	w := f.writer
	fmt.Fprintf(w, "Run %s finished in %s\n", stats.RunID, stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Files:       %s processed, %s failed, %s discovered\n",
		humanize.Comma(stats.FilesProcessed),
		humanize.Comma(stats.FilesFailed),
		humanize.Comma(stats.FilesDiscovered))
	fmt.Fprintf(w, "  Read:        %s (%s/s)\n",
		humanize.Bytes(uint64(stats.BytesRead)),
		humanize.Bytes(throughput(stats.BytesRead, stats.Duration)))
	fmt.Fprintf(w, "  Words:       %s tokens, %s unique\n",
		humanize.Comma(stats.Tokens),
		humanize.Comma(int64(stats.UniqueWords)))
	fmt.Fprintf(w, "  Directories: %s traversed, %s unreadable, %s symlinks skipped\n",
		humanize.Comma(stats.DirsTraversed),
		humanize.Comma(stats.DirsFailed),
		humanize.Comma(stats.SymlinksSkipped))
	return f.Flush()
}

func (f *TextFormatter) Flush() error {
	return f.writer.Flush()
}

func throughput(bytes int64, d time.Duration) uint64 {
	if d <= 0 || bytes <= 0 {
		return 0
	}
	return uint64(float64(bytes) / d.Seconds())
}
