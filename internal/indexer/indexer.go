// Package indexer runs one indexing session: it walks a directory tree on
// the calling goroutine, tokenizes every matching file on a worker pool and
// accumulates word counts for querying afterwards.
package indexer

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cseelye/file-crawler/internal/accumulator"
	"github.com/cseelye/file-crawler/internal/logging"
	"github.com/cseelye/file-crawler/internal/metrics"
	"github.com/cseelye/file-crawler/internal/pool"
	"github.com/cseelye/file-crawler/internal/tokenizer"
	"github.com/cseelye/file-crawler/internal/walker"
)

// DefaultThreads is the worker count used when none is configured.
const DefaultThreads = 3

// Config is the validated input of an indexing session. It is read once by
// New and never changes afterwards.
type Config struct {
	Path    string
	Threads int
}

// Validate checks that the configuration can be run.
func (c Config) Validate() error {
	if c.Threads <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreadCount, c.Threads)
	}
	if c.Path == "" {
		return ErrEmptyPath
	}
	return nil
}

// RunStats summarizes a single Run.
type RunStats struct {
	RunID           string        `json:"run_id"`
	FilesDiscovered int64         `json:"files_discovered"`
	FilesProcessed  int64         `json:"files_processed"`
	FilesFailed     int64         `json:"files_failed"`
	Tokens          int64         `json:"tokens"`
	BytesRead       int64         `json:"bytes_read"`
	DirsTraversed   int64         `json:"dirs_traversed"`
	DirsFailed      int64         `json:"dirs_failed"`
	SymlinksSkipped int64         `json:"symlinks_skipped"`
	UniqueWords     int           `json:"unique_words"`
	Duration        time.Duration `json:"duration"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
}

// Option configures an Indexer.
type Option func(*Indexer)

func WithLogger(logger zerolog.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// WithMetrics records run activity on m instead of a private set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Indexer) {
		ix.metrics = m
	}
}

// WithShards sets the accumulator shard count.
func WithShards(n int) Option {
	return func(ix *Indexer) {
		ix.shards = n
	}
}

// Indexer owns the word accumulator for its lifetime. Each Run clears it
// first, so results always reflect the latest run only.
type Indexer struct {
	config  Config
	shards  int
	words   *accumulator.Accumulator
	metrics *metrics.Metrics
	logger  zerolog.Logger
	running atomic.Bool
}

// runCounters are updated concurrently by workers during one Run.
type runCounters struct {
	processed atomic.Int64
	failed    atomic.Int64
	tokens    atomic.Int64
	bytes     atomic.Int64
}

// New validates cfg and creates an Indexer.
func New(cfg Config, opts ...Option) (*Indexer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ix := &Indexer{
		config: cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.metrics == nil {
		ix.metrics = metrics.New()
	}
	ix.words = accumulator.New(accumulator.WithShards(ix.shards))
	return ix, nil
}

// Config returns the configuration the indexer was built with.
func (ix *Indexer) Config() Config {
	return ix.config
}

// Metrics returns the collectors the indexer records to.
func (ix *Indexer) Metrics() *metrics.Metrics {
	return ix.metrics
}

// Run clears previous results, walks the tree and waits until every
// discovered file has been processed. Per-file failures are logged and
// counted; Run fails only when the root cannot be walked or ctx is
// cancelled. Stats are returned in both cases.
func (ix *Indexer) Run(ctx context.Context) (*RunStats, error) {
	if !ix.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer ix.running.Store(false)

	stats := &RunStats{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	base := ix.logger.With().Str("run_id", stats.RunID).Logger()
	log := logging.Component(base, "indexer")
	log.Info().Str("path", ix.config.Path).Int("threads", ix.config.Threads).Msg("starting run")

	ix.words.ClearResults()

	var counters runCounters
	workers, err := pool.New(ix.config.Threads,
		func(ctx context.Context, job pool.Job) error {
			return ix.processFile(ctx, job.Path, &counters)
		},
		pool.WithErrorHandler(func(job pool.Job, err error) {
			counters.failed.Add(1)
			ix.metrics.FilesFailed.WithLabelValues(failureReason(err)).Inc()
			log.Warn().Err(err).Str("path", job.Path).Msg("failed to process file")
		}),
		pool.WithDepthObserver(func(depth int) {
			ix.metrics.QueueDepth.Set(float64(depth))
		}),
		pool.WithLogger(logging.Component(base, "pool")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	if err := workers.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}

	w := walker.New(&walker.Config{
		Suffix: walker.DefaultSuffix,
		Logger: logging.Component(base, "walker"),
	})
	walkErr := w.Walk(ctx, ix.config.Path, func(path string) error {
		ix.metrics.FilesDiscovered.Inc()
		return workers.Submit(pool.Job{Path: path})
	})

	// Only after the walk has returned is it safe to tell workers that no
	// more jobs are coming.
	workers.Close()
	waitErr := workers.Wait()

	ix.collectStats(stats, w.Stats(), &counters)
	log.Info().
		Int("unique_words", stats.UniqueWords).
		Int64("files", stats.FilesProcessed).
		Int64("failed", stats.FilesFailed).
		Dur("duration", stats.Duration).
		Msg("run finished")

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("indexing cancelled: %w", err)
	}
	if walkErr != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", ix.config.Path, walkErr)
	}
	if waitErr != nil {
		return stats, fmt.Errorf("worker pool failed: %w", waitErr)
	}
	return stats, nil
}

func (ix *Indexer) collectStats(stats *RunStats, ws walker.Stats, counters *runCounters) {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	stats.FilesDiscovered = ws.FilesMatched
	stats.FilesProcessed = counters.processed.Load()
	stats.FilesFailed = counters.failed.Load()
	stats.Tokens = counters.tokens.Load()
	stats.BytesRead = counters.bytes.Load()
	stats.DirsTraversed = ws.DirsTraversed
	stats.DirsFailed = ws.DirsFailed
	stats.SymlinksSkipped = ws.SymlinksSkipped
	stats.UniqueWords = ix.words.GetUniqueWordCount()

	ix.metrics.DirsTraversed.Add(float64(ws.DirsTraversed))
	ix.metrics.DirsFailed.Add(float64(ws.DirsFailed))
	ix.metrics.SymlinksSkipped.Add(float64(ws.SymlinksSkipped))
	ix.metrics.QueueDepth.Set(0)
	ix.metrics.UniqueWords.Set(float64(stats.UniqueWords))
}

// processFile tokenizes one file into the accumulator. Words read before a
// read error are kept.
func (ix *Indexer) processFile(_ context.Context, path string, counters *runCounters) error {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return &FileError{Op: OpOpen, Path: path, Err: err}
	}
	defer f.Close()

	tok := tokenizer.New(f)
	var tokens int64
	for tok.Scan() {
		ix.words.AddWord(tok.Token())
		tokens++
	}

	counters.tokens.Add(tokens)
	counters.bytes.Add(tok.BytesRead())
	ix.metrics.TokensTotal.Add(float64(tokens))
	ix.metrics.BytesRead.Add(float64(tok.BytesRead()))
	ix.metrics.FileDuration.Observe(time.Since(start).Seconds())

	if err := tok.Err(); err != nil {
		return &FileError{Op: OpRead, Path: path, Err: err}
	}
	counters.processed.Add(1)
	ix.metrics.FilesProcessed.Inc()
	return nil
}

// ListTopWords returns up to k words by descending count, ties broken
// alphabetically.
func (ix *Indexer) ListTopWords(k int) []accumulator.WordCount {
	return ix.words.ListTopWords(k)
}

// GetUniqueWordCount returns the number of distinct words seen.
func (ix *Indexer) GetUniqueWordCount() int {
	return ix.words.GetUniqueWordCount()
}

// Count returns the occurrences of a single word.
func (ix *Indexer) Count(word string) int {
	return ix.words.Count(word)
}
