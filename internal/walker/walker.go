// Package walker discovers the files to index by walking a directory tree
// on the calling goroutine.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSuffix selects plain text files.
const DefaultSuffix = ".txt"

var ErrNotDirectory = errors.New("not a directory")

// VisitFunc is called for every matching regular file. Returning an error
// stops the walk and the error is returned from Walk.
type VisitFunc func(path string) error

// Stats contains traversal statistics
type Stats struct {
	FilesMatched    int64         // Regular files whose name has the suffix
	FilesIgnored    int64         // Other regular files and special files
	DirsTraversed   int64         // Directories read, including the root
	DirsFailed      int64         // Directories that could not be read
	SymlinksSkipped int64         // Symbolic links, never followed
	Duration        time.Duration // Total traversal time
}

// Config holds configuration for the walker
type Config struct {
	// Suffix is matched case-sensitively against file names.
	Suffix string
	Logger zerolog.Logger
}

func DefaultConfig() *Config {
	return &Config{
		Suffix: DefaultSuffix,
		Logger: zerolog.Nop(),
	}
}

// Walker performs a depth-first traversal. Symbolic links are skipped
// entirely, so the walk is bounded by the directory tree and needs no
// cycle detection.
type Walker struct {
	config *Config
	stats  *Stats
	mu     sync.RWMutex
}

func New(config *Config) *Walker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Suffix == "" {
		config.Suffix = DefaultSuffix
	}

	return &Walker{
		config: config,
		stats:  &Stats{},
	}
}

// Walk visits every matching file under root. Unreadable directories are
// logged and skipped. Walk returns an error only if root is not a readable
// directory, ctx is cancelled, or visit fails.
func (w *Walker) Walk(ctx context.Context, root string, visit VisitFunc) error {
	// The root itself may be a link to a directory; only entries below it
	// are subject to the symlink rule.
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	start := time.Now()
	defer func() {
		w.mu.Lock()
		w.stats.Duration = time.Since(start)
		w.mu.Unlock()
	}()

	return w.walkDir(ctx, root, visit)
}

func (w *Walker) walkDir(ctx context.Context, dir string, visit VisitFunc) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.recordDirFailed()
		w.config.Logger.Warn().Err(err).Str("path", dir).Msg("skipping unreadable directory")
		// ReadDir may still have returned the entries it read before failing.
	}
	if err == nil || len(entries) > 0 {
		w.recordDirTraversed()
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		path := filepath.Join(dir, name)
		typ := entry.Type()

		switch {
		case typ&fs.ModeSymlink != 0:
			w.recordSymlink()
			w.config.Logger.Debug().Str("path", path).Msg("skipping symlink")
		case entry.IsDir():
			if err := w.walkDir(ctx, path, visit); err != nil {
				return err
			}
		case typ.IsRegular() && strings.HasSuffix(name, w.config.Suffix):
			w.recordFile()
			if err := visit(path); err != nil {
				return fmt.Errorf("visiting %s: %w", path, err)
			}
		default:
			w.recordFiltered()
		}
	}

	return nil
}

func (w *Walker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return *w.stats
}

func (w *Walker) recordFile() {
	w.mu.Lock()
	w.stats.FilesMatched++
	w.mu.Unlock()
}

func (w *Walker) recordFiltered() {
	w.mu.Lock()
	w.stats.FilesIgnored++
	w.mu.Unlock()
}

func (w *Walker) recordDirTraversed() {
	w.mu.Lock()
	w.stats.DirsTraversed++
	w.mu.Unlock()
}

func (w *Walker) recordDirFailed() {
	w.mu.Lock()
	w.stats.DirsFailed++
	w.mu.Unlock()
}

func (w *Walker) recordSymlink() {
	w.mu.Lock()
	w.stats.SymlinksSkipped++
	w.mu.Unlock()
}

// Collect walks root with the default configuration and returns the paths
// of every matching file in walk order.
func Collect(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := New(DefaultConfig()).Walk(ctx, root, func(path string) error {
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
