package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cseelye/file-crawler/internal/indexer"
	"github.com/cseelye/file-crawler/internal/logging"
	"github.com/cseelye/file-crawler/internal/metrics"
	"github.com/cseelye/file-crawler/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultTop = 10

// usageError is a configuration mistake; it is reported together with the
// usage text.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "ssfi PATH",
		Short: "Report the most frequent words in the .txt files under a directory",
		Long: `ssfi walks PATH recursively, tokenizes every regular file whose name ends
in .txt and prints the number of distinct words followed by the most
frequent ones. Words are runs of ASCII letters and digits, lowercased.
Symbolic links are never followed.

EXAMPLES:
    ssfi ./corpus
    ssfi -t 8 --top 25 ./corpus
    SSFI_THREADS=4 ssfi --verbose ./corpus`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 0:
				return usageErrorf("You must specify a PATH to index")
			case len(args) > 1:
				return usageErrorf("Only one PATH may be specified, got %d", len(args))
			}
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			return initConfig(v, configFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), v, args[0], stdout, stderr)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	flags := cmd.Flags()
	flags.IntP("threads", "t", indexer.DefaultThreads, "Number of worker threads used to process files")
	flags.Int("top", defaultTop, "Number of most frequent words to print")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", logging.FormatConsole, "Log format (console, json)")
	flags.StringP("output", "o", string(output.FormatText), "Result format (text, json)")
	flags.BoolP("verbose", "v", false, "Print run statistics to stderr")
	flags.Bool("metrics", false, "Print collected metrics in Prometheus text format to stderr")
	flags.StringVar(&configFile, "config", "", "Config file (default is .ssfi.yaml in . or $HOME)")

	return cmd
}

func initConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".ssfi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variable support
	v.SetEnvPrefix("SSFI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func runIndex(ctx context.Context, v *viper.Viper, path string, stdout, stderr io.Writer) error {
	threads := v.GetInt("threads")
	if threads <= 0 {
		return usageErrorf("option 'threads' must be a positive integer")
	}
	top := v.GetInt("top")
	if top < 0 {
		return usageErrorf("option 'top' must not be negative")
	}

	format, err := output.ParseFormat(v.GetString("output"))
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	logger, err := logging.New(logging.Config{
		Level:  v.GetString("log-level"),
		Format: v.GetString("log-format"),
		Writer: stderr,
	})
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	if err := checkRoot(path); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("rejecting path")
		return fmt.Errorf("The specified path does not exist: %s", path)
	}

	m := metrics.New()
	ix, err := indexer.New(
		indexer.Config{Path: path, Threads: threads},
		indexer.WithLogger(logger),
		indexer.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	stats, err := ix.Run(ctx)
	if err != nil {
		return err
	}

	report := output.Report{
		UniqueWords: ix.GetUniqueWordCount(),
		Top:         ix.ListTopWords(top),
	}
	if err := output.New(stdout, format).FormatReport(report); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if v.GetBool("verbose") {
		if err := output.New(stderr, format).FormatSummary(stats); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	if v.GetBool("metrics") {
		if err := m.WriteText(stderr); err != nil {
			return err
		}
	}
	return nil
}

// checkRoot reports whether path is a directory that can be listed.
func checkRoot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
