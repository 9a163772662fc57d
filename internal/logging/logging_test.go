package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	walkerLog := Component(logger, "walker")
	walkerLog.Info().Str("path", "/tmp/a.txt").Msg("visited")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "walker", entry["component"])
	assert.Equal(t, "/tmp/a.txt", entry["path"])
	assert.Equal(t, "visited", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_DefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)

	logger.Info().Msg("quiet")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestNew_ConsoleWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: FormatConsole, Writer: &buf})
	require.NoError(t, err)

	logger.Debug().Str("path", "x.txt").Msg("skipping symlink")
	out := buf.String()
	assert.Contains(t, out, "skipping symlink")
	assert.Contains(t, out, "path=x.txt")
	assert.NotContains(t, out, "\x1b[", "colour codes written to a non-terminal")
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown level", cfg: Config{Level: "loud"}},
		{name: "unknown format", cfg: Config{Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
