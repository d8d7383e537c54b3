package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	require.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
	require.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}

func TestNewJSONLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "info")
	l.Info().Str("currency", "TRD").Msg("hello")
	l.Debug().Msg("filtered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "hello", entry["message"])
	require.Equal(t, "TRD", entry["currency"])
}

func TestInit_WritesFile(t *testing.T) {
	t.Cleanup(func() { Logger = NewConsoleLogger(os.Stdout, "info"); initComponentLoggers() })

	path := filepath.Join(t.TempDir(), "engine.log")
	require.NoError(t, Init("debug", true, path))
	Scanner.Info().Msg("cycle done")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"component":"scanner"`)
	require.Contains(t, string(data), "cycle done")
}

func TestInit_BadFile(t *testing.T) {
	require.Error(t, Init("info", false, filepath.Join(t.TempDir(), "missing", "x.log")))
}
