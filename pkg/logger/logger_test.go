package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"catalogscraper/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"with file", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "catalogscraper", entries[0]["app"])
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	base := l.WithField("stage", "discover")
	child := base.WithFields(map[string]interface{}{"group": "women", "records": 3})
	child.WithError(errors.New("boom")).Info("with error")
	base.Info("base only")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "discover", entries[0]["stage"])
	assert.Equal(t, "women", entries[0]["group"])
	assert.Equal(t, float64(3), entries[0]["records"])
	assert.Equal(t, "boom", entries[0]["error"])

	// parent is not mutated by its children
	assert.Equal(t, "discover", entries[1]["stage"])
	assert.NotContains(t, entries[1], "group")
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	l.InfoWithFields("types", map[string]interface{}{
		"s":   "x",
		"b":   true,
		"f":   1.5,
		"d":   2 * time.Second,
		"ss":  []string{"a", "b"},
		"err": errors.New("bad"),
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0]["s"])
	assert.Equal(t, true, entries[0]["b"])
	assert.Equal(t, 1.5, entries[0]["f"])
	assert.Equal(t, "bad", entries[0]["err"])
	assert.Equal(t, []interface{}{"a", "b"}, entries[0]["ss"])
}

func TestLogItem(t *testing.T) {
	tl := NewTestLogger()

	LogItem(tl, "download", "women/dresses", "https://x/p01", "succeeded", 4, nil)
	LogItem(tl, "download", "women/dresses", "https://x/p02", "skipped", 0, nil)
	LogItem(tl, "download", "women/dresses", "https://x/p03", "failed", 0, errors.New("timeout"))

	assert.Len(t, tl.GetMessagesByLevel("INFO"), 1)
	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "timeout", warns[0].Fields["error"])
	assert.Equal(t, "https://x/p03", warns[0].Fields["subgroup"])
}

func TestTestLoggerSharesRecorder(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("component", "pool").Info("Component started")

	assert.True(t, tl.HasMessage("started"))
	assert.False(t, tl.HasError())
	assert.Contains(t, tl.String(), "component=pool")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(NewTestLogger())

	WithField("k", "v").Warn("global")
	require.Len(t, tl.GetMessages(), 1)
	assert.Equal(t, "v", tl.GetMessages()[0].Fields["k"])
}

func TestNewFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, err := NewFileOnly(&config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)

	l.WithField("stage", "download").Warn("Work item failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage":"download"`)
	assert.Contains(t, string(data), "Work item failed")

	discard, err := NewFileOnly(&config.LoggingConfig{Level: "info"})
	require.NoError(t, err)
	discard.Info("dropped")

	_, err = NewFileOnly(&config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
