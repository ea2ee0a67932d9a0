package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gommonlog "github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestSlogLoggerWritesStructuredFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).Module("gallery").Module("store")

	log.Info("overview accepted",
		String("query", "cats"),
		Int("page", 3),
		Uint64("seq", 7),
		Duration("elapsed", 1500*time.Millisecond))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "overview accepted", entries[0]["msg"])
	assert.Equal(t, "gallery.store", entries[0]["module"])
	assert.Equal(t, "cats", entries[0]["query"])
	assert.InDelta(t, 3, entries[0]["page"], 0)
	assert.Equal(t, "1.5s", entries[0]["elapsed"])
}

func TestSlogLoggerFiltersByLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelWarn, nil)

	log.Trace("trace")
	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Log(LogLevelError, "error")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["msg"])
	assert.Equal(t, "error", entries[1]["msg"])
}

func TestWithAndWithContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelInfo, nil)
	ctx := WithTraceID(context.Background(), "req-123")

	base.With(String("channel", "overview")).WithContext(ctx).Info("published")
	base.WithContext(context.Background()).Info("untagged")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "overview", entries[0]["channel"])
	assert.Equal(t, "req-123", entries[0]["trace_id"])
	assert.NotContains(t, entries[1], "trace_id")
	assert.NotContains(t, entries[1], "channel", "With must not mutate the parent")
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, nil)

	log.Info("request",
		String("api_key", "12345678-abcdef"),
		String("url", "https://pixabay.com/api/?key=12345678-abcdef&q=cats"),
		Error(fmt.Errorf("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "[REDACTED]", entries[0]["api_key"])
	assert.Equal(t, "https://pixabay.com/api/?key=[REDACTED]&q=cats", entries[0]["url"])
	assert.Equal(t, "boom", entries[0]["error"])
}

func TestRedactSensitiveData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "nothing to see", "nothing to see"},
		{"bearer", "Authorization: Bearer abc.def", "Authorization: Bearer [REDACTED]"},
		{"query key", "GET /api/?q=dogs&key=secret", "GET /api/?q=dogs&key=[REDACTED]"},
		{"password", "password=hunter22", "password=[REDACTED]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RedactSensitiveData(tt.input))
		})
	}
}

func TestTextHandlerFormat(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := &SlogLogger{
		handler:  newTextHandler(buf, traceLevelValue, time.UTC),
		level:    traceLevelValue,
		module:   "pixabay",
		timezone: time.UTC,
	}

	log.Trace("fetching", String("query", "red fox"), Int("page", 2))

	line := buf.String()
	assert.Contains(t, line, "TRACE [pixabay] fetching")
	assert.Contains(t, line, `query="red fox"`)
	assert.Contains(t, line, "page=2")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestCentralLoggerRoutesModulesAndFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	console := &bytes.Buffer{}
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: true, Level: "debug"},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "debug"},
	}, console)
	require.NoError(t, err)

	cl.Module("datastore").Debug("migrated")
	cl.Module("gallery").Debug("suppressed by default level")
	cl.Module("gallery").Info("ready")

	require.NoError(t, cl.Close())

	assert.Contains(t, console.String(), "[datastore] migrated")
	assert.NotContains(t, console.String(), "suppressed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 2)
	assert.Equal(t, "datastore", entries[0]["module"])
	assert.Equal(t, "ready", entries[1]["msg"])
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestGormLoggerAdapterTrace(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewGormLoggerAdapter(NewSlogLogger(buf, LogLevelTrace, nil), 10*time.Millisecond)
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(context.Background(), time.Now(), sqlFn, nil)
	adapter.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)
	adapter.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
	adapter.Trace(context.Background(), time.Now(), sqlFn, fmt.Errorf("disk I/O error"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 4)
	assert.Equal(t, "sql query", entries[0]["msg"])
	assert.Equal(t, "sql query", entries[1]["msg"])
	assert.Equal(t, "slow query", entries[2]["msg"])
	assert.Equal(t, "query error", entries[3]["msg"])
	assert.Equal(t, "WARN", entries[3]["level"])
}

func TestEchoAdapterRoutesToLogger(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewEchoAdapter(NewSlogLogger(buf, LogLevelDebug, time.UTC).Module("echo"))

	adapter.Debugf("binding %s", "query")
	adapter.Warn("slow client")
	adapter.Errorj(map[string]any{"status": 500})
	adapter.SetLevel(gommonlog.ERROR)
	adapter.Info("filtered")
	adapter.Error("kept")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 4)
	assert.Equal(t, "binding query", entries[0]["msg"])
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "slow client", entries[1]["msg"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, map[string]any{"status": float64(500)}, entries[2]["data"])
	assert.Equal(t, "kept", entries[3]["msg"])
	assert.Equal(t, "echo", entries[3]["module"])
	assert.Equal(t, gommonlog.ERROR, adapter.Level())
}

func TestEchoAdapterFatalPanics(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewEchoAdapter(NewSlogLogger(buf, LogLevelDebug, nil))

	assert.PanicsWithValue(t, "echo: listener closed", func() { adapter.Fatalf("listener %s", "closed") })
	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "listener closed", entries[0]["msg"])
}
