package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodtune/listenstats/internal/analytics"
	"github.com/goodtune/listenstats/internal/config"
	"github.com/goodtune/listenstats/internal/history"
)

func init() {
	color.NoColor = true
}

func TestFindUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listenstats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8600
  prot: 1
history:
  paths: ["a.json"]
extra:
  thing: true
`), 0o644))

	unknown, err := findUnknownKeys(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"extra.thing", "server.prot"}, unknown)
}

func TestFlattenConfig(t *testing.T) {
	settings, err := flattenConfig(config.Defaults())
	require.NoError(t, err)
	require.NotEmpty(t, settings)

	assert.Equal(t, setting{section: "server", key: "bind_address", value: "127.0.0.1"}, settings[0])

	found := false
	for _, s := range settings {
		if s.section == "analytics" && s.key == "milestone_hours" {
			found = true
			assert.Equal(t, "[100, 500, 1000, 2000, 5000, 10000, 20000]", s.value)
		}
	}
	assert.True(t, found)
}

func TestDumpConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Port = 9000
	cfg.Redis.Password = "hunter2"

	var buf bytes.Buffer
	require.NoError(t, dumpConfig(&buf, cfg, config.Defaults()))

	out := buf.String()
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, "  port = 9000  (modified from default: 8501)")
	assert.Contains(t, out, "  bind_address = 127.0.0.1\n")
	assert.Contains(t, out, "***REDACTED***")
	assert.NotContains(t, out, "hunter2")
}

func TestPrintReport(t *testing.T) {
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}
	plays := history.NewNormalizer(time.UTC).Normalize([]history.Event{
		{Timestamp: at("2024-02-01T12:00:00Z"), Played: 2 * time.Hour, Track: "Song", Artist: "Band", Content: history.ContentAudio},
		{Timestamp: at("2024-02-02T12:00:00Z"), Played: time.Hour, Track: "Song", Artist: "Band", Content: history.ContentAudio},
	})
	r := analytics.Compute(plays, analytics.Filter{Artist: "band"}.Normalize(analytics.DefaultLimits), analytics.Options{})

	var buf bytes.Buffer
	printReport(&buf, r)

	out := buf.String()
	assert.Contains(t, out, "Listening report")
	assert.Contains(t, out, "1 hrs 30 mins")
	assert.Contains(t, out, "2 days (2024-02-01 to 2024-02-02)")
	assert.Contains(t, out, "Top tracks")
	assert.Contains(t, out, "Song")
	assert.Contains(t, out, "Top tracks by Band")
}

func TestPrintReportEmpty(t *testing.T) {
	r := analytics.Compute(nil, analytics.Filter{}.Normalize(analytics.DefaultLimits), analytics.Options{})

	var buf bytes.Buffer
	printReport(&buf, r)
	assert.Contains(t, buf.String(), "No plays match this selection.")
}
