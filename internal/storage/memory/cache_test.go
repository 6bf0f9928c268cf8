package memory

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodtune/listenstats/internal/analytics"
	"github.com/goodtune/listenstats/internal/config"
	"github.com/goodtune/listenstats/internal/history"
	"github.com/goodtune/listenstats/internal/storage"
)

func TestCacheSetGet(t *testing.T) {
	c := New(1)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, int64(1), c.Entries())
}

func TestCacheMiss(t *testing.T) {
	_, err := New(1).Get(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCachePurge(t *testing.T) {
	c := New(0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Purge(ctx))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, int64(0), c.Entries())
}

func TestCacheHoldsMultiYearReport(t *testing.T) {
	start := time.Date(2022, time.January, 1, 12, 0, 0, 0, time.UTC)
	events := make([]history.Event, 0, 3*365)
	for i := 0; i < 3*365; i++ {
		events = append(events, history.Event{
			Timestamp: start.AddDate(0, 0, i),
			Played:    time.Duration(10+i%50) * time.Minute,
			Track:     "Track " + string(rune('A'+i%26)),
			Artist:    "Artist " + string(rune('A'+i%7)),
			Content:   history.ContentAudio,
		})
	}
	plays := history.NewNormalizer(time.UTC).Normalize(events)
	report := analytics.Compute(plays, analytics.Filter{}.Normalize(analytics.DefaultLimits), analytics.Options{})
	body, err := json.Marshal(report)
	require.NoError(t, err)

	c := New(config.Defaults().Cache.SizeMB)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "report:v1:y=;c=;a=;n=10", body, time.Minute))

	got, err := c.Get(ctx, "report:v1:y=;c=;a=;n=10")
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestCacheSkipsOversizedEntry(t *testing.T) {
	c := New(0)
	ctx := context.Background()

	big := make([]byte, minSize/1024+1)
	require.NoError(t, c.Set(ctx, "big", big, time.Minute))

	_, err := c.Get(ctx, "big")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, int64(0), c.Entries())
}

func TestNopCache(t *testing.T) {
	var c storage.ResponseCache = storage.NopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, "none", c.Name())
}
