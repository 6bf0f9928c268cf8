package history

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extendedExport = `[
  {
    "ts": "2023-03-01T08:15:00Z",
    "platform": "android",
    "ms_played": 180000,
    "conn_country": "GB",
    "master_metadata_track_name": "Song A",
    "master_metadata_album_artist_name": "Artist X",
    "master_metadata_album_album_name": "Album 1",
    "spotify_track_uri": "spotify:track:a",
    "episode_name": null,
    "episode_show_name": null,
    "reason_start": "trackdone",
    "reason_end": "trackdone",
    "shuffle": true,
    "skipped": false,
    "offline": false
  },
  {
    "ts": "2023-03-02T21:40:00Z",
    "platform": "ios",
    "ms_played": 60000,
    "conn_country": "US",
    "master_metadata_track_name": "Song B",
    "master_metadata_album_artist_name": "Artist Y",
    "shuffle": false,
    "skipped": null,
    "offline": true
  },
  {
    "platform": "ios",
    "ms_played": 1000
  }
]`

func testLoader() *Loader {
	return NewLoader(time.UTC, zerolog.Nop())
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadExtendedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Streaming_History_Audio_2023.json", []byte(extendedExport))

	events, report, err := testLoader().Load(context.Background(), []string{filepath.Join(dir, "*.json")})
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, time.Date(2023, 3, 1, 8, 15, 0, 0, time.UTC), first.Timestamp.UTC())
	assert.Equal(t, 3*time.Minute, first.Played)
	assert.Equal(t, "Song A", first.Track)
	assert.Equal(t, "Artist X", first.Artist)
	assert.Equal(t, "Album 1", first.Album)
	assert.Equal(t, "GB", first.Country)
	assert.True(t, first.Shuffle)
	assert.True(t, first.SkipKnown)
	assert.False(t, first.Skipped)
	assert.Equal(t, ContentAudio, first.Content)

	second := events[1]
	assert.True(t, second.Offline)
	assert.False(t, second.SkipKnown, "null skipped should be unknown")

	require.Len(t, report.Files, 1)
	assert.Equal(t, 2, report.Files[0].Events)
	assert.Equal(t, 1, report.Files[0].Skipped)
	assert.Equal(t, 2, report.Events())
}

func TestLoadVideoFileTagged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Streaming_History_Video_2023.json", []byte(`[
	  {"ts": "2023-01-01T10:00:00Z", "ms_played": 600000, "episode_name": "Ep 1", "episode_show_name": "Show"}
	]`))

	events, _, err := testLoader().Load(context.Background(), []string{filepath.Join(dir, "*Video*.json")})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ContentVideo, events[0].Content)
	assert.Equal(t, "Ep 1", events[0].Title())
	assert.Equal(t, "Show", events[0].Creator())
}

func TestLoadLegacyAccountExport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "StreamingHistory0.json", []byte(`[
	  {"endTime": "2021-06-05 23:30", "artistName": "Old Artist", "trackName": "Old Song", "msPlayed": 200000}
	]`))

	events, _, err := testLoader().Load(context.Background(), []string{filepath.Join(dir, "StreamingHistory*.json")})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2021, 6, 5, 23, 30, 0, 0, time.UTC), events[0].Timestamp)
	assert.Equal(t, "Old Song", events[0].Track)
	assert.Equal(t, "Old Artist", events[0].Artist)
	assert.Equal(t, 200*time.Second, events[0].Played)
}

func TestLoadCompressedMatchesPlain(t *testing.T) {
	dir := t.TempDir()

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(extendedExport))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zst := enc.EncodeAll([]byte(extendedExport), nil)
	require.NoError(t, enc.Close())

	plain := writeFile(t, dir, "plain.json", []byte(extendedExport))
	gzPath := writeFile(t, dir, "export.json.gz", gz.Bytes())
	zstPath := writeFile(t, dir, "export.json.zst", zst)

	l := testLoader()
	want, _, err := l.LoadFile(plain)
	require.NoError(t, err)

	for _, path := range []string{gzPath, zstPath} {
		got, skipped, err := l.LoadFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, 1, skipped)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Timestamp, got[i].Timestamp)
			assert.Equal(t, want[i].Track, got[i].Track)
			assert.Equal(t, want[i].Played, got[i].Played)
		}
	}
}

func TestLoadCleanedCSV(t *testing.T) {
	dir := t.TempDir()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	writeFile(t, dir, "df_clean.csv", []byte(
		"ts_local_clean,ms_played,master_metadata_track_name,master_metadata_album_artist_name,platform_clean,conn_country_full,shuffle,offline,skipped\n"+
			"2023-07-04 22:10:00,240000,Song C,Artist Z,Android,United States,True,False,\n"+
			"not-a-date,1000,Broken,Row,Android,United States,False,False,False\n"+
			"2023-07-05 09:00:00,120000.0,Song D,Artist Z,iOS,Canada,False,True,True\n",
	))

	events, report, err := NewLoader(loc, zerolog.Nop()).Load(context.Background(), []string{filepath.Join(dir, "*.csv")})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, report.Files[0].Skipped)

	assert.Equal(t, time.Date(2023, 7, 4, 22, 10, 0, 0, loc), events[0].Timestamp)
	assert.Equal(t, "Android", events[0].Platform)
	assert.Equal(t, "United States", events[0].Country)
	assert.True(t, events[0].Shuffle)
	assert.False(t, events[0].SkipKnown)

	assert.Equal(t, 2*time.Minute, events[1].Played)
	assert.True(t, events[1].Offline)
	assert.True(t, events[1].SkipKnown)
	assert.True(t, events[1].Skipped)
}

func TestLoadMalformedFileIsWarning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_good.json", []byte(extendedExport))
	writeFile(t, dir, "b_bad.json", []byte(`{"this is": "not an array"`))

	events, report, err := testLoader().Load(context.Background(), []string{
		filepath.Join(dir, "*.json"),
		filepath.Join(dir, "missing.json"),
	})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	require.Len(t, report.Files, 2)
	assert.Empty(t, report.Files[0].Error)
	assert.NotEmpty(t, report.Files[1].Error)
	assert.Len(t, report.Warnings, 2)
}

func TestLoadNoData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.json", []byte(`[]`))

	_, report, err := testLoader().Load(context.Background(), []string{
		filepath.Join(dir, "*.json"),
		filepath.Join(dir, "nothing-*.json"),
	})
	assert.True(t, errors.Is(err, ErrNoData))
	require.NotNil(t, report)
	assert.NotEmpty(t, report.Warnings)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", []byte("hello"))

	_, _, err := testLoader().LoadFile(path)
	assert.Error(t, err)
}
