package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/goodtune/listenstats/internal/metrics"
)

// rawRecord covers both the extended streaming history export and the
// older account data export (endTime/artistName/trackName/msPlayed).
type rawRecord struct {
	TS          string `json:"ts"`
	MsPlayed    int64  `json:"ms_played"`
	TrackName   string `json:"master_metadata_track_name"`
	ArtistName  string `json:"master_metadata_album_artist_name"`
	AlbumName   string `json:"master_metadata_album_album_name"`
	TrackURI    string `json:"spotify_track_uri"`
	EpisodeName string `json:"episode_name"`
	ShowName    string `json:"episode_show_name"`
	Platform    string `json:"platform"`
	Country     string `json:"conn_country"`
	ReasonStart string `json:"reason_start"`
	ReasonEnd   string `json:"reason_end"`
	Shuffle     *bool  `json:"shuffle"`
	Offline     *bool  `json:"offline"`
	Skipped     *bool  `json:"skipped"`

	EndTime          string `json:"endTime"`
	LegacyArtistName string `json:"artistName"`
	LegacyTrackName  string `json:"trackName"`
	LegacyMsPlayed   int64  `json:"msPlayed"`
}

// Zone-aware layouts first; the rest are read in the loader's location.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	localLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04",
	}
)

// CSV header aliases in order of preference.
var csvColumns = map[string][]string{
	"ts":           {"ts_local_clean", "ts", "endTime"},
	"ms_played":    {"ms_played", "msPlayed"},
	"track":        {"master_metadata_track_name", "trackName", "track"},
	"artist":       {"master_metadata_album_artist_name", "artistName", "artist"},
	"album":        {"master_metadata_album_album_name", "album"},
	"uri":          {"spotify_track_uri"},
	"episode":      {"episode_name"},
	"show":         {"episode_show_name"},
	"platform":     {"platform_clean", "platform"},
	"country":      {"conn_country_full", "conn_country"},
	"shuffle":      {"shuffle"},
	"offline":      {"offline"},
	"skipped":      {"skipped"},
	"reason_start": {"reason_start"},
	"reason_end":   {"reason_end"},
}

// FileResult describes the outcome of reading one file.
type FileResult struct {
	Path    string `json:"path"`
	Events  int    `json:"events"`
	Skipped int    `json:"skipped_rows"`
	Error   string `json:"error,omitempty"`
}

// LoadReport summarizes a load across all files.
type LoadReport struct {
	Files    []FileResult `json:"files"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Events returns the number of events read across all files.
func (r *LoadReport) Events() int {
	n := 0
	for _, f := range r.Files {
		n += f.Events
	}
	return n
}

func (r *LoadReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Loader reads export files into events.
type Loader struct {
	location *time.Location
	logger   zerolog.Logger
}

// NewLoader creates a loader that reads zone-less timestamps in location.
func NewLoader(location *time.Location, logger zerolog.Logger) *Loader {
	if location == nil {
		location = time.UTC
	}
	return &Loader{
		location: location,
		logger:   logger.With().Str("component", "loader").Logger(),
	}
}

// Load expands patterns and reads every matching file. Files that are
// missing or malformed are recorded as warnings and contribute no events.
// ErrNoData is returned, together with the report, when nothing was read.
func (l *Loader) Load(ctx context.Context, patterns []string) ([]Event, *LoadReport, error) {
	report := &LoadReport{}
	var events []Event

	for _, path := range l.expand(patterns, report) {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		fileEvents, skipped, err := l.LoadFile(path)
		result := FileResult{Path: path, Events: len(fileEvents), Skipped: skipped}
		if err != nil {
			result.Error = err.Error()
			report.warn("%s: %v", path, err)
			l.logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable history file")
			metrics.FilesLoaded.WithLabelValues("error").Inc()
		} else {
			if skipped > 0 {
				report.warn("%s: skipped %d malformed rows", path, skipped)
				l.logger.Warn().Str("path", path).Int("rows", skipped).Msg("skipped malformed rows")
			}
			l.logger.Debug().Str("path", path).Int("events", len(fileEvents)).Msg("loaded history file")
			metrics.FilesLoaded.WithLabelValues("ok").Inc()
		}
		report.Files = append(report.Files, result)
		events = append(events, fileEvents...)
	}

	if len(events) == 0 {
		return nil, report, ErrNoData
	}
	return events, report, nil
}

// expand resolves patterns to a sorted, duplicate-free list of files.
func (l *Loader) expand(patterns []string, report *LoadReport) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			report.warn("invalid pattern %q: %v", pattern, err)
			continue
		}
		if len(matches) == 0 {
			report.warn("no files match %q", pattern)
			l.logger.Warn().Str("pattern", pattern).Msg("no history files found")
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths
}

// LoadFile reads a single file. The format is chosen from the extension
// after stripping a .gz or .zst suffix. It returns the events read and the
// number of rows that could not be parsed.
func (l *Loader) LoadFile(path string) ([]Event, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var r io.Reader = f
	name := filepath.Base(path)
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
		lower = strings.TrimSuffix(lower, ".gz")
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
		lower = strings.TrimSuffix(strings.TrimSuffix(lower, ".zst"), ".zstd")
	}

	content := ContentAudio
	if strings.Contains(lower, "video") {
		content = ContentVideo
	}

	switch filepath.Ext(lower) {
	case ".json":
		return l.DecodeJSON(r, content, path)
	case ".csv":
		return l.DecodeCSV(r, content, path)
	}
	return nil, 0, fmt.Errorf("unsupported file type %q", name)
}

// DecodeJSON reads an export JSON array.
func (l *Loader) DecodeJSON(r io.Reader, content ContentType, source string) ([]Event, int, error) {
	var records []rawRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	events := make([]Event, 0, len(records))
	skipped := 0
	for _, rec := range records {
		ev, err := l.fromRaw(rec, content, source)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

func (l *Loader) fromRaw(rec rawRecord, content ContentType, source string) (Event, error) {
	ev := Event{
		Track:       rec.TrackName,
		Artist:      rec.ArtistName,
		Album:       rec.AlbumName,
		URI:         rec.TrackURI,
		Episode:     rec.EpisodeName,
		Show:        rec.ShowName,
		Platform:    rec.Platform,
		Country:     rec.Country,
		ReasonStart: rec.ReasonStart,
		ReasonEnd:   rec.ReasonEnd,
		Content:     content,
		Source:      source,
	}

	var err error
	switch {
	case rec.TS != "":
		ev.Timestamp, err = parseTimestamp(rec.TS, l.location)
		ev.Played = time.Duration(rec.MsPlayed) * time.Millisecond
	case rec.EndTime != "":
		// Account data exports record endTime in UTC without a zone.
		ev.Timestamp, err = parseTimestamp(rec.EndTime, time.UTC)
		ev.Played = time.Duration(rec.LegacyMsPlayed) * time.Millisecond
		ev.Track = rec.LegacyTrackName
		ev.Artist = rec.LegacyArtistName
	default:
		return Event{}, errors.New("record has no timestamp")
	}
	if err != nil {
		return Event{}, err
	}

	if rec.Shuffle != nil {
		ev.Shuffle = *rec.Shuffle
	}
	if rec.Offline != nil {
		ev.Offline = *rec.Offline
	}
	if rec.Skipped != nil {
		ev.Skipped = *rec.Skipped
		ev.SkipKnown = true
	}
	return ev, nil
}

// DecodeCSV reads a cleaned export with a header row.
func (l *Loader) DecodeCSV(r io.Reader, content ContentType, source string) ([]Event, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := mapColumns(header)
	if _, ok := cols["ts"]; !ok {
		return nil, 0, errors.New("CSV has no timestamp column")
	}

	var events []Event
	skipped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, 0, fmt.Errorf("failed to read CSV: %w", err)
		}

		ev, err := l.fromRow(row, cols, content, source)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

func mapColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	cols := make(map[string]int)
	for field, aliases := range csvColumns {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[field] = i
				break
			}
		}
	}
	return cols
}

func (l *Loader) fromRow(row []string, cols map[string]int, content ContentType, source string) (Event, error) {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts, err := parseTimestamp(get("ts"), l.location)
	if err != nil {
		return Event{}, err
	}
	ms, err := parseMillis(get("ms_played"))
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		Timestamp:   ts,
		Played:      time.Duration(ms) * time.Millisecond,
		Track:       get("track"),
		Artist:      get("artist"),
		Album:       get("album"),
		URI:         get("uri"),
		Episode:     get("episode"),
		Show:        get("show"),
		Platform:    get("platform"),
		Country:     get("country"),
		ReasonStart: get("reason_start"),
		ReasonEnd:   get("reason_end"),
		Content:     content,
		Source:      source,
	}
	if b, ok := parseOptionalBool(get("shuffle")); ok {
		ev.Shuffle = b
	}
	if b, ok := parseOptionalBool(get("offline")); ok {
		ev.Offline = b
	}
	if b, ok := parseOptionalBool(get("skipped")); ok {
		ev.Skipped = b
		ev.SkipKnown = true
	}
	return ev, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseMillis(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ms_played %q", s)
	}
	return int64(f), nil
}

func parseOptionalBool(s string) (bool, bool) {
	if s == "" {
		return false, false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}
