package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNoData is returned when no listening history could be loaded at all.
var ErrNoData = errors.New("history: no listening data could be loaded")

// ContentType separates music and podcast audio from video content.
type ContentType string

const (
	ContentAudio ContentType = "audio"
	ContentVideo ContentType = "video"
)

// ParseContentType parses a content type name case-insensitively.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentAudio:
		return ContentAudio, nil
	case ContentVideo:
		return ContentVideo, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// Event is a single playback record as read from an export file.
type Event struct {
	Timestamp   time.Time     `json:"ts"`
	Played      time.Duration `json:"played"`
	Track       string        `json:"track,omitempty"`
	Artist      string        `json:"artist,omitempty"`
	Album       string        `json:"album,omitempty"`
	Episode     string        `json:"episode,omitempty"`
	Show        string        `json:"show,omitempty"`
	URI         string        `json:"uri,omitempty"`
	Platform    string        `json:"platform,omitempty"`
	Country     string        `json:"country,omitempty"`
	Shuffle     bool          `json:"shuffle"`
	Offline     bool          `json:"offline"`
	Skipped     bool          `json:"skipped"`
	SkipKnown   bool          `json:"skip_known"`
	ReasonStart string        `json:"reason_start,omitempty"`
	ReasonEnd   string        `json:"reason_end,omitempty"`
	Content     ContentType   `json:"content"`
	Source      string        `json:"source,omitempty"`
}

// Title is the track name, or the episode name for episodes.
func (e Event) Title() string {
	if e.Track != "" {
		return e.Track
	}
	return e.Episode
}

// Creator is the artist name, or the show name for episodes.
func (e Event) Creator() string {
	if e.Artist != "" {
		return e.Artist
	}
	return e.Show
}

// Play is an Event with calendar fields derived in the configured time zone.
type Play struct {
	Event
	Local       time.Time
	Date        Date
	Hour        int
	Weekday     time.Weekday
	Month       time.Month
	Year        int
	CountryName string
}

func (p Play) Hours() float64   { return p.Played.Hours() }
func (p Play) Minutes() float64 { return p.Played.Minutes() }

// Dataset is an immutable snapshot of normalized listening history.
type Dataset struct {
	Plays    []Play
	Report   *LoadReport
	LoadedAt time.Time
}

// Version identifies the snapshot for cache keys.
func (d *Dataset) Version() string {
	return fmt.Sprintf("%d-%d", d.LoadedAt.UnixNano(), len(d.Plays))
}

// Years returns the distinct years present, ascending.
func (d *Dataset) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, p := range d.Plays {
		if !seen[p.Year] {
			seen[p.Year] = true
			years = append(years, p.Year)
		}
	}
	sort.Ints(years)
	return years
}

// ContentTypes returns the content types present, audio first.
func (d *Dataset) ContentTypes() []ContentType {
	var audio, video bool
	for _, p := range d.Plays {
		switch p.Content {
		case ContentAudio:
			audio = true
		case ContentVideo:
			video = true
		}
	}
	var out []ContentType
	if audio {
		out = append(out, ContentAudio)
	}
	if video {
		out = append(out, ContentVideo)
	}
	return out
}

// Artists returns the distinct artist names, sorted.
func (d *Dataset) Artists() []string {
	seen := make(map[string]bool)
	var artists []string
	for _, p := range d.Plays {
		if p.Artist == "" || seen[p.Artist] {
			continue
		}
		seen[p.Artist] = true
		artists = append(artists, p.Artist)
	}
	sort.Strings(artists)
	return artists
}

// Source produces a Dataset.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// EventReader reads previously stored events.
type EventReader interface {
	Events(ctx context.Context) ([]Event, error)
}
