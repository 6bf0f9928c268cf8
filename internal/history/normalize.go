package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalizer turns events into plays in a fixed time zone.
type Normalizer struct {
	location *time.Location
	regions  display.Namer
}

// NewNormalizer creates a normalizer deriving calendar fields in location.
func NewNormalizer(location *time.Location) *Normalizer {
	if location == nil {
		location = time.UTC
	}
	return &Normalizer{
		location: location,
		regions:  display.English.Regions(),
	}
}

// Location returns the normalizer's time zone.
func (n *Normalizer) Location() *time.Location {
	return n.location
}

// Normalize deduplicates events, orders them by timestamp and derives
// calendar fields. The input slice is not modified.
func (n *Normalizer) Normalize(events []Event) []Play {
	unique := Deduplicate(events)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Timestamp.Before(unique[j].Timestamp)
	})

	plays := make([]Play, 0, len(unique))
	for _, ev := range unique {
		plays = append(plays, n.Play(ev))
	}
	return plays
}

// Play derives the calendar fields of a single event.
func (n *Normalizer) Play(ev Event) Play {
	local := ev.Timestamp.In(n.location)
	return Play{
		Event:       ev,
		Local:       local,
		Date:        DateOf(local),
		Hour:        local.Hour(),
		Weekday:     local.Weekday(),
		Month:       local.Month(),
		Year:        local.Year(),
		CountryName: n.countryName(ev.Country),
	}
}

// countryName renders ISO 3166 codes as English names and leaves anything
// else (already a name, or unknown) untouched.
func (n *Normalizer) countryName(code string) string {
	code = strings.TrimSpace(code)
	if len(code) != 2 || code == "ZZ" {
		return code
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := n.regions.Name(region); name != "" {
		return name
	}
	return code
}

type dedupKey struct {
	ts      int64
	title   string
	creator string
	played  time.Duration
}

// Deduplicate drops events sharing timestamp, title, creator and play
// duration with an earlier event. Order of first occurrences is kept.
func Deduplicate(events []Event) []Event {
	seen := make(map[dedupKey]bool, len(events))
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		k := dedupKey{
			ts:      ev.Timestamp.UnixNano(),
			title:   ev.Title(),
			creator: ev.Creator(),
			played:  ev.Played,
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ev)
	}
	return out
}

// FileSource loads a dataset from export files.
type FileSource struct {
	Loader     *Loader
	Normalizer *Normalizer
	Patterns   []string
}

func (s *FileSource) Load(ctx context.Context) (*Dataset, error) {
	events, report, err := s.Loader.Load(ctx, s.Patterns)
	if err != nil {
		return &Dataset{Report: report, LoadedAt: time.Now()}, err
	}
	return &Dataset{
		Plays:    s.Normalizer.Normalize(events),
		Report:   report,
		LoadedAt: time.Now(),
	}, nil
}

// ArchiveSource loads a dataset from previously archived events.
type ArchiveSource struct {
	Reader     EventReader
	Normalizer *Normalizer
}

func (s *ArchiveSource) Load(ctx context.Context) (*Dataset, error) {
	events, err := s.Reader.Events(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return &Dataset{Report: &LoadReport{}, LoadedAt: time.Now()}, ErrNoData
	}
	return &Dataset{
		Plays:    s.Normalizer.Normalize(events),
		Report:   &LoadReport{},
		LoadedAt: time.Now(),
	}, nil
}
