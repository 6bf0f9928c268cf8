package analytics

import (
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goodtune/listenstats/internal/history"
)

// Ranked is a named group with its summed listening time and play count.
type Ranked struct {
	Name   string
	Detail string // artist for tracks, show for episodes
	Played time.Duration
	Plays  int
}

func (r Ranked) Hours() float64 { return r.Played.Hours() }

func (r Ranked) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string  `json:"name"`
		Detail string  `json:"detail,omitempty"`
		Hours  float64 `json:"hours"`
		Plays  int     `json:"plays"`
	}{r.Name, r.Detail, roundHours(r.Played), r.Plays})
}

// Metric selects what a ranking is ordered by.
type Metric int

const (
	ByPlayed Metric = iota
	ByPlays
)

// KeyFunc extracts the group name and an optional detail from a play.
// An empty name leaves the play out of the grouping.
type KeyFunc func(history.Play) (name, detail string)

var (
	TrackKey    KeyFunc = func(p history.Play) (string, string) { return p.Track, p.Artist }
	ArtistKey   KeyFunc = func(p history.Play) (string, string) { return p.Artist, "" }
	ShowKey     KeyFunc = func(p history.Play) (string, string) { return p.Show, "" }
	EpisodeKey  KeyFunc = func(p history.Play) (string, string) { return p.Episode, p.Show }
	PlatformKey KeyFunc = func(p history.Play) (string, string) { return p.Platform, "" }
	CountryKey  KeyFunc = func(p history.Play) (string, string) { return p.CountryName, "" }
)

type groupKey struct {
	name, detail string
}

// GroupBy sums plays per key. Groups are returned in the order their key
// was first encountered.
func GroupBy(plays []history.Play, key KeyFunc) []Ranked {
	index := make(map[groupKey]int)
	var groups []Ranked
	for _, p := range plays {
		name, detail := key(p)
		if name == "" {
			continue
		}
		k := groupKey{name, detail}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Ranked{Name: name, Detail: detail})
		}
		groups[i].Played += p.Played
		groups[i].Plays++
	}
	return groups
}

// Rank orders a copy of groups by metric, highest first. Ties keep their
// input order.
func Rank(groups []Ranked, by Metric) []Ranked {
	out := make([]Ranked, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		if by == ByPlays {
			return out[i].Plays > out[j].Plays
		}
		return out[i].Played > out[j].Played
	})
	return out
}

// TopK returns the k highest groups by metric. When k exceeds the number
// of groups every group is returned.
func TopK(groups []Ranked, k int, by Metric) []Ranked {
	if k <= 0 {
		return []Ranked{}
	}
	ranked := Rank(groups, by)
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// Top groups plays by key and returns the k highest by listening time.
func Top(plays []history.Play, key KeyFunc, k int) []Ranked {
	return TopK(GroupBy(plays, key), k, ByPlayed)
}

// DailyTotal is the listening time on one calendar day.
type DailyTotal struct {
	Date   history.Date
	Played time.Duration
	Plays  int
}

func (d DailyTotal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  history.Date `json:"date"`
		Hours float64      `json:"hours"`
		Plays int          `json:"plays"`
	}{d.Date, roundHours(d.Played), d.Plays})
}

// DailyTotals sums plays per calendar day, ascending by date.
func DailyTotals(plays []history.Play) []DailyTotal {
	index := make(map[history.Date]int)
	var days []DailyTotal
	for _, p := range plays {
		i, ok := index[p.Date]
		if !ok {
			i = len(days)
			index[p.Date] = i
			days = append(days, DailyTotal{Date: p.Date})
		}
		days[i].Played += p.Played
		days[i].Plays++
	}
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}
