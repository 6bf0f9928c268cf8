package analytics

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goodtune/listenstats/internal/history"
)

// ArtistFocus is the drill-down for a single artist.
type ArtistFocus struct {
	Artist        string
	Played        time.Duration
	Plays         int
	UniqueTracks  int
	ActiveDays    int
	AveragePerDay time.Duration // over every active day of the selection
	TopTracks     []Ranked
	Daily         []DailyTotal
	Platforms     []Ranked
	Countries     []Ranked
	Shuffle       []Bucket
	Offline       []Bucket
}

func (a ArtistFocus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Artist             string       `json:"artist"`
		Hours              float64      `json:"hours"`
		Plays              int          `json:"plays"`
		UniqueTracks       int          `json:"unique_tracks"`
		ActiveDays         int          `json:"active_days"`
		AverageHoursPerDay float64      `json:"average_hours_per_day"`
		AveragePerDay      string       `json:"average_per_day"`
		TopTracks          []Ranked     `json:"top_tracks"`
		Daily              []DailyTotal `json:"daily"`
		Platforms          []Ranked     `json:"platforms"`
		Countries          []Ranked     `json:"countries"`
		Shuffle            []Bucket     `json:"shuffle"`
		Offline            []Bucket     `json:"offline"`
	}{
		a.Artist, roundHours(a.Played), a.Plays, a.UniqueTracks, a.ActiveDays,
		roundHours(a.AveragePerDay), FormatHoursMinutes(a.AveragePerDay),
		a.TopTracks, a.Daily, a.Platforms, a.Countries, a.Shuffle, a.Offline,
	})
}

// FocusArtist computes the drill-down for artist, matched
// case-insensitively. selectionDays is the number of active days in the
// whole selection and is the denominator of the daily average. It returns
// nil when the artist has no plays.
func FocusArtist(plays []history.Play, artist string, topN, selectionDays int) *ArtistFocus {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return nil
	}

	var own []history.Play
	for _, p := range plays {
		if strings.EqualFold(p.Artist, artist) {
			own = append(own, p)
		}
	}
	if len(own) == 0 {
		return nil
	}

	tracks := GroupBy(own, TrackKey)
	daily := DailyTotals(own)
	a := &ArtistFocus{
		Artist:       own[0].Artist,
		Plays:        len(own),
		UniqueTracks: len(tracks),
		ActiveDays:   len(daily),
		TopTracks:    TopK(tracks, topN, ByPlayed),
		Daily:        daily,
		Platforms:    Rank(GroupBy(own, PlatformKey), ByPlayed),
		Countries:    Rank(GroupBy(own, CountryKey), ByPlayed),
		Shuffle:      ShuffleSplit(own),
		Offline:      OfflineSplit(own),
	}
	for _, p := range own {
		a.Played += p.Played
	}
	if selectionDays > 0 {
		a.AveragePerDay = a.Played / time.Duration(selectionDays)
	}
	return a
}
