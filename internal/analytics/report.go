package analytics

import (
	"time"

	"github.com/goodtune/listenstats/internal/history"
)

// Options are report settings that do not change per request.
type Options struct {
	Milestones []time.Duration
}

// Report is everything the dashboard shows for one filter.
type Report struct {
	Filter  Filter  `json:"filter"`
	Empty   bool    `json:"empty"`
	Summary Summary `json:"summary"`

	TopTracks   []Ranked `json:"top_tracks"`
	TopArtists  []Ranked `json:"top_artists"`
	TopShows    []Ranked `json:"top_shows"`
	TopEpisodes []Ranked `json:"top_episodes"`
	Platforms   []Ranked `json:"platforms"`
	Countries   []Ranked `json:"countries"`

	Hourly         []Bucket     `json:"hourly"`
	TimeOfDay      []Bucket     `json:"time_of_day"`
	WeekdayAverage []Bucket     `json:"weekday_average"`
	Monthly        []Bucket     `json:"monthly"`
	MonthlyTrend   []Bucket     `json:"monthly_trend"`
	Heatmap        Heatmap      `json:"heatmap"`
	Shuffle        []Bucket     `json:"shuffle"`
	Offline        []Bucket     `json:"offline"`
	Daily          []DailyTotal `json:"daily"`

	LongestStreak *Streak     `json:"longest_streak,omitempty"`
	LatestStreak  *Streak     `json:"latest_streak,omitempty"`
	Milestones    []Milestone `json:"milestones"`
	Highlights    Highlights  `json:"highlights"`
	Skips         SkipSummary `json:"skips"`

	Artist *ArtistFocus `json:"artist,omitempty"`
}

// Compute builds the report for the plays selected by f. It does not
// modify plays and keeps no state between calls. f is used as given; a
// non-positive TopN falls back to DefaultLimits.Default.
func Compute(plays []history.Play, f Filter, opts Options) *Report {
	topN := f.TopN
	if topN <= 0 {
		topN = DefaultLimits.Default
	}
	milestones := opts.Milestones
	if milestones == nil {
		milestones = DefaultMilestones
	}

	selected := Apply(plays, f)
	daily := DailyTotals(selected)
	dates := make([]history.Date, len(daily))
	for i, d := range daily {
		dates[i] = d.Date
	}

	r := &Report{
		Filter:  f,
		Empty:   len(selected) == 0,
		Summary: Summarize(selected),

		TopTracks:   Top(selected, TrackKey, topN),
		TopArtists:  Top(selected, ArtistKey, topN),
		TopShows:    Top(selected, ShowKey, topN),
		TopEpisodes: Top(selected, EpisodeKey, topN),
		Platforms:   Rank(GroupBy(selected, PlatformKey), ByPlayed),
		Countries:   Rank(GroupBy(selected, CountryKey), ByPlayed),

		Hourly:         Hourly(selected),
		TimeOfDay:      TimesOfDay(selected),
		WeekdayAverage: WeekdayAverage(daily),
		Monthly:        Monthly(selected),
		MonthlyTrend:   MonthlyTrend(selected),
		Heatmap:        MonthWeekdayHeatmap(selected),
		Shuffle:        ShuffleSplit(selected),
		Offline:        OfflineSplit(selected),
		Daily:          daily,

		Milestones: Milestones(daily, milestones),
		Highlights: FindHighlights(selected, daily),
		Skips:      Skips(selected, SkipTopK),
		Artist:     FocusArtist(selected, f.Artist, topN, len(daily)),
	}

	if s, ok := LongestStreak(dates); ok {
		r.LongestStreak = &s
	}
	if s, ok := LatestStreak(dates); ok {
		r.LatestStreak = &s
	}
	if r.Daily == nil {
		r.Daily = []DailyTotal{}
	}
	if r.MonthlyTrend == nil {
		r.MonthlyTrend = []Bucket{}
	}
	return r
}
