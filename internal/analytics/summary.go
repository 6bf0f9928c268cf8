package analytics

import (
	"fmt"
	"math"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goodtune/listenstats/internal/history"
)

// Summary holds the headline numbers of a selection.
type Summary struct {
	TotalPlayed   time.Duration
	Events        int
	Plays         int // events with a positive play duration
	UniqueDays    int
	AveragePerDay time.Duration
	UniqueTracks  int
	UniqueArtists int
	FirstDate     history.Date
	LastDate      history.Date
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalHours         float64      `json:"total_hours"`
		Events             int          `json:"events"`
		Plays              int          `json:"plays"`
		UniqueDays         int          `json:"unique_days"`
		AverageHoursPerDay float64      `json:"average_hours_per_day"`
		AveragePerDay      string       `json:"average_per_day"`
		UniqueTracks       int          `json:"unique_tracks"`
		UniqueArtists      int          `json:"unique_artists"`
		FirstDate          history.Date `json:"first_date"`
		LastDate           history.Date `json:"last_date"`
	}{
		roundHours(s.TotalPlayed), s.Events, s.Plays, s.UniqueDays,
		roundHours(s.AveragePerDay), FormatHoursMinutes(s.AveragePerDay),
		s.UniqueTracks, s.UniqueArtists, s.FirstDate, s.LastDate,
	})
}

// Summarize computes the headline numbers for plays.
func Summarize(plays []history.Play) Summary {
	s := Summary{Events: len(plays)}
	days := make(map[history.Date]bool)
	tracks := make(map[groupKey]bool)
	artists := make(map[string]bool)

	for _, p := range plays {
		s.TotalPlayed += p.Played
		if p.Played > 0 {
			s.Plays++
		}
		days[p.Date] = true
		if p.Track != "" {
			tracks[groupKey{p.Track, p.Artist}] = true
		}
		if p.Artist != "" {
			artists[p.Artist] = true
		}
		if s.FirstDate.IsZero() || p.Date.Before(s.FirstDate) {
			s.FirstDate = p.Date
		}
		if p.Date.After(s.LastDate) {
			s.LastDate = p.Date
		}
	}

	s.UniqueDays = len(days)
	s.UniqueTracks = len(tracks)
	s.UniqueArtists = len(artists)
	if s.UniqueDays > 0 {
		s.AveragePerDay = s.TotalPlayed / time.Duration(s.UniqueDays)
	}
	return s
}

// FormatHoursMinutes renders d as "X hrs Y mins", truncating seconds.
func FormatHoursMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	mins := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%d hrs %d mins", hours, mins)
}

// FormatHours renders d as fractional hours with two decimals.
func FormatHours(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Hours())
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
