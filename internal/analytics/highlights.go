package analytics

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/goodtune/listenstats/internal/history"
)

// FirstPlay is the earliest titled play in a selection.
type FirstPlay struct {
	Title     string       `json:"title"`
	Creator   string       `json:"creator"`
	Date      history.Date `json:"date"`
	Timestamp time.Time    `json:"timestamp"`
}

// TrackHighlight is the most-listened track and the day it peaked.
type TrackHighlight struct {
	Track      string
	Artist     string
	Played     time.Duration
	PeakDate   history.Date
	PeakPlayed time.Duration
}

func (t TrackHighlight) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Track     string       `json:"track"`
		Artist    string       `json:"artist"`
		Hours     float64      `json:"hours"`
		PeakDate  history.Date `json:"peak_date"`
		PeakHours float64      `json:"peak_hours"`
	}{t.Track, t.Artist, roundHours(t.Played), t.PeakDate, roundHours(t.PeakPlayed)})
}

// Highlights are single notable facts about a selection.
type Highlights struct {
	PeakDay   *DailyTotal     `json:"peak_day,omitempty"`
	FirstPlay *FirstPlay      `json:"first_play,omitempty"`
	TopTrack  *TrackHighlight `json:"top_track,omitempty"`
}

// FindHighlights computes highlights from plays ordered by timestamp and
// their daily totals.
func FindHighlights(plays []history.Play, daily []DailyTotal) Highlights {
	var h Highlights

	for i := range daily {
		if h.PeakDay == nil || daily[i].Played > h.PeakDay.Played {
			d := daily[i]
			h.PeakDay = &d
		}
	}

	for _, p := range plays {
		if p.Title() == "" {
			continue
		}
		if h.FirstPlay == nil || p.Timestamp.Before(h.FirstPlay.Timestamp) {
			h.FirstPlay = &FirstPlay{
				Title:     p.Title(),
				Creator:   p.Creator(),
				Date:      p.Date,
				Timestamp: p.Timestamp,
			}
		}
	}

	top := TopK(GroupBy(plays, TrackKey), 1, ByPlayed)
	if len(top) == 1 {
		t := top[0]
		var trackPlays []history.Play
		for _, p := range plays {
			if p.Track == t.Name && p.Artist == t.Detail {
				trackPlays = append(trackPlays, p)
			}
		}
		h.TopTrack = &TrackHighlight{Track: t.Name, Artist: t.Detail, Played: t.Played}
		for _, d := range DailyTotals(trackPlays) {
			if d.Played > h.TopTrack.PeakPlayed {
				h.TopTrack.PeakDate = d.Date
				h.TopTrack.PeakPlayed = d.Played
			}
		}
	}

	return h
}
