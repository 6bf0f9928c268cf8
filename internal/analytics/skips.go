package analytics

import (
	"github.com/goodtune/listenstats/internal/history"
)

// SkipTopK is the length of the skip rankings.
const SkipTopK = 5

// SkipSummary describes skipping behaviour. Available is false when no
// play carries a skip flag; the other fields are then empty.
type SkipSummary struct {
	Available    bool     `json:"available"`
	Skipped      int      `json:"skipped"`
	Known        int      `json:"known"`
	TopSkipped   []Ranked `json:"top_skipped"`
	TopCompleted []Ranked `json:"top_completed"`
}

// Skips ranks the most skipped tracks by count and the most listened
// tracks that were played through by listening time.
func Skips(plays []history.Play, k int) SkipSummary {
	var skipped, completed []history.Play
	for _, p := range plays {
		if !p.SkipKnown {
			continue
		}
		if p.Skipped {
			skipped = append(skipped, p)
		} else {
			completed = append(completed, p)
		}
	}

	known := len(skipped) + len(completed)
	if known == 0 {
		return SkipSummary{TopSkipped: []Ranked{}, TopCompleted: []Ranked{}}
	}
	return SkipSummary{
		Available:    true,
		Skipped:      len(skipped),
		Known:        known,
		TopSkipped:   TopK(GroupBy(skipped, TrackKey), k, ByPlays),
		TopCompleted: TopK(GroupBy(completed, TrackKey), k, ByPlayed),
	}
}
