package analytics

import (
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goodtune/listenstats/internal/history"
)

// DefaultMilestones are the cumulative listening thresholds reported when
// none are configured.
var DefaultMilestones = []time.Duration{
	100 * time.Hour,
	500 * time.Hour,
	1000 * time.Hour,
	2000 * time.Hour,
	5000 * time.Hour,
	10000 * time.Hour,
	20000 * time.Hour,
}

// Milestone is the first day cumulative listening reached Threshold.
type Milestone struct {
	Threshold  time.Duration
	Date       history.Date
	Cumulative time.Duration
}

func (m Milestone) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ThresholdHours  float64      `json:"threshold_hours"`
		Date            history.Date `json:"date"`
		CumulativeHours float64      `json:"cumulative_hours"`
	}{roundHours(m.Threshold), m.Date, roundHours(m.Cumulative)})
}

// Milestones walks the daily totals in date order and reports, for each
// threshold, the first date on which the running total is at least the
// threshold. Thresholds never reached are omitted. The result is ordered
// by threshold, so its dates never decrease.
func Milestones(daily []DailyTotal, thresholds []time.Duration) []Milestone {
	levels := uniqueDurations(thresholds)
	if len(levels) == 0 || len(daily) == 0 {
		return []Milestone{}
	}

	days := make([]DailyTotal, len(daily))
	copy(days, daily)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	out := []Milestone{}
	var cumulative time.Duration
	next := 0
	for _, d := range days {
		cumulative += d.Played
		for next < len(levels) && cumulative >= levels[next] {
			out = append(out, Milestone{Threshold: levels[next], Date: d.Date, Cumulative: cumulative})
			next++
		}
		if next == len(levels) {
			break
		}
	}
	return out
}

func uniqueDurations(in []time.Duration) []time.Duration {
	sorted := make([]time.Duration, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := sorted[:0]
	for _, d := range sorted {
		if len(out) > 0 && out[len(out)-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out
}
