package analytics

import (
	"sort"

	"github.com/goodtune/listenstats/internal/history"
)

// Streak is a maximal run of consecutive days with listening.
type Streak struct {
	Start history.Date `json:"start"`
	End   history.Date `json:"end"`
	Days  int          `json:"days"`
}

// Streaks returns every maximal run of consecutive dates, ascending.
// Duplicate dates and input order do not matter.
func Streaks(dates []history.Date) []Streak {
	sorted := uniqueDates(dates)
	if len(sorted) == 0 {
		return nil
	}

	var out []Streak
	cur := Streak{Start: sorted[0], End: sorted[0], Days: 1}
	for _, d := range sorted[1:] {
		if cur.End.AddDays(1) == d {
			cur.End = d
			cur.Days++
			continue
		}
		out = append(out, cur)
		cur = Streak{Start: d, End: d, Days: 1}
	}
	return append(out, cur)
}

// LongestStreak returns the longest run of consecutive dates. When several
// runs share the maximum length the earliest one is returned. ok is false
// for empty input.
func LongestStreak(dates []history.Date) (Streak, bool) {
	var best Streak
	for _, s := range Streaks(dates) {
		if s.Days > best.Days {
			best = s
		}
	}
	return best, best.Days > 0
}

// LatestStreak returns the run that ends on the most recent date.
func LatestStreak(dates []history.Date) (Streak, bool) {
	all := Streaks(dates)
	if len(all) == 0 {
		return Streak{}, false
	}
	return all[len(all)-1], true
}

func uniqueDates(dates []history.Date) []history.Date {
	sorted := make([]history.Date, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	out := sorted[:0]
	for _, d := range sorted {
		if len(out) > 0 && out[len(out)-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out
}
