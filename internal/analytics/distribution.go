package analytics

import (
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goodtune/listenstats/internal/history"
)

// Bucket is one slot of a fixed-order distribution.
type Bucket struct {
	Label  string
	Played time.Duration
	Plays  int
	Days   int // active days contributing, for averages
}

func (b Bucket) Hours() float64 { return b.Played.Hours() }

func (b Bucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label string  `json:"label"`
		Hours float64 `json:"hours"`
		Plays int     `json:"plays"`
		Days  int     `json:"days,omitempty"`
	}{b.Label, roundHours(b.Played), b.Plays, b.Days})
}

// Weekdays in display order.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Time-of-day bucket names.
const (
	Morning   = "Morning"
	Afternoon = "Afternoon"
	Evening   = "Evening"
	Night     = "Night"
)

// TimeOfDay maps an hour to Morning (5-11), Afternoon (12-17),
// Evening (18-22) or Night (23-4).
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return Morning
	case hour >= 12 && hour <= 17:
		return Afternoon
	case hour >= 18 && hour <= 22:
		return Evening
	}
	return Night
}

// Hourly returns listening per hour of day, 00 to 23.
func Hourly(plays []history.Play) []Bucket {
	out := make([]Bucket, 24)
	for h := range out {
		out[h].Label = fmt.Sprintf("%02d", h)
	}
	for _, p := range plays {
		out[p.Hour].Played += p.Played
		out[p.Hour].Plays++
	}
	return out
}

// TimesOfDay returns listening per time-of-day bucket.
func TimesOfDay(plays []history.Play) []Bucket {
	order := []string{Morning, Afternoon, Evening, Night}
	out := make([]Bucket, len(order))
	index := make(map[string]int, len(order))
	for i, name := range order {
		out[i].Label = name
		index[name] = i
	}
	for _, p := range plays {
		b := &out[index[TimeOfDay(p.Hour)]]
		b.Played += p.Played
		b.Plays++
	}
	return out
}

// WeekdayAverage returns the mean daily listening per weekday, Monday
// first, averaged over the days that had any listening.
func WeekdayAverage(daily []DailyTotal) []Bucket {
	out := weekdayBuckets()
	for _, d := range daily {
		b := &out[weekdayIndex(d.Date.Weekday())]
		b.Played += d.Played
		b.Plays += d.Plays
		b.Days++
	}
	for i := range out {
		if out[i].Days > 0 {
			out[i].Played /= time.Duration(out[i].Days)
		}
	}
	return out
}

func weekdayBuckets() []Bucket {
	out := make([]Bucket, len(Weekdays))
	for i, wd := range Weekdays {
		out[i].Label = wd.String()
	}
	return out
}

func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Monthly returns listening per calendar month, January first, summed
// across years.
func Monthly(plays []history.Play) []Bucket {
	out := make([]Bucket, 12)
	for i := range out {
		out[i].Label = time.Month(i + 1).String()[:3]
	}
	for _, p := range plays {
		b := &out[p.Month-1]
		b.Played += p.Played
		b.Plays++
	}
	return out
}

// MonthlyTrend returns listening per year-month, ascending, for the
// months that have plays.
func MonthlyTrend(plays []history.Play) []Bucket {
	index := make(map[string]int)
	var out []Bucket
	for _, p := range plays {
		label := fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, Bucket{Label: label})
		}
		out[i].Played += p.Played
		out[i].Plays++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Split counts plays matching pred under yes and the rest under no.
func Split(plays []history.Play, pred func(history.Play) bool, yes, no string) []Bucket {
	out := []Bucket{{Label: yes}, {Label: no}}
	for _, p := range plays {
		b := &out[1]
		if pred(p) {
			b = &out[0]
		}
		b.Played += p.Played
		b.Plays++
	}
	return out
}

// ShuffleSplit counts shuffled against non-shuffled plays.
func ShuffleSplit(plays []history.Play) []Bucket {
	return Split(plays, func(p history.Play) bool { return p.Shuffle }, "Shuffled", "Not Shuffled")
}

// OfflineSplit counts offline against online plays.
func OfflineSplit(plays []history.Play) []Bucket {
	return Split(plays, func(p history.Play) bool { return p.Offline }, "Offline", "Online")
}

// Heatmap is listening hours by calendar month (rows) and weekday (columns).
type Heatmap struct {
	Rows    []string    `json:"rows"`
	Columns []string    `json:"columns"`
	Hours   [][]float64 `json:"hours"`
}

// MonthWeekdayHeatmap sums listening hours per month and weekday.
func MonthWeekdayHeatmap(plays []history.Play) Heatmap {
	var cells [12][7]time.Duration
	for _, p := range plays {
		cells[p.Month-1][weekdayIndex(p.Weekday)] += p.Played
	}

	h := Heatmap{
		Rows:    make([]string, 12),
		Columns: make([]string, len(Weekdays)),
		Hours:   make([][]float64, 12),
	}
	for i, wd := range Weekdays {
		h.Columns[i] = wd.String()[:3]
	}
	for m := 0; m < 12; m++ {
		h.Rows[m] = time.Month(m + 1).String()[:3]
		h.Hours[m] = make([]float64, len(Weekdays))
		for d := range Weekdays {
			h.Hours[m][d] = roundHours(cells[m][d])
		}
	}
	return h
}
