package analytics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodtune/listenstats/internal/history"
)

func TestLongestStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []history.Date
		start string
		end   string
		days  int
	}{
		{
			name:  "single run with gap",
			dates: dates(t, "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"),
			start: "2024-01-01", end: "2024-01-03", days: 3,
		},
		{
			name:  "single date",
			dates: dates(t, "2023-07-14"),
			start: "2023-07-14", end: "2023-07-14", days: 1,
		},
		{
			name:  "ties go to the earliest run",
			dates: dates(t, "2024-03-10", "2024-03-11", "2024-03-01", "2024-03-02"),
			start: "2024-03-01", end: "2024-03-02", days: 2,
		},
		{
			name:  "duplicates and unsorted input",
			dates: dates(t, "2024-01-03", "2024-01-01", "2024-01-02", "2024-01-02", "2024-01-01"),
			start: "2024-01-01", end: "2024-01-03", days: 3,
		},
		{
			name:  "across year end and leap day",
			dates: dates(t, "2023-12-30", "2023-12-31", "2024-01-01", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"),
			start: "2024-02-28", end: "2024-03-02", days: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := LongestStreak(tt.dates)
			require.True(t, ok)
			assert.Equal(t, history.MustDate(tt.start), s.Start)
			assert.Equal(t, history.MustDate(tt.end), s.End)
			assert.Equal(t, tt.days, s.Days)
		})
	}
}

func TestLongestStreakEmpty(t *testing.T) {
	s, ok := LongestStreak(nil)
	assert.False(t, ok)
	assert.Equal(t, Streak{}, s)

	_, ok = LatestStreak([]history.Date{})
	assert.False(t, ok)
	assert.Empty(t, Streaks(nil))
}

func TestStreaksAndLatest(t *testing.T) {
	in := dates(t, "2024-01-01", "2024-01-02", "2024-01-04", "2024-01-06", "2024-01-07", "2024-01-08")

	all := Streaks(in)
	require.Len(t, all, 3)
	assert.Equal(t, 2, all[0].Days)
	assert.Equal(t, 1, all[1].Days)
	assert.Equal(t, 3, all[2].Days)

	latest, ok := LatestStreak(in)
	require.True(t, ok)
	assert.Equal(t, history.MustDate("2024-01-06"), latest.Start)
	assert.Equal(t, history.MustDate("2024-01-08"), latest.End)
}

func TestLongestStreakIsMaximal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := history.MustDate("2022-01-01")

	for i := 0; i < 200; i++ {
		set := make(map[history.Date]bool)
		var in []history.Date
		for j := rng.Intn(60); j > 0; j-- {
			d := base.AddDays(rng.Intn(90))
			set[d] = true
			in = append(in, d)
		}

		s, ok := LongestStreak(in)
		if len(in) == 0 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)

		// contiguous
		assert.Equal(t, s.Days, s.Start.DaysUntil(s.End)+1)
		for d := s.Start; !d.After(s.End); d = d.AddDays(1) {
			assert.True(t, set[d], "date %s inside streak missing from input", d)
		}
		// not extendable
		assert.False(t, set[s.Start.AddDays(-1)])
		assert.False(t, set[s.End.AddDays(1)])
		// no longer or equal earlier run
		for d := range set {
			run := 1
			for set[d.AddDays(run)] {
				run++
			}
			assert.LessOrEqual(t, run, s.Days)
			if run == s.Days && !set[d.AddDays(-1)] {
				assert.False(t, d.Before(s.Start), "earlier run of equal length starting %s", d)
			}
		}
	}
}
