package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodtune/listenstats/internal/history"
)

func TestTopKMoreThanGroups(t *testing.T) {
	plays := []history.Play{
		play(t, "2024-01-01T10:00:00Z", "A", "X", 3),
		play(t, "2024-01-01T11:00:00Z", "B", "X", 5),
		play(t, "2024-01-01T12:00:00Z", "C", "Y", 1),
	}

	top := Top(plays, TrackKey, 10)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"B", "A", "C"}, names(top))
}

func TestTopKTiesKeepFirstEncountered(t *testing.T) {
	plays := []history.Play{
		play(t, "2024-01-01T10:00:00Z", "Second", "X", 2),
		play(t, "2024-01-01T11:00:00Z", "First", "X", 4),
		play(t, "2024-01-01T12:00:00Z", "Third", "X", 2),
		play(t, "2024-01-01T13:00:00Z", "Fourth", "X", 2),
	}

	top := Top(plays, TrackKey, 3)
	assert.Equal(t, []string{"First", "Second", "Third"}, names(top))
}

func TestGroupBySkipsEmptyKeysAndSplitsByArtist(t *testing.T) {
	plays := []history.Play{
		play(t, "2024-01-01T10:00:00Z", "Intro", "X", 1),
		play(t, "2024-01-01T11:00:00Z", "Intro", "Y", 1),
		play(t, "2024-01-01T12:00:00Z", "", "", 10),
		play(t, "2024-01-01T13:00:00Z", "Intro", "X", 1),
	}

	groups := GroupBy(plays, TrackKey)
	require.Len(t, groups, 2)
	assert.Equal(t, Ranked{Name: "Intro", Detail: "X", Played: 2 * time.Minute, Plays: 2}, groups[0])
	assert.Equal(t, "Y", groups[1].Detail)
}

func TestRankByPlays(t *testing.T) {
	groups := []Ranked{
		{Name: "long", Played: time.Hour, Plays: 1},
		{Name: "often", Played: time.Minute, Plays: 9},
	}
	assert.Equal(t, []string{"often", "long"}, names(Rank(groups, ByPlays)))
	assert.Equal(t, []string{"long", "often"}, names(Rank(groups, ByPlayed)))
	assert.Empty(t, TopK(groups, 0, ByPlayed))
}

func TestTimeOfDayBoundaries(t *testing.T) {
	want := map[int]string{
		0: Night, 4: Night, 5: Morning, 11: Morning, 12: Afternoon,
		17: Afternoon, 18: Evening, 22: Evening, 23: Night,
	}
	for hour, bucket := range want {
		assert.Equal(t, bucket, TimeOfDay(hour), "hour %d", hour)
	}
}

func TestHourlyAndTimesOfDay(t *testing.T) {
	plays := []history.Play{
		play(t, "2024-01-01T06:30:00Z", "A", "X", 30),
		play(t, "2024-01-01T06:45:00Z", "B", "X", 15),
		play(t, "2024-01-01T23:10:00Z", "C", "X", 60),
	}

	hourly := Hourly(plays)
	require.Len(t, hourly, 24)
	assert.Equal(t, "06", hourly[6].Label)
	assert.Equal(t, 45*time.Minute, hourly[6].Played)
	assert.Equal(t, 2, hourly[6].Plays)

	tod := TimesOfDay(plays)
	require.Len(t, tod, 4)
	assert.Equal(t, Morning, tod[0].Label)
	assert.Equal(t, 45*time.Minute, tod[0].Played)
	assert.Equal(t, Night, tod[3].Label)
	assert.Equal(t, time.Hour, tod[3].Played)
}

func TestWeekdayAverageOverActiveDays(t *testing.T) {
	// 2024-01-01 and 2024-01-08 are Mondays, 2024-01-03 a Wednesday.
	daily := []DailyTotal{day("2024-01-01", 1), day("2024-01-08", 3), day("2024-01-03", 2)}

	avg := WeekdayAverage(daily)
	require.Len(t, avg, 7)
	assert.Equal(t, "Monday", avg[0].Label)
	assert.Equal(t, 2*time.Hour, avg[0].Played)
	assert.Equal(t, 2, avg[0].Days)
	assert.Equal(t, 2*time.Hour, avg[2].Played)
	assert.Equal(t, "Sunday", avg[6].Label)
	assert.Equal(t, time.Duration(0), avg[6].Played)
}

func TestMonthlyTrendAndHeatmap(t *testing.T) {
	plays := []history.Play{
		play(t, "2024-02-05T10:00:00Z", "A", "X", 60),
		play(t, "2023-11-20T10:00:00Z", "A", "X", 30),
		play(t, "2024-02-12T10:00:00Z", "A", "X", 90),
	}

	trend := MonthlyTrend(plays)
	require.Len(t, trend, 2)
	assert.Equal(t, "2023-11", trend[0].Label)
	assert.Equal(t, "2024-02", trend[1].Label)
	assert.Equal(t, 150*time.Minute, trend[1].Played)

	monthly := Monthly(plays)
	assert.Equal(t, "Feb", monthly[1].Label)
	assert.Equal(t, 150*time.Minute, monthly[1].Played)

	// both February plays are on Mondays
	h := MonthWeekdayHeatmap(plays)
	assert.Equal(t, "Feb", h.Rows[1])
	assert.Equal(t, "Mon", h.Columns[0])
	assert.Equal(t, 2.5, h.Hours[1][0])
}

func TestDailyTotalsAndSplits(t *testing.T) {
	a := play(t, "2024-01-02T10:00:00Z", "A", "X", 10)
	a.Shuffle = true
	b := play(t, "2024-01-01T10:00:00Z", "B", "X", 20)
	b.Offline = true
	c := play(t, "2024-01-02T12:00:00Z", "C", "X", 5)

	daily := DailyTotals([]history.Play{a, b, c})
	require.Len(t, daily, 2)
	assert.Equal(t, history.MustDate("2024-01-01"), daily[0].Date)
	assert.Equal(t, 15*time.Minute, daily[1].Played)
	assert.Equal(t, 2, daily[1].Plays)

	shuffle := ShuffleSplit([]history.Play{a, b, c})
	assert.Equal(t, 1, shuffle[0].Plays)
	assert.Equal(t, 2, shuffle[1].Plays)

	offline := OfflineSplit([]history.Play{a, b, c})
	assert.Equal(t, "Offline", offline[0].Label)
	assert.Equal(t, 1, offline[0].Plays)
}

func names(rs []Ranked) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}
