package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodtune/listenstats/internal/history"
)

func TestMilestonesCrossedOnSecondDay(t *testing.T) {
	got := Milestones([]DailyTotal{day("2024-01-01", 60), day("2024-01-02", 50)}, []time.Duration{100 * time.Hour})

	require.Len(t, got, 1)
	assert.Equal(t, history.MustDate("2024-01-02"), got[0].Date)
	assert.Equal(t, 100*time.Hour, got[0].Threshold)
	assert.Equal(t, 110*time.Hour, got[0].Cumulative)
}

func TestMilestonesExactThreshold(t *testing.T) {
	got := Milestones([]DailyTotal{day("2024-01-01", 40), day("2024-01-02", 60)}, []time.Duration{100 * time.Hour})
	require.Len(t, got, 1)
	assert.Equal(t, history.MustDate("2024-01-02"), got[0].Date)
}

func TestMilestonesUnreachedOmitted(t *testing.T) {
	got := Milestones([]DailyTotal{day("2024-01-01", 150)}, DefaultMilestones)
	require.Len(t, got, 1)
	assert.Equal(t, 100*time.Hour, got[0].Threshold)
}

func TestMilestonesSeveralOnOneDay(t *testing.T) {
	got := Milestones([]DailyTotal{day("2024-01-01", 10), day("2024-01-02", 600)}, DefaultMilestones)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Date, got[1].Date)
	assert.Equal(t, 500*time.Hour, got[1].Threshold)
}

func TestMilestonesUnsortedInput(t *testing.T) {
	daily := []DailyTotal{day("2024-01-03", 30), day("2024-01-01", 30), day("2024-01-02", 30)}
	thresholds := []time.Duration{80 * time.Hour, 50 * time.Hour, 50 * time.Hour, 20 * time.Hour}

	got := Milestones(daily, thresholds)
	require.Len(t, got, 3)
	assert.Equal(t, history.MustDate("2024-01-01"), got[0].Date)
	assert.Equal(t, history.MustDate("2024-01-02"), got[1].Date)
	assert.Equal(t, history.MustDate("2024-01-03"), got[2].Date)

	// input is not reordered
	assert.Equal(t, history.MustDate("2024-01-03"), daily[0].Date)
}

func TestMilestonesEmpty(t *testing.T) {
	assert.Empty(t, Milestones(nil, DefaultMilestones))
	assert.Empty(t, Milestones([]DailyTotal{day("2024-01-01", 500)}, nil))
}

func TestMilestoneDatesNonDecreasing(t *testing.T) {
	var daily []DailyTotal
	d := history.MustDate("2020-01-01")
	for i := 0; i < 1500; i++ {
		daily = append(daily, DailyTotal{Date: d.AddDays(i), Played: time.Duration(i%7+1) * time.Hour})
	}

	got := Milestones(daily, DefaultMilestones)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Date.Before(got[i-1].Date))
		assert.Greater(t, got[i].Threshold, got[i-1].Threshold)
	}
}
