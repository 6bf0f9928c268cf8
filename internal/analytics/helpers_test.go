package analytics

import (
	"testing"
	"time"

	"github.com/goodtune/listenstats/internal/history"
)

var testNormalizer = history.NewNormalizer(time.UTC)

// play builds a normalized play at ts (RFC 3339) lasting minutes.
func play(t *testing.T, ts, track, artist string, minutes int) history.Play {
	t.Helper()
	at, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", ts, err)
	}
	return testNormalizer.Play(history.Event{
		Timestamp: at,
		Played:    time.Duration(minutes) * time.Minute,
		Track:     track,
		Artist:    artist,
		Content:   history.ContentAudio,
	})
}

func dates(t *testing.T, ss ...string) []history.Date {
	t.Helper()
	out := make([]history.Date, len(ss))
	for i, s := range ss {
		d, err := history.ParseDate(s)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = d
	}
	return out
}

func day(s string, hours float64) DailyTotal {
	return DailyTotal{
		Date:   history.MustDate(s),
		Played: time.Duration(hours * float64(time.Hour)),
	}
}
