package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goodtune/listenstats/internal/history"
)

// Limits bound the top-N selection.
type Limits struct {
	Default int `json:"default"`
	Min     int `json:"min"`
	Max     int `json:"max"`
}

// DefaultLimits allow 5 to 50 entries with 10 by default.
var DefaultLimits = Limits{Default: 10, Min: 5, Max: 50}

// Filter is the dashboard selection a report is computed for. Empty Years
// or Content select everything. Artist only drives the artist drill-down.
type Filter struct {
	Years   []int                 `json:"years,omitempty"`
	Content []history.ContentType `json:"content,omitempty"`
	Artist  string                `json:"artist,omitempty"`
	TopN    int                   `json:"top_n"`
}

// Normalize returns f with sorted, duplicate-free selections and TopN
// defaulted and clamped to l.
func (f Filter) Normalize(l Limits) Filter {
	out := Filter{Artist: strings.TrimSpace(f.Artist), TopN: f.TopN}

	if len(f.Years) > 0 {
		seen := make(map[int]bool)
		for _, y := range f.Years {
			if !seen[y] {
				seen[y] = true
				out.Years = append(out.Years, y)
			}
		}
		sort.Ints(out.Years)
	}

	if len(f.Content) > 0 {
		seen := make(map[history.ContentType]bool)
		for _, c := range f.Content {
			if !seen[c] {
				seen[c] = true
				out.Content = append(out.Content, c)
			}
		}
		sort.Slice(out.Content, func(i, j int) bool { return out.Content[i] < out.Content[j] })
	}

	switch {
	case out.TopN == 0:
		out.TopN = l.Default
	case out.TopN < l.Min:
		out.TopN = l.Min
	case out.TopN > l.Max:
		out.TopN = l.Max
	}
	return out
}

// Key is a canonical string for f, suitable as a cache key once f has
// been normalized.
func (f Filter) Key() string {
	years := make([]string, len(f.Years))
	for i, y := range f.Years {
		years[i] = strconv.Itoa(y)
	}
	content := make([]string, len(f.Content))
	for i, c := range f.Content {
		content[i] = string(c)
	}
	return fmt.Sprintf("y=%s;c=%s;a=%s;n=%d",
		strings.Join(years, ","), strings.Join(content, ","),
		f.Artist, f.TopN)
}

// Match reports whether p is inside the year and content selection.
func (f Filter) Match(p history.Play) bool {
	if len(f.Years) > 0 && !containsInt(f.Years, p.Year) {
		return false
	}
	if len(f.Content) > 0 {
		found := false
		for _, c := range f.Content {
			if c == p.Content {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply returns the plays matching f, preserving order.
func Apply(plays []history.Play, f Filter) []history.Play {
	if len(f.Years) == 0 && len(f.Content) == 0 {
		return plays
	}
	out := make([]history.Play, 0, len(plays))
	for _, p := range plays {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
