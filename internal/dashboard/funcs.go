package dashboard

import (
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/goodtune/listenstats/internal/analytics"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"hm":    analytics.FormatHoursMinutes,
		"hours": formatHours,
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"shade": shade,
		"dict":  dict,
		"inc":   func(i int) int { return i + 1 },
	}
}

// formatHours renders d as hours with two decimals and thousands separators.
func formatHours(d time.Duration) string {
	return humanize.FormatFloat("#,###.##", d.Hours())
}

// shade is the heatmap cell background for v on a scale up to top.
func shade(v, top float64) template.CSS {
	alpha := 0.0
	if top > 0 {
		alpha = 0.1 + 0.9*v/top
	}
	if v <= 0 {
		alpha = 0
	}
	return template.CSS(fmt.Sprintf("background-color: rgba(29, 185, 84, %.2f)", alpha))
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}
