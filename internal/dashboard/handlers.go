package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goodtune/listenstats/internal/analytics"
	"github.com/goodtune/listenstats/internal/history"
	"github.com/goodtune/listenstats/internal/metrics"
	"github.com/goodtune/listenstats/internal/storage"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// Page is the data passed to the dashboard template.
type Page struct {
	Report      *analytics.Report
	ReportJSON  template.JS
	Options     FilterOptions
	Filter      analytics.Filter
	Warnings    []string
	HeatmapMax  float64
	Error       string
	GeneratedAt time.Time
}

// YearSelected reports whether year is part of the active filter.
func (p Page) YearSelected(year int) bool {
	for _, y := range p.Filter.Years {
		if y == year {
			return true
		}
	}
	return false
}

// TypeSelected reports whether c is part of the active filter.
func (p Page) TypeSelected(c history.ContentType) bool {
	for _, x := range p.Filter.Content {
		if x == c {
			return true
		}
	}
	return false
}

type unavailablePage struct {
	Message     string
	Warnings    []string
	GeneratedAt time.Time
}

// parseFilter reads the filter query parameters. year and type may be
// repeated or comma separated.
func parseFilter(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	var f analytics.Filter

	for _, v := range splitValues(q["year"]) {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return f, fmt.Errorf("invalid year %q", v)
		}
		f.Years = append(f.Years, y)
	}

	for _, v := range splitValues(q["type"]) {
		c, err := history.ParseContentType(v)
		if err != nil {
			return f, err
		}
		f.Content = append(f.Content, c)
	}

	f.Artist = strings.TrimSpace(q.Get("artist"))

	if v := strings.TrimSpace(q.Get("top")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid top %q", v)
		}
		f.TopN = n
	}

	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	page := Page{GeneratedAt: time.Now(), Warnings: s.service.Warnings()}

	f, err := parseFilter(r)
	if err != nil {
		status = http.StatusBadRequest
		page.Error = err.Error()
		f = analytics.Filter{}
	}

	opts, err := s.service.FilterOptions()
	if err != nil {
		s.renderUnavailable(w, err)
		return
	}

	report, _, err := s.service.Report(f)
	if err != nil {
		s.renderUnavailable(w, err)
		return
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode report")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page.Report = report
	page.ReportJSON = template.JS(encoded)
	page.Options = opts
	page.Filter = report.Filter
	page.HeatmapMax = heatmapMax(report.Heatmap)

	s.render(w, status, "dashboard.html", page)
}

func (s *Server) renderUnavailable(w http.ResponseWriter, err error) {
	s.render(w, http.StatusServiceUnavailable, "unavailable.html", unavailablePage{
		Message:     err.Error(),
		Warnings:    s.service.Warnings(),
		GeneratedAt: time.Now(),
	})
}

// render executes the template into a buffer before writing the response.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := s.service.Dataset()
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	ctx := r.Context()
	backend := s.cache.Name()
	key := "report:" + ds.Version() + ":" + s.service.Normalize(f).Key()

	if body, err := s.cache.Get(ctx, key); err == nil {
		metrics.ResponseCacheHits.WithLabelValues(backend).Inc()
		w.Header().Set("X-Cache", "HIT")
		writeRawJSON(w, http.StatusOK, body)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn().Err(err).Str("backend", backend).Msg("Response cache read failed")
	}
	metrics.ResponseCacheMisses.WithLabelValues(backend).Inc()

	body, err := json.Marshal(s.service.ReportFor(ds, f))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode report")
		WriteError(w, http.StatusInternalServerError, "Failed to encode report")
		return
	}

	if err := s.cache.Set(ctx, key, body, s.config.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("backend", backend).Msg("Response cache write failed")
	}

	w.Header().Set("X-Cache", "MISS")
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.service.FilterOptions()
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, opts)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reload(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, history.ErrNoData) {
			status = http.StatusServiceUnavailable
		}
		WriteError(w, status, err.Error())
		return
	}

	if err := s.cache.Purge(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to purge response cache")
	}

	WriteJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()
	status := http.StatusOK
	if st.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, st)
}

func heatmapMax(h analytics.Heatmap) float64 {
	var top float64
	for _, row := range h.Hours {
		for _, v := range row {
			if v > top {
				top = v
			}
		}
	}
	return top
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	writeRawJSON(w, statusCode, body)
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func writeRawJSON(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}
