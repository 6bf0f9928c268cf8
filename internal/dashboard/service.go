package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/goodtune/listenstats/internal/analytics"
	"github.com/goodtune/listenstats/internal/history"
	"github.com/goodtune/listenstats/internal/metrics"
)

// FilterOptions lists the choices the dashboard offers for the current
// dataset.
type FilterOptions struct {
	Years        []int                 `json:"years"`
	ContentTypes []history.ContentType `json:"content_types"`
	Artists      []string              `json:"artists"`
	Limits       analytics.Limits      `json:"top_n"`
}

// Status describes the loaded dataset and the last reload attempt.
type Status struct {
	Status      string    `json:"status"`
	Plays       int       `json:"plays"`
	Files       int       `json:"files"`
	Warnings    []string  `json:"warnings,omitempty"`
	Version     string    `json:"version,omitempty"`
	LoadedAt    time.Time `json:"loaded_at"`
	LastAttempt time.Time `json:"last_attempt"`
	Error       string    `json:"error,omitempty"`
}

// Service holds the current dataset snapshot and computes reports for it.
type Service struct {
	source  history.Source
	opts    analytics.Options
	limits  analytics.Limits
	reports *lru.Cache[string, *analytics.Report]
	logger  zerolog.Logger

	mu          sync.RWMutex
	dataset     *history.Dataset
	lastReport  *history.LoadReport
	lastAttempt time.Time
	loadErr     error
}

// NewService creates a service reading from source. cacheSize bounds the
// number of computed reports kept in memory.
func NewService(source history.Source, opts analytics.Options, limits analytics.Limits, cacheSize int, logger zerolog.Logger) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	reports, err := lru.New[string, *analytics.Report](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	return &Service{
		source:  source,
		opts:    opts,
		limits:  limits,
		reports: reports,
		logger:  logger.With().Str("component", "dashboard").Logger(),
	}, nil
}

// Reload loads a new dataset from the source. On failure the previous
// dataset, if any, stays in place.
func (s *Service) Reload(ctx context.Context) error {
	start := time.Now()
	ds, err := s.source.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAttempt = start
	if ds != nil {
		s.lastReport = ds.Report
	}
	if err != nil {
		s.loadErr = err
		metrics.Reloads.WithLabelValues("error").Inc()
		ev := s.logger.Warn().Err(err)
		if s.dataset != nil {
			ev = ev.Str("kept_version", s.dataset.Version())
		}
		ev.Msg("Failed to load listening history")
		return fmt.Errorf("reload: %w", err)
	}

	s.dataset = ds
	s.loadErr = nil
	s.reports.Purge()
	metrics.Reloads.WithLabelValues("ok").Inc()
	metrics.EventsLoaded.Set(float64(len(ds.Plays)))

	warnings := 0
	if ds.Report != nil {
		warnings = len(ds.Report.Warnings)
	}
	s.logger.Info().
		Int("plays", len(ds.Plays)).
		Int("warnings", warnings).
		Str("version", ds.Version()).
		Dur("duration", time.Since(start)).
		Msg("Listening history loaded")
	return nil
}

// Dataset returns the current snapshot. The error wraps history.ErrNoData
// when nothing has been loaded.
func (s *Service) Dataset() (*history.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dataset != nil {
		return s.dataset, nil
	}
	if s.loadErr != nil && !errors.Is(s.loadErr, history.ErrNoData) {
		return nil, fmt.Errorf("%w: %v", history.ErrNoData, s.loadErr)
	}
	return nil, history.ErrNoData
}

// Warnings returns the warnings of the most recent load attempt.
func (s *Service) Warnings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastReport == nil {
		return nil
	}
	return s.lastReport.Warnings
}

// Limits returns the top-N bounds used to normalize filters.
func (s *Service) Limits() analytics.Limits {
	return s.limits
}

// Normalize canonicalizes f against the service limits.
func (s *Service) Normalize(f analytics.Filter) analytics.Filter {
	return f.Normalize(s.limits)
}

// Report returns the report for f over the current dataset, together with
// the dataset version it was computed for.
func (s *Service) Report(f analytics.Filter) (*analytics.Report, string, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, "", err
	}
	return s.ReportFor(ds, f), ds.Version(), nil
}

// ReportFor returns the report for f over ds, which need not be the
// current dataset.
func (s *Service) ReportFor(ds *history.Dataset, f analytics.Filter) *analytics.Report {
	f = s.Normalize(f)
	key := ds.Version() + "|" + f.Key()
	if r, ok := s.reports.Get(key); ok {
		metrics.ReportCacheHits.Inc()
		return r
	}
	metrics.ReportCacheMisses.Inc()

	start := time.Now()
	r := analytics.Compute(ds.Plays, f, s.opts)
	elapsed := time.Since(start)
	metrics.ReportDuration.Observe(elapsed.Seconds())
	s.reports.Add(key, r)

	s.logger.Debug().
		Str("filter", f.Key()).
		Dur("duration", elapsed).
		Msg("Report computed")
	return r
}

// FilterOptions returns the selectable filter values.
func (s *Service) FilterOptions() (FilterOptions, error) {
	ds, err := s.Dataset()
	if err != nil {
		return FilterOptions{}, err
	}
	return FilterOptions{
		Years:        ds.Years(),
		ContentTypes: ds.ContentTypes(),
		Artists:      ds.Artists(),
		Limits:       s.limits,
	}, nil
}

// Status reports on the dataset and the last reload.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{Status: "unavailable", LastAttempt: s.lastAttempt}
	if s.lastReport != nil {
		st.Files = len(s.lastReport.Files)
		st.Warnings = s.lastReport.Warnings
	}
	if s.loadErr != nil {
		st.Error = s.loadErr.Error()
	}
	if s.dataset != nil {
		st.Status = "ok"
		st.Plays = len(s.dataset.Plays)
		st.Version = s.dataset.Version()
		st.LoadedAt = s.dataset.LoadedAt
	}
	return st
}
