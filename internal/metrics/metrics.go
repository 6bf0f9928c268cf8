package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// HTTP metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenstats_http_requests_total",
			Help: "Total number of dashboard HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listenstats_http_request_duration_seconds",
			Help:    "Dashboard HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Loading metrics
	FilesLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenstats_history_files_total",
			Help: "History files read, by result",
		},
		[]string{"result"},
	)

	EventsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "listenstats_events_loaded",
			Help: "Plays in the current dataset after deduplication",
		},
	)

	Reloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenstats_reloads_total",
			Help: "Dataset reloads, by result",
		},
		[]string{"result"},
	)

	// Report metrics
	ReportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listenstats_report_compute_duration_seconds",
			Help:    "Time spent computing a report",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	ReportCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listenstats_report_cache_hits_total",
			Help: "Reports served from the in-process report cache",
		},
	)

	ReportCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listenstats_report_cache_misses_total",
			Help: "Reports that had to be computed",
		},
	)

	// Response cache metrics
	ResponseCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenstats_response_cache_hits_total",
			Help: "API responses served from the response cache",
		},
		[]string{"backend"},
	)

	ResponseCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenstats_response_cache_misses_total",
			Help: "API responses not found in the response cache",
		},
		[]string{"backend"},
	)

	// Archive metrics
	EventsArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listenstats_events_archived_total",
			Help: "Events written to the archive",
		},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(FilesLoaded)
	prometheus.MustRegister(EventsLoaded)
	prometheus.MustRegister(Reloads)
	prometheus.MustRegister(ReportDuration)
	prometheus.MustRegister(ReportCacheHits)
	prometheus.MustRegister(ReportCacheMisses)
	prometheus.MustRegister(ResponseCacheHits)
	prometheus.MustRegister(ResponseCacheMisses)
	prometheus.MustRegister(EventsArchived)
}

// Server serves Prometheus metrics on a separate listener
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
