package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goodtune/listenstats/internal/storage"
	"github.com/goodtune/listenstats/web"
)

// Config holds the dashboard server configuration.
type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CacheTTL is how long encoded API responses stay in the response cache.
	CacheTTL time.Duration
	// ReloadLimit is the number of reload requests allowed per client and
	// ReloadWindow.
	ReloadLimit  int
	ReloadWindow time.Duration
}

// Server represents the dashboard HTTP server.
type Server struct {
	config    Config
	service   *Service
	cache     storage.ResponseCache
	limiter   *RateLimiter
	server    *http.Server
	router    *mux.Router
	templates *template.Template
	listener  net.Listener
	logger    zerolog.Logger
}

// NewServer creates a new dashboard server. A nil cache disables response
// caching.
func NewServer(cfg Config, service *Service, cache storage.ResponseCache, logger zerolog.Logger) (*Server, error) {
	if cache == nil {
		cache = storage.NopCache{}
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.ReloadLimit == 0 {
		cfg.ReloadLimit = 6
	}
	if cfg.ReloadWindow == 0 {
		cfg.ReloadWindow = time.Minute
	}

	tmpl, err := web.Templates(templateFuncs())
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		config:    cfg,
		service:   service,
		cache:     cache,
		limiter:   NewRateLimiter(cfg.ReloadLimit, cfg.ReloadWindow),
		router:    mux.NewRouter(),
		templates: tmpl,
		logger:    logger.With().Str("component", "http").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(MetricsMiddleware())

	s.router.HandleFunc("/", s.handleDashboard).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", web.StaticHandler()))

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/report", s.handleReport).Methods("GET")
	api.HandleFunc("/filters", s.handleFilters).Methods("GET")
	api.Handle("/reload", RateLimitMiddleware(s.limiter)(http.HandlerFunc(s.handleReload))).Methods("POST")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation.
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the dashboard HTTP server.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.config.ListenAddr).
		Str("response_cache", s.cache.Name()).
		Msg("Starting dashboard server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated HTTP listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Dashboard server error")
		}
	}()

	return nil
}

// Stop gracefully stops the dashboard HTTP server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping dashboard server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard server shutdown: %w", err)
	}

	return nil
}
