package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goodtune/listenstats/internal/analytics"
	"github.com/goodtune/listenstats/internal/config"
	"github.com/goodtune/listenstats/internal/dashboard"
	"github.com/goodtune/listenstats/internal/history"
	"github.com/goodtune/listenstats/internal/metrics"
	"github.com/goodtune/listenstats/internal/storage"
	"github.com/goodtune/listenstats/internal/storage/memory"
	"github.com/goodtune/listenstats/internal/storage/redis"
	"github.com/goodtune/listenstats/internal/storage/sqlite"
	"github.com/goodtune/listenstats/internal/systemd"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long:  `Load the listening history and serve the dashboard, the JSON API and Prometheus metrics.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting listenstats")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	source, closeSource, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	cache, err := openResponseCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize response cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close response cache")
		}
	}()

	logger.Info().
		Str("type", cache.Name()).
		Str("ttl", cfg.Cache.TTL).
		Msg("Response cache initialized")

	svc, err := dashboard.NewService(
		source,
		analytics.Options{Milestones: cfg.Milestones()},
		limitsFromConfig(cfg),
		cfg.Analytics.ReportCacheSize,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard: %w", err)
	}

	// Without data the dashboard serves an explanatory page until a reload
	// succeeds.
	if err := svc.Reload(ctx); err != nil {
		logger.Warn().Err(err).Msg("Starting without listening data")
	}

	dashboardCfg := dashboard.Config{
		ListenAddr:   fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port),
		ReadTimeout:  parseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: parseDuration(cfg.Server.WriteTimeout, 30*time.Second),
		CacheTTL:     parseDuration(cfg.Cache.TTL, 10*time.Minute),
	}

	server, err := dashboard.NewServer(dashboardCfg, svc, cache, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard server: %w", err)
	}
	if sdListeners.HTTP != nil {
		server.SetListener(sdListeners.HTTP)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start dashboard server: %w", err)
	}

	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		// Use systemd socket-activated listener if available
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}
	}

	reload := func(reason string) {
		logger.Info().Str("reason", reason).Msg("Reloading listening history")
		if err := systemd.NotifyReloading(); err != nil {
			logger.Warn().Err(err).Msg("Failed to send systemd reloading notification")
		}
		if err := svc.Reload(ctx); err == nil {
			if err := cache.Purge(ctx); err != nil {
				logger.Warn().Err(err).Msg("Failed to purge response cache")
			}
		}
		if err := systemd.NotifyReady(); err != nil {
			logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
		}
	}

	var watcher *history.Watcher
	if cfg.History.Watch && cfg.History.Source == "files" {
		debounce := parseDuration(cfg.History.WatchDebounce, 2*time.Second)
		watcher, err = history.NewWatcher(cfg.History.Paths, debounce, func() { reload("files changed") }, logger)
		if err != nil {
			return fmt.Errorf("failed to watch history files: %w", err)
		}
		watcher.Start(ctx)
	}

	logger.Info().Msg("listenstats startup complete")
	logger.Info().Msgf("Dashboard: http://%s", dashboardCfg.ListenAddr)
	if metricsServer != nil {
		logger.Info().Msgf("Metrics: http://%s:%d/metrics", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	}

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else if systemd.IsSystemdService() {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	// Wait for signals (shutdown or reload)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			reload("SIGHUP")
			continue
		}
		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if watcher != nil {
		watcher.Stop()
	}

	if err := server.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping dashboard server")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("listenstats stopped")

	return nil
}

// openSource builds the dataset source selected by history.source. The
// returned func releases what the source holds open.
func openSource(cfg *config.Config, logger zerolog.Logger) (history.Source, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	normalizer := history.NewNormalizer(loc)

	switch cfg.History.Source {
	case "archive":
		archive, err := sqlite.Open(cfg.Archive.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open archive: %w", err)
		}
		closeArchive := func() {
			if err := archive.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close archive")
			}
		}
		return &history.ArchiveSource{Reader: archive, Normalizer: normalizer}, closeArchive, nil
	case "files", "":
		return &history.FileSource{
			Loader:     history.NewLoader(loc, logger),
			Normalizer: normalizer,
			Patterns:   cfg.History.Paths,
		}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported history source: %s", cfg.History.Source)
	}
}

func openResponseCache(cfg *config.Config) (storage.ResponseCache, error) {
	switch cfg.Cache.Type {
	case "memory":
		return memory.New(cfg.Cache.SizeMB), nil
	case "redis":
		c, err := redis.Open(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "none", "":
		return storage.NopCache{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
	}
}

func limitsFromConfig(cfg *config.Config) analytics.Limits {
	return analytics.Limits{
		Default: cfg.Analytics.TopN,
		Min:     cfg.Analytics.TopNMin,
		Max:     cfg.Analytics.TopNMax,
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
