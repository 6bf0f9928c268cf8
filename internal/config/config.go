package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Archive   ArchiveConfig   `mapstructure:"archive" yaml:"archive"`
	Analytics AnalyticsConfig `mapstructure:"analytics" yaml:"analytics"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig defines dashboard and metrics listeners
type ServerConfig struct {
	BindAddress  string `mapstructure:"bind_address" yaml:"bind_address" validate:"required"`
	Port         int    `mapstructure:"port" yaml:"port" validate:"required|int|min:1|max:65535"`
	MetricsPort  int    `mapstructure:"metrics_port" yaml:"metrics_port" validate:"int|min:0|max:65535"` // 0 disables the metrics listener
	ReadTimeout  string `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// HistoryConfig defines where listening history is read from
type HistoryConfig struct {
	Source        string   `mapstructure:"source" yaml:"source" validate:"required|in:files,archive"`
	Paths         []string `mapstructure:"paths" yaml:"paths"` // files or glob patterns
	Timezone      string   `mapstructure:"timezone" yaml:"timezone" validate:"required"`
	Watch         bool     `mapstructure:"watch" yaml:"watch"`
	WatchDebounce string   `mapstructure:"watch_debounce" yaml:"watch_debounce"`
}

// ArchiveConfig defines the SQLite event archive
type ArchiveConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// AnalyticsConfig defines report defaults
type AnalyticsConfig struct {
	TopN            int       `mapstructure:"top_n" yaml:"top_n" validate:"required|int|min:1"`
	TopNMin         int       `mapstructure:"top_n_min" yaml:"top_n_min" validate:"required|int|min:1"`
	TopNMax         int       `mapstructure:"top_n_max" yaml:"top_n_max" validate:"required|int|min:1"`
	MilestoneHours  []float64 `mapstructure:"milestone_hours" yaml:"milestone_hours"`
	ReportCacheSize int       `mapstructure:"report_cache_size" yaml:"report_cache_size" validate:"required|int|min:1"`
}

// CacheConfig defines the API response cache
type CacheConfig struct {
	Type   string `mapstructure:"type" yaml:"type" validate:"required|in:none,memory,redis"`
	// SizeMB bounds the memory cache. A single response may use at most
	// 1/1024 of it; larger responses are served but not cached.
	SizeMB int    `mapstructure:"size_mb" yaml:"size_mb" validate:"int|min:0"`
	TTL    string `mapstructure:"ttl" yaml:"ttl"`
}

// RedisConfig defines the Redis connection used by the redis cache
type RedisConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Password     string `mapstructure:"password" yaml:"password"`
	DB           int    `mapstructure:"db" yaml:"db"`
	PoolSize     int    `mapstructure:"pool_size" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required|in:debug,info,warn,error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required|in:json,text"`
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Viper returns the raw viper instance for configPath, used by the validate
// command to look for keys the Config struct does not know.
func Viper(configPath string) (*viper.Viper, error) {
	return newViper(configPath)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LISTENSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		return v, nil
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return v, nil
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Defaults returns the configuration produced by defaults alone.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	// History defaults
	v.SetDefault("history.source", "files")
	v.SetDefault("history.paths", []string{
		"Streaming_History_Audio_*.json",
		"Streaming_History_Video_*.json",
	})
	v.SetDefault("history.timezone", "Local")
	v.SetDefault("history.watch", false)
	v.SetDefault("history.watch_debounce", "2s")

	// Archive defaults
	v.SetDefault("archive.path", "listenstats.db")

	// Analytics defaults
	v.SetDefault("analytics.top_n", 10)
	v.SetDefault("analytics.top_n_min", 5)
	v.SetDefault("analytics.top_n_max", 50)
	v.SetDefault("analytics.milestone_hours", []float64{100, 500, 1000, 2000, 5000, 10000, 20000})
	v.SetDefault("analytics.report_cache_size", 128)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.size_mb", 256)
	v.SetDefault("cache.ttl", "10m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	v := validate.Struct(cfg)
	if !v.Validate() {
		return v.Errors
	}

	if cfg.History.Source == "files" && len(cfg.History.Paths) == 0 {
		return fmt.Errorf("at least one history path is required")
	}

	if _, err := cfg.Location(); err != nil {
		return err
	}

	if cfg.Analytics.TopNMin > cfg.Analytics.TopNMax {
		return fmt.Errorf("analytics.top_n_min (%d) exceeds analytics.top_n_max (%d)",
			cfg.Analytics.TopNMin, cfg.Analytics.TopNMax)
	}
	if cfg.Analytics.TopN < cfg.Analytics.TopNMin || cfg.Analytics.TopN > cfg.Analytics.TopNMax {
		return fmt.Errorf("analytics.top_n %d outside [%d, %d]",
			cfg.Analytics.TopN, cfg.Analytics.TopNMin, cfg.Analytics.TopNMax)
	}
	for _, h := range cfg.Analytics.MilestoneHours {
		if h <= 0 {
			return fmt.Errorf("invalid milestone: %v hours", h)
		}
	}

	if cfg.Cache.Type == "redis" && cfg.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when cache.type is redis")
	}

	for name, d := range map[string]string{
		"server.read_timeout":    cfg.Server.ReadTimeout,
		"server.write_timeout":   cfg.Server.WriteTimeout,
		"history.watch_debounce": cfg.History.WatchDebounce,
		"cache.ttl":              cfg.Cache.TTL,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, d, err)
		}
	}

	return nil
}

// Location returns the time zone used to derive calendar fields.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.History.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid history.timezone %q: %w", c.History.Timezone, err)
	}
	return loc, nil
}

// Milestones returns the configured milestone thresholds as durations.
func (c *Config) Milestones() []time.Duration {
	out := make([]time.Duration, 0, len(c.Analytics.MilestoneHours))
	for _, h := range c.Analytics.MilestoneHours {
		out = append(out, time.Duration(h*float64(time.Hour)))
	}
	return out
}
