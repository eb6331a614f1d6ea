package config

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kkyouma/myanimelist-scraper/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// FetchConfig configures the retrying fetcher and its HTTP transport.
type FetchConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DelayMs           int     `yaml:"delay_ms" mapstructure:"delay_ms"`
	BackoffBaseMs     int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	MaxBackoffMs      int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	HostRPS           float64 `yaml:"host_rps" mapstructure:"host_rps"`
}

// Policy converts the fetch settings to a retry policy.
func (c FetchConfig) Policy() resilience.Policy {
	return resilience.FromSettings(c.MaxAttempts, c.DelayMs, c.BackoffBaseMs, c.MaxBackoffMs, c.TimeoutSecs, c.BackoffMultiplier)
}

// StoreConfig configures where records and raw pages go.
type StoreConfig struct {
	// Destination is a file path (.csv, .json, .xlsx, .db) or a postgres:// URL.
	Destination string `yaml:"destination" mapstructure:"destination"`
	ArchiveDir  string `yaml:"archive_dir" mapstructure:"archive_dir"`
}

// CatalogConfig points at an optional YAML file overriding catalog settings.
type CatalogConfig struct {
	Overrides string `yaml:"overrides" mapstructure:"overrides"`
}

// ServerConfig configures the read-only records API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MALSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.timeout_secs", 5)
	v.SetDefault("fetch.delay_ms", 1000)
	v.SetDefault("fetch.backoff_base_ms", 1000)
	v.SetDefault("fetch.backoff_multiplier", 2.0)
	v.SetDefault("fetch.max_backoff_ms", 30000)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetch.host_rps", 2.0)
	v.SetDefault("store.destination", "data/records.csv")
	v.SetDefault("store.archive_dir", "data/raw")
	v.SetDefault("catalog.overrides", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var errs []string
	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, "fetch.max_attempts must be >= 1")
	}
	if c.Fetch.TimeoutSecs < 1 {
		errs = append(errs, "fetch.timeout_secs must be >= 1")
	}
	if c.Fetch.DelayMs < 0 {
		errs = append(errs, "fetch.delay_ms must be >= 0")
	}
	if c.Fetch.BackoffMultiplier < 1 {
		errs = append(errs, "fetch.backoff_multiplier must be >= 1")
	}
	if c.Fetch.HostRPS < 0 {
		errs = append(errs, "fetch.host_rps must be >= 0")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if strings.TrimSpace(c.Store.Destination) == "" {
		errs = append(errs, "store.destination is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, "log.format must be json or console")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
