package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig    `yaml:"store" mapstructure:"store"`
	Fetch   FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Mojo    MojoConfig     `yaml:"mojo" mapstructure:"mojo"`
	IMDb    IMDbConfig     `yaml:"imdb" mapstructure:"imdb"`
	Figures figures.Policy `yaml:"figures" mapstructure:"figures"`
	Scrape  ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Path        string           `yaml:"path" mapstructure:"path"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// FetchConfig configures page retrieval shared by every scraper.
type FetchConfig struct {
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int    `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffMs int    `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	DelayMs          int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MaxBodyMB        int    `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// Delay returns the pause between requests to the same site.
func (f FetchConfig) Delay() time.Duration {
	return time.Duration(f.DelayMs) * time.Millisecond
}

// CacheTTL returns how long fetched pages stay fresh. Zero disables caching.
func (f FetchConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLHours) * time.Hour
}

// MojoConfig configures the Box Office Mojo scraper.
type MojoConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// IMDbConfig configures the IMDb listing scraper.
type IMDbConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	DelayMs  int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
}

// ScrapeConfig bounds the years and record counts a run may request.
type ScrapeConfig struct {
	MinYear      int    `yaml:"min_year" mapstructure:"min_year"`
	MaxYear      int    `yaml:"max_year" mapstructure:"max_year"`
	DefaultLimit int    `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int    `yaml:"max_limit" mapstructure:"max_limit"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("BOXOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	policy := figures.DefaultPolicy()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "boxoffice.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.pool.max_conns", 4)
	v.SetDefault("store.pool.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.initial_backoff_ms", 500)
	v.SetDefault("fetch.delay_ms", 500)
	v.SetDefault("fetch.cache_ttl_hours", 24)
	v.SetDefault("fetch.max_body_mb", 10)
	v.SetDefault("mojo.base_url", "https://www.boxofficemojo.com")
	v.SetDefault("imdb.base_url", "https://www.imdb.com")
	v.SetDefault("imdb.delay_ms", 1000)
	v.SetDefault("imdb.max_pages", 40)
	v.SetDefault("figures.version", policy.Version)
	v.SetDefault("figures.tolerance", policy.Tolerance)
	v.SetDefault("figures.min_amount", int64(policy.MinAmount))
	v.SetDefault("figures.max_amount", int64(policy.MaxAmount))
	v.SetDefault("figures.fallback_ratio", policy.FallbackRatio)
	v.SetDefault("figures.max_international", int64(policy.MaxInternational))
	v.SetDefault("figures.max_international_ratio", policy.MaxInternationalRatio)
	v.SetDefault("scrape.min_year", 1977)
	v.SetDefault("scrape.max_year", time.Now().Year())
	v.SetDefault("scrape.default_limit", 50)
	v.SetDefault("scrape.max_limit", 200)
	v.SetDefault("scrape.output_dir", ".")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "scrape":
		if c.Scrape.MinYear <= 0 || c.Scrape.MaxYear < c.Scrape.MinYear {
			errs = append(errs, "scrape.min_year and scrape.max_year must form a valid range")
		}
		if c.Scrape.MaxLimit < 1 {
			errs = append(errs, "scrape.max_limit must be >= 1")
		}
		if c.Scrape.DefaultLimit < 1 || c.Scrape.DefaultLimit > c.Scrape.MaxLimit {
			errs = append(errs, "scrape.default_limit must be between 1 and scrape.max_limit")
		}
		if c.Figures.Tolerance < 0 || c.Figures.Tolerance >= 1 {
			errs = append(errs, "figures.tolerance must be in [0, 1)")
		}
		if c.Fetch.DelayMs < 0 {
			errs = append(errs, "fetch.delay_ms must be >= 0")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "history", "merge", "imdb", "inspect":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
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
