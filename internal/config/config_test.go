package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/money"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "boxoffice.db", cfg.Store.Path)
	assert.Equal(t, int32(4), cfg.Store.Pool.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.Delay())
	assert.Equal(t, 24*time.Hour, cfg.Fetch.CacheTTL())
	assert.Equal(t, "https://www.boxofficemojo.com", cfg.Mojo.BaseURL)
	assert.Equal(t, "https://www.imdb.com", cfg.IMDb.BaseURL)
	assert.Equal(t, 40, cfg.IMDb.MaxPages)
	assert.Equal(t, 1977, cfg.Scrape.MinYear)
	assert.Equal(t, time.Now().Year(), cfg.Scrape.MaxYear)
	assert.Equal(t, 50, cfg.Scrape.DefaultLimit)
	assert.Equal(t, 200, cfg.Scrape.MaxLimit)
	assert.Equal(t, figures.DefaultPolicy(), cfg.Figures)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/boxoffice
log:
  level: debug
  format: console
server:
  port: 9090
figures:
  tolerance: 0.02
  max_international: 2000000000
scrape:
  max_limit: 100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/boxoffice", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.02, cfg.Figures.Tolerance, 0.0001)
	assert.Equal(t, money.Amount(2_000_000_000), cfg.Figures.MaxInternational)
	assert.Equal(t, 100, cfg.Scrape.MaxLimit)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Scrape.DefaultLimit)
	assert.InDelta(t, 1.8, cfg.Figures.FallbackRatio, 0.0001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("BOXOFFICE_STORE_DRIVER", "postgres")
	t.Setenv("BOXOFFICE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("BOXOFFICE_SERVER_PORT", "3000")
	t.Setenv("BOXOFFICE_SCRAPE_MAX_LIMIT", "25")
	t.Setenv("BOXOFFICE_FETCH_DELAY_MS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Scrape.MaxLimit)
	assert.Equal(t, time.Duration(0), cfg.Fetch.Delay())
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "boxoffice.db"
	cfg.Scrape.MinYear = 1977
	cfg.Scrape.MaxYear = 2025
	cfg.Scrape.DefaultLimit = 50
	cfg.Scrape.MaxLimit = 200
	cfg.Figures = figures.DefaultPolicy()
	cfg.Fetch.DelayMs = 500
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateScrape_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("scrape"))
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/boxoffice"
	assert.NoError(t, cfg.Validate("history"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateScrape_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Scrape.DefaultLimit = 500
	cfg.Scrape.MaxYear = 1900

	err := cfg.Validate("scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape.default_limit")
	assert.Contains(t, err.Error(), "scrape.max_year")
}

func TestValidateScrape_Tolerance(t *testing.T) {
	cfg := validDefaults()
	cfg.Figures.Tolerance = 1.5

	err := cfg.Validate("scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "figures.tolerance")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
