// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
	QueryTimeout    time.Duration // default 3s; store calls fail rather than hang
}

// JWTConfig holds JWT signing settings.
type JWTConfig struct {
	AccessSecret  string        // must be set
	RefreshSecret string        // must be set
	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 720h (30 days)
}

// EngineConfig holds the price evolution bot settings.
type EngineConfig struct {
	TickInterval time.Duration // default 5s — one pass over all active items
	PriceStep    int64         // all stored prices are multiples of this (default 10)
	MinChangePct float64       // lower bound of the per-tick base change (default 0.01)
	MaxChangePct float64       // exclusive upper bound of the base change (default 0.06)
}

// CatalogConfig holds catalog read settings.
type CatalogConfig struct {
	HistoryLimit    int // default history rows returned per item (default 20)
	MaxHistoryLimit int // cap on client-requested history length (default 200)
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	JWT     JWTConfig
	Engine  EngineConfig
	Catalog CatalogConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	// JWT secrets are mandatory
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	// Engine sanity checks: a zero or negative step would break quantization
	if c.Engine.PriceStep <= 0 {
		errs = append(errs, fmt.Errorf("ENGINE_PRICE_STEP must be positive, got %d", c.Engine.PriceStep))
	}
	if c.Engine.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("ENGINE_TICK_INTERVAL must be positive, got %s", c.Engine.TickInterval))
	}
	if c.Engine.MinChangePct < 0 || c.Engine.MaxChangePct <= c.Engine.MinChangePct {
		errs = append(errs, fmt.Errorf(
			"engine change range invalid: min=%.4f max=%.4f (need 0 <= min < max)",
			c.Engine.MinChangePct, c.Engine.MaxChangePct,
		))
	}

	if c.Catalog.HistoryLimit <= 0 || c.Catalog.HistoryLimit > c.Catalog.MaxHistoryLimit {
		errs = append(errs, fmt.Errorf(
			"CATALOG_HISTORY_LIMIT must be in (0, %d], got %d",
			c.Catalog.MaxHistoryLimit, c.Catalog.HistoryLimit,
		))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "evetabi_bazaar"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		QueryTimeout:    getDuration("DB_QUERY_TIMEOUT", 3*time.Second),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	step, err := getInt("ENGINE_PRICE_STEP", 10)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_PRICE_STEP: %w", err)
	}
	minPct, err := getFloat("ENGINE_MIN_CHANGE_PCT", 0.01)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_MIN_CHANGE_PCT: %w", err)
	}
	maxPct, err := getFloat("ENGINE_MAX_CHANGE_PCT", 0.06)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_MAX_CHANGE_PCT: %w", err)
	}

	cfg.Engine = EngineConfig{
		TickInterval: getDuration("ENGINE_TICK_INTERVAL", 5*time.Second),
		PriceStep:    int64(step),
		MinChangePct: minPct,
		MaxChangePct: maxPct,
	}

	// ── Catalog ───────────────────────────────────────────────────────────────
	histLimit, err := getInt("CATALOG_HISTORY_LIMIT", 20)
	if err != nil {
		return nil, fmt.Errorf("CATALOG_HISTORY_LIMIT: %w", err)
	}
	maxHist, err := getInt("CATALOG_MAX_HISTORY_LIMIT", 200)
	if err != nil {
		return nil, fmt.Errorf("CATALOG_MAX_HISTORY_LIMIT: %w", err)
	}

	cfg.Catalog = CatalogConfig{
		HistoryLimit:    histLimit,
		MaxHistoryLimit: maxHist,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
