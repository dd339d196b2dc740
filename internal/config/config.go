// Package config loads service configuration from an optional YAML file and
// SWAPI_* environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/swapi-roster/pkg/logging"
)

// Config is the service configuration.
type Config struct {
	// Upstream
	BaseURL       string        `yaml:"base_url"`       // ex: "https://swapi.dev/api/"
	UserAgent     string        `yaml:"user_agent"`     // sent on every upstream request
	HTTPTimeout   time.Duration `yaml:"http_timeout"`   // per-request timeout (ex: 30s)
	RetryAttempts int           `yaml:"retry_attempts"` // 1 = no retries
	DailyBudget   int           `yaml:"daily_budget"`   // upstream requests per day, needs Redis

	// Loading
	EnrichWorkers int `yaml:"enrich_workers"` // enrichment pool size
	MaxPages      int `yaml:"max_pages"`      // 0 = follow every next link

	// Server
	ListenAddr      string        `yaml:"listen_addr"`      // ex: ":8080"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // ex: 10s

	// Logging
	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // console output instead of JSON

	// Redis (optional, empty address disables response cache and budget)
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// CacheStaleWindow keeps expired responses with a validator in Redis
	// this long so they can be revalidated with a conditional request.
	CacheStaleWindow time.Duration `yaml:"cache_stale_window"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:          "https://swapi.dev/api/",
		UserAgent:        "swapi-roster/0.1.0",
		HTTPTimeout:      30 * time.Second,
		RetryAttempts:    1,
		DailyBudget:      10000,
		EnrichWorkers:    8,
		MaxPages:         0,
		ListenAddr:       ":8080",
		ShutdownTimeout:  10 * time.Second,
		LogLevel:         "info",
		PrettyLog:        false,
		CacheStaleWindow: time.Hour,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// SWAPI_CONFIG_FILE (if set), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("SWAPI_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	e := &env{}

	e.setString("SWAPI_BASE_URL", &c.BaseURL)
	e.setString("SWAPI_USER_AGENT", &c.UserAgent)
	e.setDuration("SWAPI_HTTP_TIMEOUT", &c.HTTPTimeout)
	e.setInt("SWAPI_RETRY_ATTEMPTS", &c.RetryAttempts)
	e.setInt("SWAPI_DAILY_BUDGET", &c.DailyBudget)
	e.setInt("SWAPI_ENRICH_WORKERS", &c.EnrichWorkers)
	e.setInt("SWAPI_MAX_PAGES", &c.MaxPages)
	e.setString("SWAPI_LISTEN_ADDR", &c.ListenAddr)
	e.setDuration("SWAPI_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	e.setString("SWAPI_LOG_LEVEL", &c.LogLevel)
	e.setBool("SWAPI_PRETTY_LOG", &c.PrettyLog)
	e.setString("SWAPI_REDIS_ADDR", &c.RedisAddr)
	e.setString("SWAPI_REDIS_PASSWORD", &c.RedisPassword)
	e.setInt("SWAPI_REDIS_DB", &c.RedisDB)
	e.setDuration("SWAPI_CACHE_STALE_WINDOW", &c.CacheStaleWindow)

	return errors.Join(e.errs...)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url must be an absolute http(s) URL (got %q)", c.BaseURL))
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		errs = append(errs, errors.New("user_agent is required"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive (got %s)", c.HTTPTimeout))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry_attempts must be at least 1 (got %d)", c.RetryAttempts))
	}
	if c.EnrichWorkers < 1 {
		errs = append(errs, fmt.Errorf("enrich_workers must be at least 1 (got %d)", c.EnrichWorkers))
	}
	if c.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("max_pages must not be negative (got %d)", c.MaxPages))
	}
	if c.DailyBudget < 0 {
		errs = append(errs, fmt.Errorf("daily_budget must not be negative (got %d)", c.DailyBudget))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.CacheStaleWindow < 0 {
		errs = append(errs, fmt.Errorf("cache_stale_window must not be negative (got %s)", c.CacheStaleWindow))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("redis_db must not be negative (got %d)", c.RedisDB))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error: %w", err))
	}

	return errors.Join(errs...)
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	out := *c
	if out.RedisPassword != "" {
		out.RedisPassword = "***REDACTED***"
	}
	return out
}

// env applies set environment variables and collects parse errors.
type env struct {
	errs []error
}

func (e *env) setString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func (e *env) setInt(key string, dst *int) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid integer value for %s: %q", key, v))
		return
	}
	*dst = i
}

func (e *env) setBool(key string, dst *bool) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid boolean value for %s: %q", key, v))
		return
	}
	*dst = b
}

func (e *env) setDuration(key string, dst *time.Duration) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid duration value for %s: %q", key, v))
		return
	}
	*dst = d
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}
