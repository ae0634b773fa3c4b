package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Duration is a time.Duration that reads and writes as "90s" in JSON and env.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config represents the doclife configuration. Values come from defaults,
// then .doclife/config.json, then DOCLIFE_* environment variables.
type Config struct {
	Version string `json:"version"`

	// Caller defaults for CLI commands
	Tenant string `json:"tenant"          env:"DOCLIFE_TENANT"`
	Actor  string `json:"actor,omitempty" env:"DOCLIFE_ACTOR"`

	DBDriver  string   `json:"db_driver"     env:"DOCLIFE_DB_DRIVER"`
	DBDSN     string   `json:"db_dsn"        env:"DOCLIFE_DB_DSN"`
	TxTimeout Duration `json:"tx_timeout"    env:"DOCLIFE_TX_TIMEOUT"`
	MaxConns  int      `json:"max_conns"     env:"DOCLIFE_DB_MAX_CONNS"`

	CacheBackend string   `json:"cache_backend"       env:"DOCLIFE_CACHE_BACKEND"`
	CacheTTL     Duration `json:"cache_ttl"           env:"DOCLIFE_CACHE_TTL"`
	CacheSize    int      `json:"cache_size"          env:"DOCLIFE_CACHE_SIZE"`
	RedisURL     string   `json:"redis_url,omitempty" env:"DOCLIFE_REDIS_URL"`

	NATSURL     string `json:"nats_url,omitempty"     env:"DOCLIFE_NATS_URL"`
	NATSSubject string `json:"nats_subject,omitempty" env:"DOCLIFE_NATS_SUBJECT"`

	DuplicateWindow Duration `json:"duplicate_window" env:"DOCLIFE_DUPLICATE_WINDOW"`
	DuplicateCutoff float64  `json:"duplicate_cutoff" env:"DOCLIFE_DUPLICATE_CUTOFF"`

	LogLevel  string `json:"log_level"  env:"DOCLIFE_LOG_LEVEL"`
	LogFormat string `json:"log_format" env:"DOCLIFE_LOG_FORMAT"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Version:         "1",
		Tenant:          "default",
		DBDriver:        "sqlite",
		TxTimeout:       Duration{5 * time.Second},
		MaxConns:        8,
		CacheBackend:    CacheMemory,
		CacheTTL:        Duration{time.Minute},
		CacheSize:       1024,
		DuplicateWindow: Duration{48 * time.Hour},
		DuplicateCutoff: 0.85,
		LogLevel:        "warn",
		LogFormat:       "console",
	}
}

// Path returns the config file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, ".doclife", "config.json")
}

// LoadConfig reads .doclife/config.json from the specified directory over the
// defaults and applies environment overrides. A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(dir))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	configDir := filepath.Dir(Path(dir))
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create .doclife dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Tenant) == "" {
		errs = append(errs, errors.New("tenant is required"))
	}
	if c.TxTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("tx_timeout must be positive, got %s", c.TxTimeout))
	}
	switch c.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis cache backend needs redis_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q (want memory, redis or none)", c.CacheBackend))
	}
	if c.CacheTTL.Duration <= 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL))
	}
	if c.DuplicateWindow.Duration < time.Second {
		errs = append(errs, fmt.Errorf("duplicate_window must be at least 1s, got %s", c.DuplicateWindow))
	}
	if c.DuplicateCutoff <= 0 || c.DuplicateCutoff > 1 {
		errs = append(errs, fmt.Errorf("duplicate_cutoff must be in (0, 1], got %g", c.DuplicateCutoff))
	}
	return errors.Join(errs...)
}
