// Package config loads server and CLI settings from an optional YAML file
// with environment overrides applied on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	corenumerator "bizdesk/internal/core/numerator"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "BIZDESK_CONFIG"

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverRedis     = "redis"
	DriverZooKeeper = "zookeeper"
)

// Config is the full application configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Log         LogConfig         `yaml:"log"`
	Store       StoreConfig       `yaml:"store"`
	Numbering   NumberingConfig   `yaml:"numbering"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
	Port string `yaml:"port"`
}

// Development reports whether the app runs in development mode.
func (a AppConfig) Development() bool {
	return a.Env == "development"
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects and configures the counter store.
type StoreConfig struct {
	Driver    string          `yaml:"driver"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper"`
}

// PostgresConfig configures the PostgreSQL pool.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// SQLiteConfig configures the embedded database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ZooKeeperConfig configures the ensemble connection.
type ZooKeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	Root           string        `yaml:"root"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// NumberingConfig holds allocator settings.
type NumberingConfig struct {
	Default   corenumerator.Config            `yaml:"default"`
	Sequences map[string]corenumerator.Config `yaml:"sequences"`
	Retry     RetryConfig                     `yaml:"retry"`
}

// RetryConfig describes the allocation retry policy.
// A MaxBackoff above Backoff switches to exponential backoff.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// Policy converts the config to a numerator retry policy.
func (r RetryConfig) Policy() corenumerator.RetryPolicy {
	p := corenumerator.RetryPolicy{MaxAttempts: r.MaxAttempts}
	switch {
	case r.MaxBackoff > r.Backoff && r.Backoff > 0:
		p.Backoff = corenumerator.ExponentialBackoff(r.Backoff, r.MaxBackoff)
	case r.Backoff > 0:
		p.Backoff = corenumerator.FixedBackoff(r.Backoff)
	}
	return p
}

// IdempotencyConfig controls Idempotency-Key handling on mutating routes.
type IdempotencyConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		App: AppConfig{
			Name: "bizdesk",
			Env:  "development",
			Port: "8080",
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver:    DriverSQLite,
			Postgres:  PostgresConfig{MaxConns: 10},
			SQLite:    SQLiteConfig{Path: "data/bizdesk.db"},
			Redis:     RedisConfig{Addr: "127.0.0.1:6379"},
			ZooKeeper: ZooKeeperConfig{Root: "/bizdesk/counters", SessionTimeout: 5 * time.Second},
		},
		Numbering: NumberingConfig{
			Default:   corenumerator.DefaultConfig(),
			Sequences: map[string]corenumerator.Config{},
			Retry: RetryConfig{
				MaxAttempts: 3,
				Backoff:     time.Second,
			},
		},
		Idempotency: IdempotencyConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
	}
}

// ResolvePath returns flagValue, or the BIZDESK_CONFIG variable when it is empty.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := get("APP_PORT"); ok {
		c.App.Port = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("STORE_DRIVER"); ok {
		c.Store.Driver = strings.ToLower(v)
	}
	if v, ok := get("DATABASE_URL"); ok {
		c.Store.Postgres.URL = v
	}
	if v, ok := get("SQLITE_PATH"); ok {
		c.Store.SQLite.Path = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Store.Redis.Addr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		c.Store.Redis.Password = v
	}
	if v, ok := get("ZK_SERVERS"); ok {
		c.Store.ZooKeeper.Servers = splitList(v)
	}

	var errs []error
	if v, ok := get("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
		}
		c.Store.Redis.DB = n
	}
	if v, ok := get("NUMERATOR_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("NUMERATOR_MAX_ATTEMPTS: %w", err))
		}
		c.Numbering.Retry.MaxAttempts = n
	}
	if v, ok := get("NUMERATOR_BACKOFF"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("NUMERATOR_BACKOFF: %w", err))
		}
		c.Numbering.Retry.Backoff = d
	}
	if v, ok := get("IDEMPOTENCY_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IDEMPOTENCY_ENABLED: %w", err))
		}
		c.Idempotency.Enabled = b
	}
	if v, ok := get("IDEMPOTENCY_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IDEMPOTENCY_TTL: %w", err))
		}
		c.Idempotency.TTL = d
	}
	return errors.Join(errs...)
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.App.Port == "" {
		errs = append(errs, errors.New("app.port is required"))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.Postgres.URL == "" {
			errs = append(errs, errors.New("store.postgres.url (DATABASE_URL) is required for the postgres driver"))
		}
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required for the sqlite driver"))
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr (REDIS_ADDR) is required for the redis driver"))
		}
	case DriverZooKeeper:
		if len(c.Store.ZooKeeper.Servers) == 0 {
			errs = append(errs, errors.New("store.zookeeper.servers (ZK_SERVERS) is required for the zookeeper driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, postgres, sqlite, redis, zookeeper", c.Store.Driver))
	}

	if c.Numbering.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("numbering.retry.max_attempts must be at least 1"))
	}
	if c.Numbering.Retry.Backoff < 0 || c.Numbering.Retry.MaxBackoff < 0 {
		errs = append(errs, errors.New("numbering.retry backoff must not be negative"))
	}

	if err := validateSequence("numbering.default", c.Numbering.Default); err != nil {
		errs = append(errs, err)
	}
	for key, seq := range c.Numbering.Sequences {
		if err := corenumerator.ValidateKey(key); err != nil {
			errs = append(errs, fmt.Errorf("numbering.sequences: %w", err))
		}
		if err := validateSequence("numbering.sequences."+key, seq); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("idempotency.ttl must be positive"))
	}

	return errors.Join(errs...)
}

// maxPadWidth keeps formatted numbers within the digits of an int64.
const maxPadWidth = 19

func validateSequence(name string, cfg corenumerator.Config) error {
	var errs []error
	if cfg.PadWidth < 0 || cfg.PadWidth > maxPadWidth {
		errs = append(errs, fmt.Errorf("%s.pad_width must be between 0 and %d", name, maxPadWidth))
	}
	if cfg.InitialValue < 0 {
		errs = append(errs, fmt.Errorf("%s.initial_value must not be negative", name))
	}
	if strings.ContainsAny(cfg.Prefix, " \t") {
		errs = append(errs, fmt.Errorf("%s.prefix must not contain whitespace", name))
	}
	switch cfg.ResetPeriod {
	case "", corenumerator.ResetNever, corenumerator.ResetYear, corenumerator.ResetMonth:
	default:
		errs = append(errs, fmt.Errorf("%s.reset_period %q is not one of never, year, month", name, cfg.ResetPeriod))
	}
	return errors.Join(errs...)
}

// SequenceConfig returns the numbering config for key, falling back to the default.
// Zero fields of a per-key config inherit the default's PadWidth and ResetPeriod.
func (n NumberingConfig) SequenceConfig(key string) corenumerator.Config {
	cfg, ok := n.Sequences[key]
	if !ok {
		return n.Default
	}
	if cfg.PadWidth == 0 {
		cfg.PadWidth = n.Default.PadWidth
	}
	if cfg.ResetPeriod == "" {
		cfg.ResetPeriod = n.Default.ResetPeriod
	}
	return cfg
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
