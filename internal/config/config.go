// Package config loads service configuration from YAML with environment overrides.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"hypervisor-analytics/internal/domain"
)

// SecondsPerYear is the annualization horizon.
const SecondsPerYear = 31_536_000

// AnalyzerConfig holds yield analyzer thresholds.
type AnalyzerConfig struct {
	ImpermanentCap   decimal.Decimal // drop periods with |impermanent yield| above this ratio
	RewardsCap       decimal.Decimal // drop periods with rewards/ini underlying above this ratio
	FeeCap           decimal.Decimal // drop periods with fee period yield above this ratio
	SimpleMinSeconds int64           // spacing of the down-sampled series
	ReconcileEpsilon decimal.Decimal // absolute tolerance of the ROI reconciliation, USD per share
	CSVSeparator     string          // separator for flattened field names
}

// DefaultAnalyzerConfig returns production thresholds.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		ImpermanentCap:   decimal.NewFromInt(2),
		RewardsCap:       decimal.NewFromInt(2),
		FeeCap:           decimal.NewFromInt(2),
		SimpleMinSeconds: 86400,
		ReconcileEpsilon: decimal.New(1, -6),
		CSVSeparator:     ".",
	}
}

// TWAConfig holds time-weighted average defaults.
type TWAConfig struct {
	// Trailing window lengths used when a caller gives no explicit bounds.
	// Zero disables the default and the caller must supply a window.
	DefaultWindowBlocks  int64
	DefaultWindowSeconds int64
}

// DefaultTWAConfig returns TWA defaults with no trailing window.
func DefaultTWAConfig() TWAConfig {
	return TWAConfig{}
}

// PostgresConfig holds relational store settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ClickHouseConfig holds columnar store settings.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds response cache settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// UpstreamConfig holds the snapshot producer endpoint.
type UpstreamConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	RetryMax int           `yaml:"retry_max"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string  `yaml:"addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// SchedulerConfig holds cron expressions for background jobs.
type SchedulerConfig struct {
	AnalyzeCron string `yaml:"analyze_cron"`
	IngestCron  string `yaml:"ingest_cron"`
}

// Config is the full service configuration.
type Config struct {
	Analyzer    AnalyzerConfig
	TWA         TWAConfig
	Postgres    PostgresConfig
	ClickHouse  ClickHouseConfig
	Redis       RedisConfig
	Upstream    UpstreamConfig
	Server      ServerConfig
	Scheduler   SchedulerConfig
	Workers     int
	Hypervisors []domain.Hypervisor
}

// fileConfig mirrors Config in YAML form. Decimal thresholds are strings.
type fileConfig struct {
	Analyzer struct {
		ImpermanentCap   string `yaml:"impermanent_cap,omitempty"`
		RewardsCap       string `yaml:"rewards_cap,omitempty"`
		FeeCap           string `yaml:"fee_cap,omitempty"`
		SimpleMinSeconds int64  `yaml:"simple_min_seconds,omitempty"`
		ReconcileEpsilon string `yaml:"reconcile_epsilon,omitempty"`
		CSVSeparator     string `yaml:"csv_separator,omitempty"`
	} `yaml:"analyzer"`
	TWA struct {
		DefaultWindowBlocks  int64 `yaml:"default_window_blocks,omitempty"`
		DefaultWindowSeconds int64 `yaml:"default_window_seconds,omitempty"`
	} `yaml:"twa"`
	Postgres    PostgresConfig      `yaml:"postgres"`
	ClickHouse  ClickHouseConfig    `yaml:"clickhouse"`
	Redis       RedisConfig         `yaml:"redis"`
	Upstream    UpstreamConfig      `yaml:"upstream"`
	Server      ServerConfig        `yaml:"server"`
	Scheduler   SchedulerConfig     `yaml:"scheduler"`
	Workers     int                 `yaml:"workers,omitempty"`
	Hypervisors []domain.Hypervisor `yaml:"hypervisors"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Analyzer: DefaultAnalyzerConfig(),
		TWA:      DefaultTWAConfig(),
		Redis:    RedisConfig{TTL: 5 * time.Minute},
		Upstream: UpstreamConfig{RetryMax: 3, Timeout: 30 * time.Second},
		Server:   ServerConfig{Addr: ":8080", RateLimitRPS: 20, RateLimitBurst: 40},
		Scheduler: SchedulerConfig{
			AnalyzeCron: "0 */15 * * * *",
			IngestCron:  "0 */5 * * * *",
		},
		Workers: 4,
	}
}

// Load reads the YAML file at path (optional), applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := cfg.merge(raw); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds a configuration from YAML bytes on top of the defaults.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(raw); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(raw []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return errors.Wrap(err, "unmarshal yaml")
	}

	thresholds := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"impermanent_cap", fc.Analyzer.ImpermanentCap, &c.Analyzer.ImpermanentCap},
		{"rewards_cap", fc.Analyzer.RewardsCap, &c.Analyzer.RewardsCap},
		{"fee_cap", fc.Analyzer.FeeCap, &c.Analyzer.FeeCap},
		{"reconcile_epsilon", fc.Analyzer.ReconcileEpsilon, &c.Analyzer.ReconcileEpsilon},
	}
	for _, th := range thresholds {
		if th.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(th.raw)
		if err != nil {
			return errors.Wrapf(err, "analyzer.%s", th.name)
		}
		*th.dst = v
	}
	if fc.Analyzer.SimpleMinSeconds > 0 {
		c.Analyzer.SimpleMinSeconds = fc.Analyzer.SimpleMinSeconds
	}
	if fc.Analyzer.CSVSeparator != "" {
		c.Analyzer.CSVSeparator = fc.Analyzer.CSVSeparator
	}
	if fc.TWA.DefaultWindowBlocks > 0 {
		c.TWA.DefaultWindowBlocks = fc.TWA.DefaultWindowBlocks
	}
	if fc.TWA.DefaultWindowSeconds > 0 {
		c.TWA.DefaultWindowSeconds = fc.TWA.DefaultWindowSeconds
	}

	if fc.Postgres.DSN != "" {
		c.Postgres = fc.Postgres
	}
	if fc.ClickHouse.DSN != "" {
		c.ClickHouse = fc.ClickHouse
	}
	if fc.Redis.Addr != "" {
		ttl := c.Redis.TTL
		c.Redis = fc.Redis
		if c.Redis.TTL == 0 {
			c.Redis.TTL = ttl
		}
	}
	if fc.Upstream.BaseURL != "" {
		c.Upstream.BaseURL = fc.Upstream.BaseURL
		c.Upstream.APIKey = fc.Upstream.APIKey
	}
	if fc.Upstream.RetryMax > 0 {
		c.Upstream.RetryMax = fc.Upstream.RetryMax
	}
	if fc.Upstream.Timeout > 0 {
		c.Upstream.Timeout = fc.Upstream.Timeout
	}
	if fc.Server.Addr != "" {
		c.Server.Addr = fc.Server.Addr
	}
	if fc.Server.RateLimitRPS > 0 {
		c.Server.RateLimitRPS = fc.Server.RateLimitRPS
	}
	if fc.Server.RateLimitBurst > 0 {
		c.Server.RateLimitBurst = fc.Server.RateLimitBurst
	}
	if fc.Scheduler.AnalyzeCron != "" {
		c.Scheduler.AnalyzeCron = fc.Scheduler.AnalyzeCron
	}
	if fc.Scheduler.IngestCron != "" {
		c.Scheduler.IngestCron = fc.Scheduler.IngestCron
	}
	if fc.Workers > 0 {
		c.Workers = fc.Workers
	}
	c.Hypervisors = append(c.Hypervisors, fc.Hypervisors...)
	return nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	c.Postgres.DSN = Env("POSTGRES_DSN", c.Postgres.DSN)
	c.ClickHouse.DSN = Env("CLICKHOUSE_DSN", c.ClickHouse.DSN)
	c.Redis.Addr = Env("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = Env("REDIS_PASSWORD", c.Redis.Password)
	c.Upstream.BaseURL = Env("UPSTREAM_BASE_URL", c.Upstream.BaseURL)
	c.Upstream.APIKey = Env("UPSTREAM_API_KEY", c.Upstream.APIKey)
	c.Server.Addr = Env("SERVER_ADDR", c.Server.Addr)
	c.Workers = EnvInt("WORKERS", c.Workers)
}

// Validate checks value ranges and normalizes hypervisor descriptors.
func (c *Config) Validate() error {
	for name, v := range map[string]decimal.Decimal{
		"impermanent_cap":   c.Analyzer.ImpermanentCap,
		"rewards_cap":       c.Analyzer.RewardsCap,
		"fee_cap":           c.Analyzer.FeeCap,
		"reconcile_epsilon": c.Analyzer.ReconcileEpsilon,
	} {
		if !v.IsPositive() {
			return errors.Errorf("analyzer.%s must be positive, got %s", name, v)
		}
	}
	if c.Analyzer.SimpleMinSeconds < 0 {
		return errors.New("analyzer.simple_min_seconds must not be negative")
	}
	if c.Analyzer.CSVSeparator == "" {
		return errors.New("analyzer.csv_separator must not be empty")
	}
	if c.TWA.DefaultWindowBlocks < 0 || c.TWA.DefaultWindowSeconds < 0 {
		return errors.New("twa default windows must not be negative")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	for i := range c.Hypervisors {
		if err := c.Hypervisors[i].Validate(); err != nil {
			return errors.Wrapf(err, "hypervisors[%d]", i)
		}
	}
	return nil
}
