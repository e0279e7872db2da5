package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rssfeed/internal/domain"

	"github.com/caarlos0/env/v11"
)

const (
	MinRefreshIntervalSeconds = 60

	CacheBackendSQLite   = "sqlite"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

type Config struct {
	ItemCount              int           `env:"ITEM_COUNT"               envDefault:"10"`
	RefreshIntervalSeconds int           `env:"REFRESH_INTERVAL_SECONDS" envDefault:"3600"`
	Sources                string        `env:"FEED_SOURCES"`
	FetchTimeout           time.Duration `env:"FETCH_TIMEOUT"            envDefault:"10s"`
	FetchConcurrency       int           `env:"FETCH_CONCURRENCY"`
	FetchHostInterval      time.Duration `env:"FETCH_HOST_INTERVAL"      envDefault:"0s"`
	CacheBackend           string        `env:"CACHE_BACKEND"            envDefault:"sqlite"`
	DBPath                 string        `env:"DB_PATH"                  envDefault:"db.sqlite"`
	PostgresURL            string        `env:"POSTGRES_URL"`
	RedisURL               string        `env:"REDIS_URL"`
	DiagnosticsLogPath     string        `env:"DIAGNOSTICS_LOG"          envDefault:"logs/error.log"`
	HTTPAddr               string        `env:"HTTP_ADDR"                envDefault:":8080"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.ItemCount <= 0 {
		errs = append(errs, fmt.Errorf("ITEM_COUNT must be positive, got %d", c.ItemCount))
	}

	if c.RefreshIntervalSeconds < MinRefreshIntervalSeconds {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL_SECONDS must be at least %d, got %d",
			MinRefreshIntervalSeconds, c.RefreshIntervalSeconds))
	}

	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT must be positive"))
	}

	if c.FetchHostInterval < 0 {
		errs = append(errs, errors.New("FETCH_HOST_INTERVAL must not be negative"))
	}

	switch c.CacheBackend {
	case CacheBackendSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite cache backend"))
		}
	case CacheBackendPostgres:
		if strings.TrimSpace(c.PostgresURL) == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for postgres cache backend"))
		}
	case CacheBackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			errs = append(errs, errors.New("REDIS_URL is required for redis cache backend"))
		}
	case CacheBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}

	return errors.Join(errs...)
}

func (c Config) Aggregation() domain.AggregationConfig {
	return domain.AggregationConfig{
		Sources:                ParseSources(c.Sources),
		ItemCount:              c.ItemCount,
		RefreshIntervalSeconds: c.RefreshIntervalSeconds,
	}
}

// ParseSources splits a newline-delimited source list, dropping blank lines.
func ParseSources(raw string) []string {
	lines := strings.Split(raw, "\n")
	sources := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sources = append(sources, line)
	}

	return sources
}
