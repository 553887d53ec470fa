// Package config loads cost-advisor configuration in three layers:
// built-in defaults, an optional YAML file, then COST_ADVISOR_* environment
// variables. Later layers override earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides. Nested keys
// use a double underscore, e.g. COST_ADVISOR_STORAGE__DATABASE_URL.
const EnvPrefix = "COST_ADVISOR_"

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"cost-advisor.yaml",
	"/etc/cost-advisor/config.yaml",
}

// OptimizerConfig configures the compute optimizer source client.
type OptimizerConfig struct {
	URL     string   `koanf:"url"`
	APIKey  string   `koanf:"api_key"`
	Regions []string `koanf:"regions"`
}

// AdvisorConfig configures the advisor source client.
type AdvisorConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

// InsightConfig configures the Prometheus-backed insight source client.
type InsightConfig struct {
	PrometheusURL string `koanf:"prometheus_url"`
}

// SourcesConfig groups the three upstream providers.
type SourcesConfig struct {
	Optimizer OptimizerConfig `koanf:"optimizer"`
	Advisor   AdvisorConfig   `koanf:"advisor"`
	Insight   InsightConfig   `koanf:"insight"`
}

// ResilienceConfig parameterizes retries and circuit breaking for every
// source call.
type ResilienceConfig struct {
	MaxRetries       int           `koanf:"max_retries"`
	BaseDelay        time.Duration `koanf:"base_delay"`
	MaxDelay         time.Duration `koanf:"max_delay"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	RecoveryTimeout  time.Duration `koanf:"recovery_timeout"`
}

// AggregationConfig bounds an orchestration run.
type AggregationConfig struct {
	SourceTimeout time.Duration `koanf:"source_timeout"`
	RegionTimeout time.Duration `koanf:"region_timeout"`
	RegionWorkers int           `koanf:"region_workers"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	MaxResults    int           `koanf:"max_results"`
}

// StorageConfig enables the optional Postgres run log.
type StorageConfig struct {
	Enabled     bool   `koanf:"enabled"`
	DatabaseURL string `koanf:"database_url"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config holds the full application configuration.
type Config struct {
	Sources     SourcesConfig     `koanf:"sources"`
	Resilience  ResilienceConfig  `koanf:"resilience"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Storage     StorageConfig     `koanf:"storage"`
	Logging     LoggingConfig     `koanf:"logging"`
}

func defaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Optimizer: OptimizerConfig{
				URL:     "http://localhost:8081",
				Regions: []string{"us-east-1"},
			},
			Advisor: AdvisorConfig{
				URL: "http://localhost:8082",
			},
			Insight: InsightConfig{
				PrometheusURL: "http://localhost:9090",
			},
		},
		Resilience: ResilienceConfig{
			MaxRetries:       3,
			BaseDelay:        time.Second,
			MaxDelay:         30 * time.Second,
			FailureThreshold: 3,
			RecoveryTimeout:  5 * time.Minute,
		},
		Aggregation: AggregationConfig{
			SourceTimeout: 120 * time.Second,
			RegionTimeout: 30 * time.Second,
			RegionWorkers: 5,
			CacheTTL:      30 * time.Minute,
			MaxResults:    100,
		},
		Storage: StorageConfig{
			Enabled:     false,
			DatabaseURL: "host=localhost port=5432 user=costuser password=devpassword dbname=costadvisor sslmode=disable",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment. An empty path searches DefaultConfigPaths; a missing file
// is not an error unless the path was given explicitly.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		for _, candidate := range DefaultConfigPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		// COST_ADVISOR_STORAGE__DATABASE_URL -> storage.database_url
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	if c.Resilience.BaseDelay <= 0 {
		return fmt.Errorf("base delay must be positive")
	}
	if c.Resilience.MaxDelay < c.Resilience.BaseDelay {
		return fmt.Errorf("max delay must be >= base delay")
	}
	if c.Resilience.FailureThreshold == 0 {
		return fmt.Errorf("failure threshold must be >= 1")
	}
	if c.Aggregation.SourceTimeout <= 0 {
		return fmt.Errorf("source timeout must be positive")
	}
	if c.Aggregation.RegionWorkers < 1 || c.Aggregation.RegionWorkers > 5 {
		return fmt.Errorf("region workers must be between 1 and 5")
	}
	if c.Aggregation.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Storage.Enabled && c.Storage.DatabaseURL == "" {
		return fmt.Errorf("storage.database_url must be set when storage is enabled")
	}
	return nil
}
