package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a pricescout run.
type Config struct {
	// Orchestration
	MaxResultsPerSite int `mapstructure:"max_results_per_site"`
	MaxWorkers        int `mapstructure:"max_workers"`
	SourceTimeoutSecs int `mapstructure:"source_timeout_seconds"`

	// HTTP
	RequestTimeoutSecs int     `mapstructure:"request_timeout_seconds"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"`

	// EnabledSources filters the built-in roster by site name.
	// Empty means every site.
	EnabledSources []string `mapstructure:"enabled_sources"`

	// Currency conversion
	ConvertPrices   bool   `mapstructure:"convert_prices"`
	BaseCurrency    string `mapstructure:"base_currency"`
	ExchangeBaseURL string `mapstructure:"exchange_base_url"`

	LogLevel string `mapstructure:"log_level"`
}

// SourceTimeout returns the per-scraper wait budget as a duration.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSecs) * time.Second
}

// RequestTimeout returns the HTTP request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over config file
// values.
//
// Expected environment variables (all optional):
//   - PRICESCOUT_MAX_RESULTS_PER_SITE
//   - PRICESCOUT_MAX_WORKERS
//   - PRICESCOUT_SOURCE_TIMEOUT_SECONDS
//   - PRICESCOUT_REQUEST_TIMEOUT_SECONDS
//   - PRICESCOUT_REQUESTS_PER_SECOND
//   - PRICESCOUT_ENABLED_SOURCES (comma separated)
//   - PRICESCOUT_CONVERT_PRICES
//   - PRICESCOUT_BASE_CURRENCY
//   - PRICESCOUT_EXCHANGE_BASE_URL
//   - PRICESCOUT_LOG_LEVEL
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("PRICESCOUT")
	v.AutomaticEnv()

	// Defaults mirror the orchestrator's own defaults so that a bare
	// environment still produces a working run.
	v.SetDefault("max_results_per_site", 30)
	v.SetDefault("max_workers", 5)
	v.SetDefault("source_timeout_seconds", 20)
	v.SetDefault("request_timeout_seconds", 15)
	v.SetDefault("requests_per_second", 2.0)
	v.SetDefault("convert_prices", false)
	v.SetDefault("base_currency", "USD")
	v.SetDefault("exchange_base_url", "")
	v.SetDefault("log_level", "info")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.pricescout")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	v.BindEnv("max_results_per_site", "PRICESCOUT_MAX_RESULTS_PER_SITE")
	v.BindEnv("max_workers", "PRICESCOUT_MAX_WORKERS")
	v.BindEnv("source_timeout_seconds", "PRICESCOUT_SOURCE_TIMEOUT_SECONDS")
	v.BindEnv("request_timeout_seconds", "PRICESCOUT_REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("requests_per_second", "PRICESCOUT_REQUESTS_PER_SECOND")
	v.BindEnv("enabled_sources", "PRICESCOUT_ENABLED_SOURCES")
	v.BindEnv("convert_prices", "PRICESCOUT_CONVERT_PRICES")
	v.BindEnv("base_currency", "PRICESCOUT_BASE_CURRENCY")
	v.BindEnv("exchange_base_url", "PRICESCOUT_EXCHANGE_BASE_URL")
	v.BindEnv("log_level", "PRICESCOUT_LOG_LEVEL")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.MaxWorkers < 1 {
		return nil, fmt.Errorf("max_workers must be at least 1, got %d", config.MaxWorkers)
	}
	if config.MaxResultsPerSite < 0 {
		return nil, fmt.Errorf("max_results_per_site must be >= 0, got %d", config.MaxResultsPerSite)
	}
	if config.RequestTimeoutSecs < 1 {
		return nil, fmt.Errorf("request_timeout_seconds must be at least 1, got %d", config.RequestTimeoutSecs)
	}
	if config.ConvertPrices && config.BaseCurrency == "" {
		return nil, fmt.Errorf("base_currency is required when convert_prices is enabled")
	}

	return config, nil
}
