package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for priceboard
type Config struct {
	Environment string           `toml:"environment" default:"development"`
	Clients     ClientsConfig    `toml:"clients"`
	Aggregator  AggregatorConfig `toml:"aggregator"`
	Tickers     TickersConfig    `toml:"tickers"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ClientsConfig holds per-source client configuration
type ClientsConfig struct {
	Google GoogleConfig `toml:"google"`
	Yahoo  YahooConfig  `toml:"yahoo"`
	Naver  NaverConfig  `toml:"naver"`
}

// GoogleConfig configures the formula gateway client
type GoogleConfig struct {
	GatewayURL string `toml:"gateway_url" validate:"omitempty,url"`
	APIKey     string `toml:"api_key"`
	RateLimit  int    `toml:"rate_limit" default:"5" validate:"gt=0"`
	Timeout    string `toml:"timeout" default:"30s"`
}

// GetTimeout parses and returns the timeout duration
func (c *GoogleConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// YahooConfig configures the Yahoo chart API client
type YahooConfig struct {
	BaseURL   string `toml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
	RateLimit int    `toml:"rate_limit" default:"5" validate:"gt=0"`
	Timeout   string `toml:"timeout" default:"30s"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// NaverConfig configures the Naver Finance client
type NaverConfig struct {
	BaseURL       string `toml:"base_url" default:"https://finance.naver.com" validate:"url"`
	MobileBaseURL string `toml:"mobile_base_url" default:"https://m.stock.naver.com" validate:"url"`
	RateLimit     int    `toml:"rate_limit" default:"3" validate:"gt=0"`
	Timeout       string `toml:"timeout" default:"30s"`
}

// GetTimeout parses and returns the timeout duration
func (c *NaverConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AggregatorConfig configures the per-run fan-out
type AggregatorConfig struct {
	Workers int `toml:"workers" default:"5" validate:"gt=0,lte=32"`
}

// TickersConfig points at the ticker list file
type TickersConfig struct {
	Path string `toml:"path" default:"tickers.csv"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level" default:"info" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// NewDefaultConfig returns a Config with struct-tag defaults applied.
func NewDefaultConfig() *Config {
	config := &Config{}
	_ = defaults.Set(config)
	return config
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PRICEBOARD_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("PRICEBOARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("PRICEBOARD_TICKERS"); path != "" {
		config.Tickers.Path = path
	}

	if workers := os.Getenv("PRICEBOARD_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Aggregator.Workers = w
		}
	}

	if v := os.Getenv("PRICEBOARD_GOOGLE_GATEWAY_URL"); v != "" {
		config.Clients.Google.GatewayURL = v
	}
	if v := os.Getenv("PRICEBOARD_GOOGLE_API_KEY"); v != "" {
		config.Clients.Google.APIKey = v
	}
	if v := os.Getenv("PRICEBOARD_YAHOO_BASE_URL"); v != "" {
		config.Clients.Yahoo.BaseURL = v
	}
	if v := os.Getenv("PRICEBOARD_NAVER_BASE_URL"); v != "" {
		config.Clients.Naver.BaseURL = v
	}
}
