package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration.
type Config struct {
	Service ServiceConfig
	Poll    PollConfig
	Logging LogConfig
	Metrics MetricsConfig
}

// ServiceConfig holds kernel service endpoint configuration.
type ServiceConfig struct {
	BaseURL      string        `envconfig:"KERNEL_BASE_URL" default:"http://localhost:8888"`
	Token        string        `envconfig:"KERNEL_TOKEN" default:""`
	Timeout      time.Duration `envconfig:"KERNEL_HTTP_TIMEOUT" default:"30s"`
	RetryMax     int           `envconfig:"KERNEL_HTTP_RETRY_MAX" default:"3"`
	RateLimitRPS float64       `envconfig:"KERNEL_HTTP_RATE_RPS" default:"0"`
}

// PollConfig holds polling scheduler configuration.
type PollConfig struct {
	SpecsActive    time.Duration `envconfig:"POLL_SPECS_ACTIVE" default:"61s"`
	SpecsStandby   time.Duration `envconfig:"POLL_SPECS_STANDBY" default:"5m"`
	RunningActive  time.Duration `envconfig:"POLL_RUNNING_ACTIVE" default:"10s"`
	RunningStandby time.Duration `envconfig:"POLL_RUNNING_STANDBY" default:"1m"`
	// Standby selects the policy: "never" or "when-idle".
	Standby string `envconfig:"POLL_STANDBY" default:"never"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds the optional metrics endpoint configuration.
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from environment variables, then overlays
// values from a YAML file. File values win over environment values.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var overlay fileConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	overlay.apply(cfg)

	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:  "http://localhost:8888",
			Timeout:  30 * time.Second,
			RetryMax: 3,
		},
		Poll: PollConfig{
			SpecsActive:    61 * time.Second,
			SpecsStandby:   5 * time.Minute,
			RunningActive:  10 * time.Second,
			RunningStandby: time.Minute,
			Standby:        "never",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// fileConfig mirrors Config with pointer fields so absent YAML keys do not
// clobber environment-derived values.
type fileConfig struct {
	Service struct {
		BaseURL      *string        `yaml:"base_url"`
		Token        *string        `yaml:"token"`
		Timeout      *time.Duration `yaml:"timeout"`
		RetryMax     *int           `yaml:"retry_max"`
		RateLimitRPS *float64       `yaml:"rate_limit_rps"`
	} `yaml:"service"`
	Poll struct {
		SpecsActive    *time.Duration `yaml:"specs_active"`
		SpecsStandby   *time.Duration `yaml:"specs_standby"`
		RunningActive  *time.Duration `yaml:"running_active"`
		RunningStandby *time.Duration `yaml:"running_standby"`
		Standby        *string        `yaml:"standby"`
	} `yaml:"poll"`
	Logging struct {
		Level       *string `yaml:"level"`
		Development *bool   `yaml:"development"`
	} `yaml:"logging"`
	Metrics struct {
		Addr *string `yaml:"addr"`
	} `yaml:"metrics"`
}

func (f *fileConfig) apply(cfg *Config) {
	setIf(&cfg.Service.BaseURL, f.Service.BaseURL)
	setIf(&cfg.Service.Token, f.Service.Token)
	setIf(&cfg.Service.Timeout, f.Service.Timeout)
	setIf(&cfg.Service.RetryMax, f.Service.RetryMax)
	setIf(&cfg.Service.RateLimitRPS, f.Service.RateLimitRPS)
	setIf(&cfg.Poll.SpecsActive, f.Poll.SpecsActive)
	setIf(&cfg.Poll.SpecsStandby, f.Poll.SpecsStandby)
	setIf(&cfg.Poll.RunningActive, f.Poll.RunningActive)
	setIf(&cfg.Poll.RunningStandby, f.Poll.RunningStandby)
	setIf(&cfg.Poll.Standby, f.Poll.Standby)
	setIf(&cfg.Logging.Level, f.Logging.Level)
	setIf(&cfg.Logging.Development, f.Logging.Development)
	setIf(&cfg.Metrics.Addr, f.Metrics.Addr)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
