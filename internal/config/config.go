package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the KPI report service.
type Config struct {
	Port         int           `env:"KPI_REPORT_PORT" envDefault:"8000"`
	Version      string        `env:"KPI_REPORT_VERSION" envDefault:"0.1.0"`
	LogLevel     string        `env:"KPI_REPORT_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"KPI_REPORT_LOG_FORMAT" envDefault:"console"` // console | json
	WriteTimeout time.Duration `env:"KPI_REPORT_WRITE_TIMEOUT" envDefault:"5m"`
	APIKeys      []string      `env:"KPI_REPORT_API_KEYS" envSeparator:","` // protects /report when set
	MaxBodyBytes int64         `env:"KPI_REPORT_MAX_BODY_BYTES" envDefault:"4194304"`
	Report       ReportConfig
	LLM          LLMConfig
	Telemetry    TelemetryConfig
}

type ReportConfig struct {
	// MaxTurns caps the number of writer + critic turns in one conversation.
	MaxTurns int `env:"REPORT_MAX_TURNS" envDefault:"4"`
}

type LLMConfig struct {
	Provider    string        `env:"LLM_PROVIDER" envDefault:"openai"` // openai | azure-openai | anthropic | ollama
	Model       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	APIKey      string        `env:"LLM_API_KEY"`
	BaseURL     string        `env:"LLM_BASE_URL"`
	Temperature float64       `env:"LLM_TEMPERATURE" envDefault:"1"`
	MaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"4096"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	// CountTokens estimates prompt tokens locally when a provider reports
	// no usage. Needs the tiktoken BPE files on first use.
	CountTokens bool `env:"LLM_COUNT_TOKENS" envDefault:"false"`
}

type TelemetryConfig struct {
	Enabled      bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"kpi-report-service"`
}

// Load reads configuration from the environment, after overloading it from
// ./.env when that file exists.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		return LoadFrom(".env")
	}
	return parse()
}

// LoadFrom overloads the environment from envfile and then reads it.
func LoadFrom(envfile string) (*Config, error) {
	if err := godotenv.Overload(envfile); err != nil {
		return nil, fmt.Errorf("load %s: %w", envfile, err)
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("KPI_REPORT_MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if c.Report.MaxTurns < 2 {
		return fmt.Errorf("REPORT_MAX_TURNS must allow at least one writer and one critic turn, got %d", c.Report.MaxTurns)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.LLM.Model == "" {
		return errors.New("LLM_MODEL is required")
	}
	return nil
}
