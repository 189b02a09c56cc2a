// Package config provides configuration management for the AlQaseh tooling
package config

import (
	"fmt"
	"time"

	"github.com/alexbotov/alqaseh/pkg/alqaseh"
	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
)

// Config holds all configuration read from the environment
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	Gateway  GatewayConfig
	Emulator EmulatorConfig
	Log      LogConfig
}

// GatewayConfig holds the credentials used to build an alqaseh.Client
type GatewayConfig struct {
	APIKey     string        `env:"ALQASEH_API_KEY"`
	MerchantID string        `env:"ALQASEH_MERCHANT_ID"`
	BaseURL    string        `env:"ALQASEH_BASE_URL" envDefault:"https://api.alqaseh.com/v1"`
	Sandbox    bool          `env:"ALQASEH_SANDBOX" envDefault:"true"`
	Timeout    time.Duration `env:"ALQASEH_TIMEOUT" envDefault:"30s"`
}

// EmulatorConfig holds the sandbox emulator settings
type EmulatorConfig struct {
	Addr         string        `env:"EMULATOR_ADDR" envDefault:":8080"`
	PublicURL    string        `env:"EMULATOR_PUBLIC_URL" envDefault:"http://localhost:8080"`
	APIKey       string        `env:"EMULATOR_API_KEY" envDefault:"1X6Bvq65kpx1Yes5fYA5mbm8ixiexONo"`
	MerchantID   string        `env:"EMULATOR_MERCHANT_ID" envDefault:"public_test"`
	TokenSecret  string        `env:"EMULATOR_TOKEN_SECRET" envDefault:"alqaseh-emulator-dev-secret"`
	TokenTTL     time.Duration `env:"EMULATOR_TOKEN_TTL" envDefault:"30m"`
	Store        string        `env:"EMULATOR_STORE" envDefault:"memory"`
	DBDriver     string        `env:"EMULATOR_DB_DRIVER" envDefault:"postgres"`
	DSN          string        `env:"EMULATOR_DB_DSN"`
	ReadTimeout  time.Duration `env:"EMULATOR_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"EMULATOR_WRITE_TIMEOUT" envDefault:"30s"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT"`
}

// Load loads configuration from the process environment with defaults
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom loads configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.AppEnv != "local" && c.AppEnv != "docker" {
		return fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", c.AppEnv)
	}
	if !c.Gateway.Sandbox && (c.Gateway.APIKey == "" || c.Gateway.MerchantID == "") {
		return fmt.Errorf("ALQASEH_API_KEY and ALQASEH_MERCHANT_ID are required when ALQASEH_SANDBOX is false")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("ALQASEH_TIMEOUT must be positive")
	}
	if c.Emulator.TokenTTL <= 0 {
		return fmt.Errorf("EMULATOR_TOKEN_TTL must be positive")
	}
	switch c.Emulator.Store {
	case "memory":
	case "postgres":
		if c.Emulator.DSN == "" {
			return fmt.Errorf("EMULATOR_DB_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid EMULATOR_STORE: %s (must be 'memory' or 'postgres')", c.Emulator.Store)
	}
	return nil
}

// ClientConfig maps the gateway settings onto an alqaseh.ClientConfig
func (g GatewayConfig) ClientConfig(logger *zap.Logger) *alqaseh.ClientConfig {
	return &alqaseh.ClientConfig{
		APIKey:     g.APIKey,
		MerchantID: g.MerchantID,
		BaseURL:    g.BaseURL,
		Sandbox:    g.Sandbox,
		Timeout:    g.Timeout,
		Logger:     logger,
	}
}
