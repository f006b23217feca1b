// Package config loads the process configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/oklahomer/go-sarah/v4"
	"gopkg.in/yaml.v3"

	"github.com/captchagate/captchagate/discord"
	"github.com/captchagate/captchagate/verification"
)

// Config contains every configuration variable of the bot process.
type Config struct {
	Discord      *discord.Config            `yaml:"discord"`
	Verification *verification.Config       `yaml:"verification"`
	Render       *verification.RenderConfig `yaml:"render"`
	Runner       *sarah.Config              `yaml:"runner"`

	// StoragePath is the SQLite file verification settings are persisted to.
	// Settings are kept in memory only when empty.
	StoragePath string `yaml:"storage_path"`

	// MetricsAddr is the listen address of the Prometheus endpoint.
	// The endpoint is disabled when empty.
	MetricsAddr string `yaml:"metrics_addr"`
}

// New creates and returns a new Config instance with default settings.
func New() *Config {
	return &Config{
		Discord:      discord.NewConfig(),
		Verification: verification.NewConfig(),
		Render:       verification.NewRenderConfig(),
		Runner:       sarah.NewConfig(),
	}
}

// environment holds the variables that override file values.
type environment struct {
	Token         string        `env:"DISCORD_TOKEN"`
	ApplicationID string        `env:"DISCORD_APPLICATION_ID"`
	StoragePath   string        `env:"CAPTCHAGATE_STORAGE_PATH"`
	MetricsAddr   string        `env:"CAPTCHAGATE_METRICS_ADDR"`
	Timeout       time.Duration `env:"CAPTCHAGATE_TIMEOUT"`
}

// Load builds a Config from defaults, the YAML file at path and the environment, in that order.
// path may be empty. Each existing envFile is loaded into the environment first;
// variables already set are not overwritten.
func Load(path string, envFiles ...string) (*Config, error) {
	config := New()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	for _, f := range envFiles {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	e := environment{}
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	config.apply(&e)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) apply(e *environment) {
	if e.Token != "" {
		c.Discord.Token = e.Token
	}
	if e.ApplicationID != "" {
		c.Discord.ApplicationID = e.ApplicationID
	}
	if e.StoragePath != "" {
		c.StoragePath = e.StoragePath
	}
	if e.MetricsAddr != "" {
		c.MetricsAddr = e.MetricsAddr
	}
	if e.Timeout > 0 {
		c.Verification.Timeout = e.Timeout
	}
}

// Validate reports settings the bot cannot start with.
func (c *Config) Validate() error {
	if c.Discord == nil || c.Discord.Token == "" {
		return discord.ErrEmptyToken
	}
	if c.Verification == nil || c.Verification.Timeout <= 0 {
		return fmt.Errorf("verification timeout must be positive")
	}
	if c.Verification.Timeout > verification.MaxTimeout {
		return fmt.Errorf("verification timeout must not exceed %s: %s", verification.MaxTimeout, c.Verification.Timeout)
	}
	if c.Render == nil || c.Runner == nil {
		return fmt.Errorf("render and runner settings are required")
	}
	return nil
}
