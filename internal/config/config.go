// Package config loads the pomo client configuration from ~/.pomo/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvAPI   = "POMO_API"
	EnvToken = "POMO_TOKEN"
)

// Config holds client and dev backend settings.
type Config struct {
	// APIAddr is the base URL of the pomodoro backend.
	APIAddr string `yaml:"api_addr"`
	// Token is sent as a bearer token on every request.
	Token string `yaml:"token,omitempty"`
	// DBPath is the local SQLite database holding the timer snapshot and journal.
	DBPath string `yaml:"db_path"`
	// FocusMinutes is the planned length of one pomodoro.
	FocusMinutes int `yaml:"focus_minutes"`
	// TickInterval is the countdown clock period.
	TickInterval time.Duration `yaml:"tick_interval"`
	// ListenAddr is where `pomo serve` binds.
	ListenAddr string `yaml:"listen_addr"`
}

// Dir returns ~/.pomo, or .pomo when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pomo"
	}
	return filepath.Join(home, ".pomo")
}

// DefaultPath returns ~/.pomo/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIAddr:      "http://127.0.0.1:7466",
		DBPath:       filepath.Join(Dir(), "pomo.db"),
		FocusMinutes: 25,
		TickInterval: time.Second,
		ListenAddr:   "127.0.0.1:7466",
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromHome loads configuration from ~/.pomo/config.yaml.
func LoadConfigFromHome() (*Config, error) {
	return LoadConfig(DefaultPath())
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.APIAddr == "" {
		return fmt.Errorf("api_addr is required")
	}
	if c.FocusMinutes < 1 {
		return fmt.Errorf("focus_minutes must be at least 1")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPI); v != "" {
		c.APIAddr = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
}
