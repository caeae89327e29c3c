package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/khoward/photos-g-org/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Settings SettingsConfig `yaml:"settings"`
	Organize OrganizeConfig `yaml:"organize"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// Public binds to all interfaces instead of loopback.
	Public bool `yaml:"public"`
}

// SettingsConfig holds the location of persisted settings.
type SettingsConfig struct {
	Dir string `yaml:"dir"`
}

// OrganizeConfig holds defaults for organize jobs.
type OrganizeConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8099,
			Host: "127.0.0.1",
		},
		Settings: SettingsConfig{
			Dir: defaultSettingsDir(),
		},
		Organize: OrganizeConfig{
			Workers:   4,
			BatchSize: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func defaultSettingsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gporg"
	}
	return filepath.Join(home, ".config", "gporg")
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("GP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("GP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("GP_PUBLIC"); v != "" {
		if public, err := strconv.ParseBool(v); err == nil {
			c.Server.Public = public
		}
	}
	if v := os.Getenv("GP_SETTINGS_DIR"); v != "" {
		c.Settings.Dir = v
	}
	if v := os.Getenv("GP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Organize.Workers = n
		}
	}
	if v := os.Getenv("GP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GP_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("GP_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Settings.Dir == "" {
		return fmt.Errorf("settings dir is required")
	}
	if c.Organize.Workers < 1 {
		return fmt.Errorf("organize workers must be at least 1, got %d", c.Organize.Workers)
	}
	if c.Organize.BatchSize < 1 || c.Organize.BatchSize > 50 {
		return fmt.Errorf("organize batch size must be between 1 and 50, got %d", c.Organize.BatchSize)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	return nil
}

// ListenAddr returns the address the HTTP server should bind to.
func (c *Config) ListenAddr() string {
	host := c.Server.Host
	if c.Server.Public {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, c.Server.Port)
}
