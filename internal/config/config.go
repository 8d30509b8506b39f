// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	UploadPath            string `toml:"upload_path"`
	UploadURL             string `toml:"upload_url"`
	Debug                 bool   `toml:"debug"`
	MaxImages             int    `toml:"max_images"`
	MinWidth              int    `toml:"min_width"`
	MinHeight             int    `toml:"min_height"`
	MaxRedirects          int    `toml:"max_redirects"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
	UserAgent             string `toml:"user_agent"`
	Listen                string `toml:"listen"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		UploadPath:            "uploads/links_parser",
		UploadURL:             "/uploads/links_parser",
		Debug:                 false,
		MaxImages:             1,
		MinWidth:              50,
		MinHeight:             50,
		MaxRedirects:          5,
		TimeoutSeconds:        5,
		ConnectTimeoutSeconds: 3,
		UserAgent:             "linkparser link parser",
		Listen:                "127.0.0.1:8080",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "linkparser"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "linkparser"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UploadPath) == "" {
		return fmt.Errorf("upload path cannot be empty")
	}
	if c.MaxImages < 1 {
		return fmt.Errorf("max_images must be at least 1, got %d", c.MaxImages)
	}
	if c.MinWidth < 0 || c.MinHeight < 0 {
		return fmt.Errorf("minimum image size cannot be negative (%dx%d)", c.MinWidth, c.MinHeight)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 20 {
		return fmt.Errorf("max_redirects must be between 0 and 20, got %d", c.MaxRedirects)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.ConnectTimeoutSeconds < 1 || c.ConnectTimeoutSeconds > c.TimeoutSeconds {
		return fmt.Errorf("connect_timeout_seconds must be between 1 and %d, got %d", c.TimeoutSeconds, c.ConnectTimeoutSeconds)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}

// Timeout returns the total per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConnectTimeout returns the dial timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ExpandUploadPath resolves ~ in the upload directory path.
func (c *Config) ExpandUploadPath() (string, error) {
	dir := c.UploadPath
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}
