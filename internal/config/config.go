// Package config handles SuperIntendent configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tharoslabs/superintendent/internal/personality"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/superintendent/config.yaml,
// /etc/superintendent/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "superintendent", "config.yaml"))
	}

	paths = append(paths, "/etc/superintendent/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all SuperIntendent configuration.
type Config struct {
	Listen             ListenConfig    `yaml:"listen"`
	Providers          ProvidersConfig `yaml:"providers"`
	DataDir            string          `yaml:"data_dir"`
	DefaultPersonality string          `yaml:"default_personality"`
	ProviderTimeoutSec int             `yaml:"provider_timeout_sec"`
	LogLevel           string          `yaml:"log_level"`
	LogFormat          string          `yaml:"log_format"`
	LogFile            LogFileConfig   `yaml:"log_file"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ProvidersConfig groups the upstream LLM provider settings.
type ProvidersConfig struct {
	OpenAI   ProviderConfig `yaml:"openai"`
	Gemini   ProviderConfig `yaml:"gemini"`
	DeepSeek ProviderConfig `yaml:"deepseek"`
}

// ProviderConfig defines a single provider's credentials and model.
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Configured reports whether the provider has credentials.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// LogFileConfig defines optional rotating log file output.
// When Path is empty, logs go to stdout only.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so API keys can live outside the file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8001
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.DefaultPersonality == "" {
		c.DefaultPersonality = personality.Default.String()
	}
	if c.ProviderTimeoutSec == 0 {
		c.ProviderTimeoutSec = 60
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Providers.OpenAI.Model == "" {
		c.Providers.OpenAI.Model = "gpt-4"
	}
	if c.Providers.Gemini.Model == "" {
		c.Providers.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Providers.DeepSeek.Model == "" {
		c.Providers.DeepSeek.Model = "deepseek-chat"
	}
	if c.LogFile.MaxSizeMB == 0 {
		c.LogFile.MaxSizeMB = 50
	}
	if c.LogFile.MaxBackups == 0 {
		c.LogFile.MaxBackups = 5
	}
}

// Validate checks the configuration for errors a human should fix.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q (valid: text, json)", c.LogFormat)
	}
	if _, err := personality.Parse(c.DefaultPersonality); err != nil {
		return fmt.Errorf("default_personality: %w", err)
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Listen.Port)
	}
	if c.ProviderTimeoutSec < 0 {
		return fmt.Errorf("provider_timeout_sec must not be negative")
	}
	return nil
}
