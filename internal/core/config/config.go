// Package config handles configuration loading and validation for prism.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig `yaml:"server"`
	Upload  UploadConfig `yaml:"upload"`
	Retry   RetryConfig  `yaml:"retry"`
	TUI     TUIConfig    `yaml:"tui"`
	DataDir string       `yaml:"-"` // set by caller, not from config file
}

// ServerConfig points the client at the review service.
type ServerConfig struct {
	URL string `yaml:"url"`
	// TimeoutSeconds applies to ordinary calls; AnalysisTimeoutSeconds to
	// analysis, chat, and export calls, which run model inference.
	TimeoutSeconds         int `yaml:"timeout_seconds"`
	AnalysisTimeoutSeconds int `yaml:"analysis_timeout_seconds"`
}

// Timeout returns the standard request timeout.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// AnalysisTimeout returns the extended timeout for long-running calls.
func (s ServerConfig) AnalysisTimeout() time.Duration {
	return time.Duration(s.AnalysisTimeoutSeconds) * time.Second
}

// UploadConfig controls document discovery for the upload command.
type UploadConfig struct {
	// DocumentGlobs are doublestar patterns used to find candidate .docx
	// files when no explicit path is given.
	DocumentGlobs        []string `yaml:"document_globs"`
	GuidelinesPreference string   `yaml:"guidelines_preference"`
}

// RetryConfig bounds the transient-failure retry helper.
type RetryConfig struct {
	Attempts     int `yaml:"attempts"`
	DelaySeconds int `yaml:"delay_seconds"`
}

// Delay returns the fixed delay between retry attempts.
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelaySeconds) * time.Second
}

// TUIConfig holds presentation settings.
type TUIConfig struct {
	Theme          string `yaml:"theme"`
	HighlightColor string `yaml:"default_highlight_color"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			URL:                    "http://localhost:5000",
			TimeoutSeconds:         30,
			AnalysisTimeoutSeconds: 240,
		},
		Upload: UploadConfig{
			DocumentGlobs:        []string{"**/*.docx"},
			GuidelinesPreference: "both",
		},
		Retry: RetryConfig{
			Attempts:     3,
			DelaySeconds: 2,
		},
		TUI: TUIConfig{
			Theme:          "dark",
			HighlightColor: "yellow",
		},
	}
}

// Load reads the config file if it exists, applies defaults for unset
// values, and validates the result.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.TimeoutSeconds == 0 {
		c.Server.TimeoutSeconds = defaults.Server.TimeoutSeconds
	}
	if c.Server.AnalysisTimeoutSeconds == 0 {
		c.Server.AnalysisTimeoutSeconds = defaults.Server.AnalysisTimeoutSeconds
	}
	if len(c.Upload.DocumentGlobs) == 0 {
		c.Upload.DocumentGlobs = defaults.Upload.DocumentGlobs
	}
	if c.Upload.GuidelinesPreference == "" {
		c.Upload.GuidelinesPreference = defaults.Upload.GuidelinesPreference
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = defaults.Retry.Attempts
	}
	if c.Retry.DelaySeconds == 0 {
		c.Retry.DelaySeconds = defaults.Retry.DelaySeconds
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
	if c.TUI.HighlightColor == "" {
		c.TUI.HighlightColor = defaults.TUI.HighlightColor
	}
}
