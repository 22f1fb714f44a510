// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for riskgate.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. File location: ~/.riskgate/config.toml, falling back to
// built-in defaults when absent.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete riskgate configuration.
type Config struct {
	// Service holds the chat-completions endpoint the three capabilities
	// (drafting, evaluation, rewrite) run against.
	Service ServiceConfig `toml:"service"`

	// Client holds transport knobs for the capability calls.
	Client ClientConfig `toml:"client"`

	// Export holds audit export settings.
	Export ExportConfig `toml:"export"`
}

// ServiceConfig identifies the LLM endpoint and per-capability models.
type ServiceConfig struct {
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string `toml:"base_url"`
	// APIKey authenticates requests; usually set via RISKGATE_API_KEY.
	APIKey string `toml:"api_key"`
	// DraftModel drafts customer replies.
	DraftModel string `toml:"draft_model"`
	// EvalModel scores drafts; a stronger model than the drafter, since
	// its judgment gates what customers see.
	EvalModel string `toml:"eval_model"`
	// RewriteModel performs the autonomous compliance rewrite.
	RewriteModel string `toml:"rewrite_model"`
	// EvalPromptPath optionally overrides the built-in evaluator system
	// prompt with the contents of a file.
	EvalPromptPath string `toml:"eval_prompt_path"`
}

// ClientConfig bounds the external capability calls. The reference
// implementation had no timeout or retry policy; these defaults close that
// gap and are deliberately configuration, not constants.
type ClientConfig struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration `toml:"-"`
	// TimeoutSeconds is the TOML-facing form of Timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// MaxRetries is the number of attempts for transient failures.
	MaxRetries int `toml:"max_retries"`
	// RequestsPerMinute rate-limits capability calls client-side.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// ExportConfig controls audit export output.
type ExportConfig struct {
	// Dir is where audit exports are written. Default: current directory.
	Dir string `toml:"dir"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:      "https://api.openai.com/v1",
			DraftModel:   "gpt-4o-mini",
			EvalModel:    "gpt-4o",
			RewriteModel: "gpt-4o",
		},
		Client: ClientConfig{
			Timeout:           60 * time.Second,
			TimeoutSeconds:    60,
			MaxRetries:        3,
			RequestsPerMinute: 60,
		},
		Export: ExportConfig{
			Dir: ".",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the riskgate configuration directory (~/.riskgate).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".riskgate"), nil
}

// EnsureConfigDir creates the configuration directory if it does not exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// ConfigPath returns the TOML config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file if present, fills defaults, applies
// environment overrides, and validates. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if loadErr := loadTOML(cfg, path); loadErr != nil && !errors.Is(loadErr, os.ErrNotExist) {
			return nil, loadErr
		}
	}

	cfg.fillDerived()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads config from an explicit path. The file must exist.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, err
	}
	cfg.fillDerived()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// fillDerived recomputes fields derived from their TOML-facing forms and
// re-fills zero values with defaults.
func (c *Config) fillDerived() {
	def := Default()

	if c.Client.TimeoutSeconds <= 0 {
		c.Client.TimeoutSeconds = def.Client.TimeoutSeconds
	}
	c.Client.Timeout = time.Duration(c.Client.TimeoutSeconds) * time.Second

	if c.Client.MaxRetries <= 0 {
		c.Client.MaxRetries = def.Client.MaxRetries
	}
	if c.Client.RequestsPerMinute <= 0 {
		c.Client.RequestsPerMinute = def.Client.RequestsPerMinute
	}
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = def.Service.BaseURL
	}
	if c.Service.DraftModel == "" {
		c.Service.DraftModel = def.Service.DraftModel
	}
	if c.Service.EvalModel == "" {
		c.Service.EvalModel = def.Service.EvalModel
	}
	if c.Service.RewriteModel == "" {
		c.Service.RewriteModel = def.Service.RewriteModel
	}
	if c.Export.Dir == "" {
		c.Export.Dir = def.Export.Dir
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables on top of file values:
//   - RISKGATE_API_KEY: overrides service.api_key
//   - OPENAI_API_KEY: fallback for service.api_key (reference parity)
//   - RISKGATE_BASE_URL: overrides service.base_url
//   - RISKGATE_DRAFT_MODEL / RISKGATE_EVAL_MODEL / RISKGATE_REWRITE_MODEL
//   - RISKGATE_TIMEOUT_SECONDS: overrides client.timeout_seconds
//   - RISKGATE_EXPORT_DIR: overrides export.dir
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("RISKGATE_API_KEY"); key != "" {
		c.Service.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Service.APIKey == "" {
		c.Service.APIKey = key
	}

	if base := os.Getenv("RISKGATE_BASE_URL"); base != "" {
		c.Service.BaseURL = base
	}
	if model := os.Getenv("RISKGATE_DRAFT_MODEL"); model != "" {
		c.Service.DraftModel = model
	}
	if model := os.Getenv("RISKGATE_EVAL_MODEL"); model != "" {
		c.Service.EvalModel = model
	}
	if model := os.Getenv("RISKGATE_REWRITE_MODEL"); model != "" {
		c.Service.RewriteModel = model
	}
	if secs := os.Getenv("RISKGATE_TIMEOUT_SECONDS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			c.Client.TimeoutSeconds = n
			c.Client.Timeout = time.Duration(n) * time.Second
		}
	}
	if dir := os.Getenv("RISKGATE_EXPORT_DIR"); dir != "" {
		c.Export.Dir = dir
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks structural validity. An empty API key is allowed here -
// the client reports it at call time so the TUI can render a proper hint.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Service.BaseURL); err != nil {
		return ValidationError{Field: "service.base_url", Message: "not a valid URL"}
	}
	if c.Client.Timeout <= 0 {
		return ValidationError{Field: "client.timeout_seconds", Message: "must be positive"}
	}
	if c.Client.MaxRetries < 1 {
		return ValidationError{Field: "client.max_retries", Message: "must be at least 1"}
	}
	if c.Client.RequestsPerMinute < 1 {
		return ValidationError{Field: "client.requests_per_minute", Message: "must be at least 1"}
	}
	return nil
}
