// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and hot reload for ircbridge.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ircbridge configuration. Instances are
// immutable once loaded; hot reload produces a fresh Config rather than
// mutating one in place.
type Config struct {
	// IRC connection settings
	Server   string   `toml:"server" json:"server"`
	Port     int      `toml:"port" json:"port"`
	SourceIP string   `toml:"source_ip" json:"source_ip"`
	Nickname string   `toml:"nickname" json:"nickname"`
	Channels []string `toml:"channels" json:"channels"`
	UseSSL   bool     `toml:"usessl" json:"usessl"`
	Password string   `toml:"password" json:"password"`

	// Responder settings
	AdminPrompt string `toml:"admin_prompt" json:"admin_prompt"`
	APIKey      string `toml:"api_key" json:"api_key"`
	Model       string `toml:"model" json:"model"`

	// Generation parameters forwarded verbatim to the responder API.
	Chat ChatParams `toml:"chat_params" json:"chat_params"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level" json:"log_level"`
}

// ChatParams contains the generation parameters for responder calls.
type ChatParams struct {
	Temperature      float64 `toml:"temperature" json:"temperature"`
	MaxTokens        int     `toml:"max_tokens" json:"max_tokens"`
	TopP             float64 `toml:"top_p" json:"top_p"`
	FrequencyPenalty float64 `toml:"frequency_penalty" json:"frequency_penalty"`
	PresencePenalty  float64 `toml:"presence_penalty" json:"presence_penalty"`
	RequestTimeout   int     `toml:"request_timeout" json:"request_timeout"` // seconds
}

// Timeout returns the request timeout as a duration.
func (p ChatParams) Timeout() time.Duration {
	return time.Duration(p.RequestTimeout) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with sensible defaults. Server, nickname
// and API key have no usable defaults and must come from the file or the
// environment.
func Default() *Config {
	return &Config{
		Port:     6667,
		Model:    "gpt-4o",
		LogLevel: "info",
		Chat: ChatParams{
			Temperature:    1.0,
			MaxTokens:      1024,
			TopP:           1.0,
			RequestTimeout: 120,
		},
	}
}

// SetDefaults fills zero-valued fields with defaults after decoding.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = d.Chat.Temperature
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = d.Chat.MaxTokens
	}
	if c.Chat.TopP == 0 {
		c.Chat.TopP = d.Chat.TopP
	}
	if c.Chat.RequestTimeout == 0 {
		c.Chat.RequestTimeout = d.Chat.RequestTimeout
	}
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadFromPath loads, defaults, env-overrides, and validates a configuration
// from path. The format is chosen by extension: ".json" decodes as JSON,
// anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvOverrides overrides selected fields from IRCBRIDGE_* environment
// variables. Useful for keeping the API key out of the config file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("IRCBRIDGE_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("IRCBRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("IRCBRIDGE_NICKNAME"); v != "" {
		c.Nickname = v
	}
	if v := os.Getenv("IRCBRIDGE_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("IRCBRIDGE_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for fields the bridge cannot run
// without. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Server == "" {
		return ValidationError{Field: "server", Message: "server host is required"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ValidationError{Field: "port", Message: fmt.Sprintf("port %d out of range", c.Port)}
	}
	if c.Nickname == "" {
		return ValidationError{Field: "nickname", Message: "nickname is required"}
	}
	if strings.ContainsAny(c.Nickname, " \r\n") {
		return ValidationError{Field: "nickname", Message: "nickname must not contain whitespace"}
	}
	if c.APIKey == "" {
		return ValidationError{Field: "api_key", Message: "api_key is required"}
	}
	for _, ch := range c.Channels {
		if ch == "" || strings.ContainsAny(ch, " \r\n") {
			return ValidationError{Field: "channels", Message: fmt.Sprintf("invalid channel name %q", ch)}
		}
	}
	if c.Chat.RequestTimeout < 0 {
		return ValidationError{Field: "chat_params.request_timeout", Message: "must be non-negative"}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Channels = make([]string, len(c.Channels))
	copy(clone.Channels, c.Channels)
	return &clone
}
