// Package config loads engine configuration from a YAML file and
// AGENTWIRE_-prefixed environment variables, env taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full configuration tree.
type Config struct {
	Agent    AgentConfig    `koanf:"agent"`
	Session  SessionConfig  `koanf:"session"`
	Storage  StorageConfig  `koanf:"storage"`
	Proxy    ProxyConfig    `koanf:"proxy"`
	Probe    ProbeConfig    `koanf:"probe"`
	Feedback FeedbackConfig `koanf:"feedback"`
}

// AgentConfig identifies the remote agent app and its tuning.
type AgentConfig struct {
	Endpoint     string  `koanf:"endpoint"`
	APIKey       string  `koanf:"api_key"`
	AppID        string  `koanf:"app_id"`
	SystemPrompt string  `koanf:"system_prompt"`
	Temperature  float64 `koanf:"temperature"`
	MaxTokens    int     `koanf:"max_tokens"`
	MaxRetries   int     `koanf:"max_retries"`
	Streaming    bool    `koanf:"streaming"`
}

// SessionConfig tunes the session controller.
type SessionConfig struct {
	TurnTimeout    time.Duration `koanf:"turn_timeout"`
	MaxInputLength int           `koanf:"max_input_length"`
	TokenBudget    int           `koanf:"token_budget"`
}

// StorageConfig selects the transcript store.
type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

// SQLiteConfig locates the transcript database.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ProxyConfig tunes the chat proxy server.
type ProxyConfig struct {
	Port int `koanf:"port"`
}

// ProbeConfig tunes the connectivity probe.
type ProbeConfig struct {
	URL      string        `koanf:"url"`
	Interval time.Duration `koanf:"interval"`
}

// FeedbackConfig locates the feedback endpoint.
type FeedbackConfig struct {
	Endpoint string `koanf:"endpoint"`
}

// Load reads configuration. path may be empty to run on env and defaults
// alone.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Double underscore separates nesting levels so keys like
	// AGENTWIRE_AGENT__API_KEY can address agent.api_key.
	if err := k.Load(env.Provider("AGENTWIRE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "AGENTWIRE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"agent.temperature":        0.7,
		"agent.max_tokens":         2000,
		"agent.max_retries":        2,
		"agent.streaming":          true,
		"session.turn_timeout":     "120s",
		"session.max_input_length": 10000,
		"storage.type":             "sqlite",
		"storage.sqlite.path":      "./data/agentwire.db",
		"proxy.port":               8080,
		"probe.interval":           "30s",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}
