// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "PARLEY_CONFIG"

// Config is the master configuration for the Parley client.
type Config struct {
	// Server configures the chat server connection.
	Server ServerConfig `yaml:"server"`

	// Reconnect configures the fixed-interval reconnection policy.
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Log configures structured log output.
	Log LogConfig `yaml:"log"`
}

// ServerConfig configures the chat server connection.
type ServerConfig struct {
	// URL is the websocket endpoint (e.g., "wss://chat.example.com/ws").
	URL string `yaml:"url"`
}

// ReconnectConfig configures the reconnection policy. The policy is a
// fixed interval with a bounded attempt count, not exponential backoff.
type ReconnectConfig struct {
	// Delay is the fixed interval between attempts.
	Delay time.Duration `yaml:"delay"`

	// MaxAttempts is the consecutive-failure ceiling before the
	// connection parks in the terminal failed state.
	MaxAttempts int `yaml:"max_attempts"`
}

// LogConfig configures structured log output.
type LogConfig struct {
	// File receives log records. Empty means stderr.
	File string `yaml:"file"`

	// Level is the minimum record level: debug, info, warn, or error.
	Level string `yaml:"level"`
}

// Default returns a Config with working development defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL: "ws://localhost:8990/ws",
		},
		Reconnect: ReconnectConfig{
			Delay:       3 * time.Second,
			MaxAttempts: 5,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads the config file named by the PARLEY_CONFIG environment
// variable. When the variable is unset, Default() is returned as-is.
func Load() (Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates a config file. Fields absent from the
// file keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return config, nil
}

func (c Config) validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url must not be empty")
	}
	if c.Reconnect.Delay <= 0 {
		return fmt.Errorf("reconnect.delay must be positive")
	}
	if c.Reconnect.MaxAttempts <= 0 {
		return fmt.Errorf("reconnect.max_attempts must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
