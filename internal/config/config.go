// Package config loads application configuration from environment
// variables and optional .env files. Configuration is loaded once at
// startup and accessed through the package-level singleton.
package config

import (
	"fmt"
)

var (
	instance *Config
	loaded   bool
)

// Load loads configuration from environment variables and .env files.
// It should be called once at application startup.
func Load() error {
	if loaded {
		return nil // Already loaded
	}

	if err := loadEnvFiles(); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := parse()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	instance = cfg
	loaded = true
	return nil
}

// MustLoad loads configuration and panics on error. Use for
// application initialization where errors are fatal.
func MustLoad() {
	if err := Load(); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
}

// Get returns the current configuration, or an error when Load has not
// run yet.
func Get() (*Config, error) {
	if !loaded || instance == nil {
		return nil, fmt.Errorf("configuration not loaded; call Load() first")
	}
	return instance, nil
}

// MustGet returns the configuration or panics if not loaded.
func MustGet() *Config {
	cfg, err := Get()
	if err != nil {
		panic(fmt.Sprintf("failed to get configuration: %v", err))
	}
	return cfg
}

// IsLoaded returns whether configuration has been loaded.
func IsLoaded() bool {
	return loaded
}

// Reset clears the configuration (useful for testing).
func Reset() {
	instance = nil
	loaded = false
}
