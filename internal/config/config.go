// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package config loads and validates the Platefinder service
// configuration from layered sources: built-in defaults, an optional
// YAML file, and environment variables, in ascending precedence.
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/platefinder/internal/recommend"
)

// Config is the root service configuration.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `json:"server"`

	// Store contains persistence settings.
	Store StoreConfig `json:"store"`

	// Index contains vector index settings.
	Index IndexConfig `json:"index"`

	// Logging contains log output settings.
	Logging LoggingConfig `json:"logging"`

	// Recommend contains the recommendation pipeline parameters.
	Recommend *recommend.Config `json:"recommend"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	// Default: 0.0.0.0
	Host string `json:"host"`

	// Port is the listen port.
	// Default: 8344
	Port int `json:"port"`

	// ReadTimeout, WriteTimeout, and ShutdownTimeout bound request
	// handling and graceful shutdown.
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// CORSOrigins lists allowed CORS origins.
	// Default: ["*"]
	CORSOrigins []string `json:"cors_origins"`

	// RateLimitReqs and RateLimitWindow configure per-IP rate limiting.
	// Defaults: 120 requests per minute.
	RateLimitReqs   int           `json:"rate_limit_reqs"`
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	// RateLimitDisabled turns rate limiting off entirely.
	RateLimitDisabled bool `json:"rate_limit_disabled"`
}

// StoreConfig contains persistence settings.
type StoreConfig struct {
	// Path is the BadgerDB directory.
	// Default: /data/platefinder
	Path string `json:"path"`

	// InMemory switches to the in-memory store (development only;
	// nothing survives a restart).
	InMemory bool `json:"in_memory"`
}

// IndexConfig contains vector index settings.
type IndexConfig struct {
	// Path is where index snapshots are persisted. Empty disables
	// persistence.
	// Default: /data/platefinder-index.bin
	Path string `json:"path"`

	// LoadOnStartup restores the persisted snapshot before the first
	// rebuild completes, so queries can be served immediately.
	// Default: true
	LoadOnStartup bool `json:"load_on_startup"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Default: info
	Level string `json:"level"`

	// Format is json or console.
	// Default: json
	Format string `json:"format"`

	// Caller includes caller file and line in log lines.
	Caller bool `json:"caller"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8344,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Store: StoreConfig{
			Path: "/data/platefinder",
		},
		Index: IndexConfig{
			Path:          "/data/platefinder-index.bin",
			LoadOnStartup: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Recommend: recommend.DefaultConfig(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("server.rate_limit_reqs must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("server.rate_limit_window must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Recommend == nil {
		return fmt.Errorf("recommend configuration is required")
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}
