// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: "timeouts",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.Server.RateLimitReqs = 0 },
			wantErr: "rate_limit_reqs",
		},
		{
			name: "rate limit zero allowed when disabled",
			mutate: func(c *Config) {
				c.Server.RateLimitDisabled = true
				c.Server.RateLimitReqs = 0
			},
		},
		{
			name:    "missing store path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: "store.path",
		},
		{
			name: "in-memory store needs no path",
			mutate: func(c *Config) {
				c.Store.InMemory = true
				c.Store.Path = ""
			},
		},
		{
			name:    "missing recommend config",
			mutate:  func(c *Config) { c.Recommend = nil },
			wantErr: "recommend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	// An isolated working directory so no stray config.yaml interferes.
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8344 {
		t.Errorf("Port = %d, want 8344", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v, want info/json", cfg.Logging)
	}
	if cfg.Recommend == nil {
		t.Fatal("Recommend config must be populated from defaults")
	}
	if cfg.Recommend.Diversity.Alpha != 0.7 {
		t.Errorf("Diversity.Alpha = %v, want 0.7", cfg.Recommend.Diversity.Alpha)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte("server:\n  port: 9000\nlogging:\n  level: debug\n")
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000 from the config file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug from the config file", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want the 15s default", cfg.Server.ReadTimeout)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte("server:\n  port: 9000\n")
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PLATEFINDER_SERVER_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100 (environment beats file)", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PLATEFINDER_SERVER_PORT", "99999")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with an out-of-range port must fail validation")
	}
}
