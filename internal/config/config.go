// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, GOTOURS_-prefixed environment variables, and command-line
// flags, in increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// GOTOURS_DATABASE_URL maps to the database_url key.
const EnvPrefix = "GOTOURS_"

// Config holds all runtime configuration for the service.
type Config struct {
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	BaseURL     string `koanf:"base_url"`
	DatabaseURL string `koanf:"database_url"`

	SigningSecret     string        `koanf:"signing_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	ResetTokenTTL     time.Duration `koanf:"reset_token_ttl"`
	HashMaxConcurrent int           `koanf:"hash_max_concurrent"`

	LogFormat string `koanf:"log_format"`
	LogLevel  string `koanf:"log_level"`

	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`
	MailFrom     string `koanf:"mail_from"`
}

// Default returns the configuration defaults. DatabaseURL and SigningSecret
// have no defaults and must be provided.
func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		MetricsAddr:   "127.0.0.1:9100",
		BaseURL:       "http://localhost:8080",
		TokenTTL:      24 * time.Hour,
		ResetTokenTTL: 10 * time.Minute,
		LogFormat:     "json",
		LogLevel:      "info",
		SMTPPort:      587,
		MailFrom:      "GoTours <noreply@gotours.example>",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), environment variables, and flags (skipped when nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		// Flag names use dashes; config keys use underscores.
		flagProvider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value constraints.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}
	if c.SigningSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("signing_secret is required")
	}
	if len(c.SigningSecret) < 32 {
		return oops.Code("CONFIG_INVALID").Errorf("signing_secret must be at least 32 bytes, got %d", len(c.SigningSecret))
	}
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.ResetTokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("reset_token_ttl must be positive, got %s", c.ResetTokenTTL)
	}
	if c.HashMaxConcurrent < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("hash_max_concurrent must not be negative, got %d", c.HashMaxConcurrent)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	return nil
}
