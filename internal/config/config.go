// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

// Package config loads RunCoach settings from defaults, a YAML file, the
// environment and command-line flags.
package config

import (
	"net/url"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/runcoach/runcoach/internal/logging"
)

// DefaultSecretKey is the placeholder signing key. It must be replaced
// outside development.
const DefaultSecretKey = "change-me-in-production"

const redactedValue = "[REDACTED]"

// Accepted range for auth.bcrypt_cost.
const (
	MinBcryptCost = 10
	MaxBcryptCost = bcrypt.MaxCost
)

// Config is the full application configuration.
type Config struct {
	Database     DatabaseConfig     `koanf:"database" json:"database" yaml:"database"`
	Auth         AuthConfig         `koanf:"auth" json:"auth" yaml:"auth"`
	HTTP         HTTPConfig         `koanf:"http" json:"http" yaml:"http"`
	Metrics      MetricsConfig      `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Log          LogConfig          `koanf:"log" json:"log" yaml:"log"`
	Debug        bool               `koanf:"debug" json:"debug" yaml:"debug" jsonschema:"description=Enable debug logging"`
	Integrations IntegrationsConfig `koanf:"integrations" json:"integrations" yaml:"integrations"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL            string        `koanf:"url" json:"url" yaml:"url" jsonschema:"minLength=1,description=PostgreSQL connection URL"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout" jsonschema:"description=How long to retry the initial connection"`
}

// AuthConfig configures password hashing and session signing.
type AuthConfig struct {
	SecretKey  string `koanf:"secret_key" json:"secret_key" yaml:"secret_key" jsonschema:"minLength=1,description=Key used to sign session tokens"`
	BcryptCost int    `koanf:"bcrypt_cost" json:"bcrypt_cost" yaml:"bcrypt_cost" jsonschema:"minimum=10,maximum=31"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" json:"addr" yaml:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins" json:"cors_origins" yaml:"cors_origins" jsonschema:"description=Allowed CORS origins; * allows any"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Format string `koanf:"format" json:"format" yaml:"format" jsonschema:"enum=json,enum=text"`
}

// IntegrationsConfig holds credentials for third-party services. They are
// loaded and redacted but not used by the auth core.
type IntegrationsConfig struct {
	AnthropicAPIKey    string `koanf:"anthropic_api_key" json:"anthropic_api_key" yaml:"anthropic_api_key"`
	StravaClientID     string `koanf:"strava_client_id" json:"strava_client_id" yaml:"strava_client_id"`
	StravaClientSecret string `koanf:"strava_client_secret" json:"strava_client_secret" yaml:"strava_client_secret"`
	ResendAPIKey       string `koanf:"resend_api_key" json:"resend_api_key" yaml:"resend_api_key"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			URL:            "postgres://localhost/runcoach?sslmode=disable",
			ConnectTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			SecretKey:  DefaultSecretKey,
			BcryptCost: 12,
		},
		HTTP: HTTPConfig{
			Addr:            ":8000",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: logging.FormatJSON},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.Database.URL == "":
		return invalid("database.url", "database url is required")
	case c.Database.ConnectTimeout <= 0:
		return invalid("database.connect_timeout", "connect timeout must be positive")
	case c.Auth.SecretKey == "":
		return invalid("auth.secret_key", "secret key is required")
	case c.Auth.BcryptCost < MinBcryptCost || c.Auth.BcryptCost > MaxBcryptCost:
		return oops.Code("CONFIG_INVALID").
			With("field", "auth.bcrypt_cost").
			Errorf("bcrypt cost must be between %d and %d, got %d", MinBcryptCost, MaxBcryptCost, c.Auth.BcryptCost)
	case c.HTTP.Addr == "":
		return invalid("http.addr", "http address is required")
	case c.HTTP.ShutdownTimeout <= 0:
		return invalid("http.shutdown_timeout", "shutdown timeout must be positive")
	case !logging.ValidFormat(c.Log.Format):
		return oops.Code("CONFIG_INVALID").
			With("field", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

func invalid(field, msg string) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf("%s", msg)
}

// Warnings lists settings that are valid but unsafe.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Auth.SecretKey == DefaultSecretKey && !c.Debug {
		warnings = append(warnings, "auth.secret_key is the built-in default; session tokens can be forged")
	}
	return warnings
}

// Redacted returns a copy with secrets masked, suitable for display.
func (c Config) Redacted() Config {
	c.Database.URL = redactURL(c.Database.URL)
	c.Auth.SecretKey = redact(c.Auth.SecretKey)
	c.Integrations.AnthropicAPIKey = redact(c.Integrations.AnthropicAPIKey)
	c.Integrations.StravaClientSecret = redact(c.Integrations.StravaClientSecret)
	c.Integrations.ResendAPIKey = redact(c.Integrations.ResendAPIKey)
	c.HTTP.CORSOrigins = append([]string(nil), c.HTTP.CORSOrigins...)
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redactedValue
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redact(raw)
	}
	return u.Redacted()
}
