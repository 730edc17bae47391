// Package config provides configuration loading using koanf.
// Precedence: environment variables over compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	Log      LogConfig      `koanf:"log"`
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Pool     PoolConfig     `koanf:"pool"`
	Triggers TriggersConfig `koanf:"triggers"`
	Messages MessagesConfig `koanf:"messages"`
	AWS      AWSConfig      `koanf:"aws"`
	OTEL     OTELConfig     `koanf:"otel"`
}

// LogConfig holds the structured logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "json" or "text"
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Port     int    `koanf:"port"`
	Hostname string `koanf:"hostname"` // external hostname used in token issuer URLs
}

// DataConfig holds the file-backed datastore configuration.
type DataConfig struct {
	Dir string `koanf:"dir"`
}

// PoolConfig holds pool registry defaults.
type PoolConfig struct {
	// DefaultID names a pool that exists without an explicit
	// CreateUserPool call; it is created lazily on first access. Empty
	// disables the behavior.
	DefaultID string `koanf:"default_id"`
}

// TriggersConfig names the Lambda function behind each hook. An empty
// name leaves the trigger disabled.
type TriggersConfig struct {
	CustomMessage      string `koanf:"custom_message"`
	PostAuthentication string `koanf:"post_authentication"`
	PostConfirmation   string `koanf:"post_confirmation"`
	PreSignUp          string `koanf:"pre_sign_up"`
	PreTokenGeneration string `koanf:"pre_token_generation"`
	UserMigration      string `koanf:"user_migration"`
}

// FunctionMap returns the configured trigger-to-function mapping,
// omitting unconfigured triggers.
func (t TriggersConfig) FunctionMap() map[string]string {
	m := make(map[string]string)
	for trigger, fn := range map[string]string{
		domain.TriggerCustomMessage:      t.CustomMessage,
		domain.TriggerPostAuthentication: t.PostAuthentication,
		domain.TriggerPostConfirmation:   t.PostConfirmation,
		domain.TriggerPreSignUp:          t.PreSignUp,
		domain.TriggerPreTokenGeneration: t.PreTokenGeneration,
		domain.TriggerUserMigration:      t.UserMigration,
	} {
		if fn != "" {
			m[trigger] = fn
		}
	}
	return m
}

// MessagesConfig selects the message delivery sink.
type MessagesConfig struct {
	// Delivery is "console" (log rendered messages) or "sns" (publish
	// SMS over the configured AWS endpoint; email still logs).
	Delivery string `koanf:"delivery"`
}

// AWSConfig holds the client settings shared by the Lambda and SNS
// integrations.
type AWSConfig struct {
	Region   string        `koanf:"region"`
	Endpoint string        `koanf:"endpoint"` // LocalStack endpoint for development
	Timeout  time.Duration `koanf:"timeout"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},

		Server: ServerConfig{
			Port: 9229,
		},
		Data: DataConfig{
			Dir: ".cognitolocal",
		},
		Pool: PoolConfig{
			DefaultID: "local",
		},
		Messages: MessagesConfig{
			Delivery: "console",
		},
		AWS: AWSConfig{
			Region:  "us-east-1",
			Timeout: domain.LambdaTimeout,
		},
		OTEL: OTELConfig{
			ServiceName: "cognitolocal",
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. Compiled defaults (lowest)
//
// The first underscore of an env var marks the section boundary, e.g.
// SERVER_PORT -> server.port, TRIGGERS_PRE_SIGN_UP ->
// triggers.pre_sign_up.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.Replace(strings.ToLower(s), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	return cfg, nil
}

// IssuerHost returns the external base URL used as the token issuer and
// JWKS host.
func (c *Config) IssuerHost() string {
	if c.Server.Hostname != "" {
		return c.Server.Hostname
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}
