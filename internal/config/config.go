// Package config loads the client configuration: defaults, overlaid by an
// optional YAML file, overlaid by environment variables. RBAC_API_URL is the
// one variable most deployments set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	apiURLEnvVar     = "RBAC_API_URL"
	passphraseEnvVar = "RBAC_TOKEN_PASSPHRASE"
	logLevelEnvVar   = "RBAC_LOG_LEVEL"
)

// Config is the root configuration for the admin client.
type Config struct {
	// APIURL is the base URL of the RBAC API.
	APIURL string `yaml:"api_url"`

	// TokenFile and IdentityFile are where session state is persisted.
	TokenFile    string `yaml:"token_file"`
	IdentityFile string `yaml:"identity_file"`

	// TokenPassphrase, when set, switches token persistence to encrypted
	// storage. Normally supplied via RBAC_TOKEN_PASSPHRASE rather than the
	// file.
	TokenPassphrase string `yaml:"token_passphrase"`

	// RequestTimeoutSeconds bounds every API call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	// RateLimitRPS throttles outbound requests when > 0.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	LogLevel string `yaml:"log_level"`
}

// New returns a Config with defaults applied.
func New() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	stateDir := filepath.Join(home, ".config", "rbacadmin")

	return Config{
		APIURL:                "http://localhost:3000/api",
		TokenFile:             filepath.Join(stateDir, "tokens.json"),
		IdentityFile:          filepath.Join(stateDir, "identity.json"),
		RequestTimeoutSeconds: 30,
		RateLimitBurst:        5,
		LogLevel:              "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path when it
// exists, and environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrap(err, "[config.Load] read file")
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.Wrap(err, "[config.Load] parse yaml")
			}
		}
	}

	cfg.APIURL = GetEnv(apiURLEnvVar, cfg.APIURL)
	cfg.TokenPassphrase = GetEnv(passphraseEnvVar, cfg.TokenPassphrase)
	cfg.LogLevel = GetEnv(logLevelEnvVar, cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "rbacadmin", "config.yaml")
}

// RequestTimeout returns the configured timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) validate() error {
	if c.APIURL == "" {
		return errors.New("[config] api_url is required")
	}
	if c.TokenFile == "" {
		return errors.New("[config] token_file is required")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("[config] request_timeout_seconds must be positive, got %d", c.RequestTimeoutSeconds)
	}
	return nil
}

// GetEnv reads an environment variable, falling back to defaultValue when
// unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
