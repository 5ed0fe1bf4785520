// ABOUTME: Configuration loading and parsing for meal-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when optional fields are omitted.
const (
	DefaultSessionTimeout = 15 * time.Second
	DefaultDedupeTTL      = 5 * time.Minute
)

// Config represents the complete meal-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Messenger MessengerConfig `yaml:"messenger"`
	NEIS      NEISConfig      `yaml:"neis"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// MessengerConfig holds the webhook verification token and the page access
// token used for outbound delivery
type MessengerConfig struct {
	VerifyToken string `yaml:"verify_token"`
	AccessToken string `yaml:"access_token"`
}

// NEISConfig holds the NEIS open API settings
type NEISConfig struct {
	APIKey string `yaml:"api_key"`
}

// SessionsConfig holds session timing configuration
type SessionsConfig struct {
	Timeout   time.Duration `yaml:"-"`
	DedupeTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw   string `yaml:"timeout"`
	DedupeTTLRaw string `yaml:"dedupe_ttl"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Messenger.VerifyToken == "" {
		return fmt.Errorf("messenger.verify_token is required")
	}
	if c.Messenger.AccessToken == "" {
		return fmt.Errorf("messenger.access_token is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Sessions.Timeout = DefaultSessionTimeout
	if cfg.Sessions.TimeoutRaw != "" {
		cfg.Sessions.Timeout, err = time.ParseDuration(cfg.Sessions.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.timeout %q: %w", cfg.Sessions.TimeoutRaw, err)
		}
	}

	cfg.Sessions.DedupeTTL = DefaultDedupeTTL
	if cfg.Sessions.DedupeTTLRaw != "" {
		cfg.Sessions.DedupeTTL, err = time.ParseDuration(cfg.Sessions.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.dedupe_ttl %q: %w", cfg.Sessions.DedupeTTLRaw, err)
		}
	}

	return nil
}
