// ABOUTME: Configuration loading and parsing for payday-bot
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names accepted in the environment field.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store driver names accepted in session.driver.
const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// DefaultRange is the sheet range read when sheets.range is not set.
const DefaultRange = "Payouts!A2:F"

// DefaultSessionTTL is applied when session.ttl is not set.
const DefaultSessionTTL = 24 * time.Hour

// Config represents the complete payday-bot configuration
type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Telegram    TelegramConfig `yaml:"telegram"`
	Session     SessionConfig  `yaml:"session"`
	Sheets      SheetsConfig   `yaml:"sheets"`
	Logging     LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the webhook HTTP server configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TelegramConfig holds Bot API credentials and webhook settings
type TelegramConfig struct {
	Token         string   `yaml:"token"`
	WebhookURL    string   `yaml:"webhook_url"`
	WebhookSecret string   `yaml:"webhook_secret"`
	AllowedUsers  []string `yaml:"allowed_users"`
}

// SessionConfig holds session store selection and driver settings
type SessionConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"-"`
	Redis  RedisConfig   `yaml:"redis"`
	SQLite SQLiteConfig  `yaml:"sqlite"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// RedisConfig holds connection settings for the redis session driver
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SQLiteConfig holds settings for the sqlite session driver
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SheetsConfig holds the payroll spreadsheet location and credentials.
// CredentialsJSON carries the service-account key inline (set it via ${VAR}
// expansion); CredentialsFile points at a key file on disk and is the
// development fallback.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Range           string `yaml:"range"`
	CredentialsJSON string `yaml:"credentials_json"`
	CredentialsFile string `yaml:"credentials_file"`
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

	cfg.applyDefaults()

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in the fields a deployment may omit.
func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Session.Driver == "" {
		c.Session.Driver = DriverRedis
	}
	if c.Sheets.Range == "" {
		c.Sheets.Range = DefaultRange
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
//
// The spreadsheet ID is deliberately not required: without it lookups degrade
// to a per-request failure reply, so the bot can start before the sheet is
// provisioned.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}

	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	// Without the bot credential nothing downstream can work
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}

	switch c.Session.Driver {
	case DriverRedis:
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required for the redis driver")
		}
	case DriverSQLite:
		if c.Session.SQLite.Path == "" {
			return fmt.Errorf("session.sqlite.path is required for the sqlite driver")
		}
	case DriverMemory:
		// Process-local state does not survive the stateless execution model
		if c.IsProduction() {
			return fmt.Errorf("session.driver %q is not durable; use redis in production", DriverMemory)
		}
	default:
		return fmt.Errorf("session.driver must be one of %q, %q, %q", DriverRedis, DriverSQLite, DriverMemory)
	}

	// The credentials file is a local-development convenience; production
	// deployments inject the key inline so no key file lands on disk.
	if c.IsProduction() && c.Sheets.CredentialsJSON == "" {
		return fmt.Errorf("sheets.credentials_json is required in production (credentials_file is development-only)")
	}

	return nil
}

// IsProduction reports whether the production deployment rules apply.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	cfg.Session.TTL = DefaultSessionTTL

	if cfg.Session.TTLRaw != "" {
		ttl, err := time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session.ttl %q: %w", cfg.Session.TTLRaw, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("session.ttl must be positive, got %q", cfg.Session.TTLRaw)
		}
		cfg.Session.TTL = ttl
	}

	return nil
}
