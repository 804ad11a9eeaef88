// Package config loads the process configuration from the environment
// (optionally seeded from a .env file by the cli package).
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"memory", "csv", "json", "sqlite", "postgres", "sheets"}

type Config struct {
	// HTTP Server
	Port           string        `koanf:"PORT"`
	RequestTimeout time.Duration `koanf:"REQUEST_TIMEOUT"`
	RateLimit      int           `koanf:"RATE_LIMIT_PER_MINUTE"`

	// Backend selection
	DataBackend  string `koanf:"DATA_BACKEND"`
	DataDir      string `koanf:"DATA_DIR"`
	DataFile     string `koanf:"DATA_FILE"`
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`

	Postgres PostgresConfig `koanf:",squash"`

	// Google Sheets
	GoogleSpreadsheetID      string `koanf:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `koanf:"GOOGLE_SHEET_NAME"`
	GoogleServiceAccountFile string `koanf:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `koanf:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	MirrorSheetName          string `koanf:"MIRROR_SHEET_NAME"`

	// AMQP change events; empty URL disables them
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`

	// Budget table and display
	BudgetsFile   string `koanf:"BUDGETS_FILE"`
	CurrencyLabel string `koanf:"CURRENCY_LABEL"`

	// Authentication
	AdminUsername     string        `koanf:"ADMIN_USERNAME"`
	AdminPassword     string        `koanf:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `koanf:"ADMIN_PASSWORD_HASH"`
	SessionTTL        time.Duration `koanf:"SESSION_TTL"`
	SecureCookies     bool          `koanf:"SECURE_COOKIES"`

	// Summary cache
	SummaryCacheSize int `koanf:"SUMMARY_CACHE_SIZE"`

	// Logging
	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN      string `koanf:"POSTGRES_DSN"`
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// Load reads the environment into a Config and fills in defaults. It
// does not validate.
func Load() (*Config, error) {
	k := koanf.New(".")
	// Empty variables are skipped so they fall back to defaults instead
	// of failing typed decoding.
	provider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Port, "8081")
	setDefault(&c.DataBackend, "memory")
	c.DataBackend = strings.ToLower(strings.TrimSpace(c.DataBackend))
	setDefault(&c.DataDir, "data")
	switch c.DataBackend {
	case "csv":
		setDefault(&c.DataFile, filepath.Join(c.DataDir, "transactions.csv"))
	case "json":
		setDefault(&c.DataFile, filepath.Join(c.DataDir, "transactions.json"))
	}
	setDefault(&c.SQLiteDBPath, filepath.Join(c.DataDir, "fundtracker.db"))
	setDefault(&c.GoogleSheetName, "Transactions")
	setDefault(&c.AMQPExchange, "fundtracker")
	setDefault(&c.AMQPQueue, "ledger_mirror")
	setDefault(&c.CurrencyLabel, "Rs")
	setDefault(&c.LogLevel, "info")
	setDefault(&c.LogFormat, "text")
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 7 * time.Second
	}
	if c.RateLimit == 0 {
		c.RateLimit = 60
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 12 * time.Hour
	}
	if c.SummaryCacheSize == 0 {
		c.SummaryCacheSize = 64
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "csv", "json":
		if c.DataFile == "" {
			errors = append(errors, fmt.Sprintf("DATA_FILE cannot be empty when using %s backend", c.DataBackend))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "") {
			errors = append(errors, "POSTGRES_DSN or POSTGRES_HOST and POSTGRES_DB are required when using postgres backend")
		}
		if c.Postgres.Port < 0 || c.Postgres.Port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid postgres port %d", c.Postgres.Port))
		}
	case "sheets":
		errors = append(errors, c.sheetsProblems()...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.BudgetsFile != "" {
		if _, err := os.Stat(c.BudgetsFile); err != nil {
			errors = append(errors, fmt.Sprintf("budgets file %s: %v", c.BudgetsFile, err))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.RequestTimeout < 100*time.Millisecond || c.RequestTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be between 100ms and 5m", c.RequestTimeout))
	}
	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateServer adds the checks only the web server needs.
func (c *Config) ValidateServer() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		errors = append(errors, "ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimit))
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the checks the mirror worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the mirror worker")
	}
	if c.MirrorSheetName == "" {
		errors = append(errors, "MIRROR_SHEET_NAME is required for the mirror worker")
	}
	errors = append(errors, c.sheetsProblems()...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(slices.Compact(errors), "\n- "))
	}
	return nil
}

func (c *Config) sheetsProblems() []string {
	var problems []string
	if c.GoogleSpreadsheetID == "" {
		problems = append(problems, "Google Spreadsheet ID is required when using sheets")
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		problems = append(problems, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets")
	} else if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return problems
}
