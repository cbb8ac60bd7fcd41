package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"moneta/internal/core"
	"moneta/internal/recurring"
)

// Ledger backends selectable by the CLI.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Worker
	HealthInterval time.Duration

	// CLI ledger
	LedgerBackend   string
	LedgerAPIURL    string
	LedgerEmail     string
	LedgerPassword  string
	LedgerDBPath    string
	Currency        string
	UndoWindow      time.Duration
	RecurringPolicy string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneta.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", time.Hour),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneta"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		HealthInterval: getEnvDuration("HEALTH_LOG_INTERVAL", time.Minute),

		LedgerBackend:   strings.ToLower(getEnv("LEDGER_BACKEND", BackendLocal)),
		LedgerAPIURL:    getEnv("LEDGER_API_URL", "http://localhost:8080"),
		LedgerEmail:     getEnv("LEDGER_EMAIL", ""),
		LedgerPassword:  getEnv("LEDGER_PASSWORD", ""),
		LedgerDBPath:    getEnv("LEDGER_DB_PATH", "./data/moneta-cli.db"),
		Currency:        strings.ToUpper(getEnv("CURRENCY", core.DefaultCurrency)),
		UndoWindow:      getEnvDuration("UNDO_WINDOW", 0),
		RecurringPolicy: getEnv("RECURRING_POLICY", recurring.PolicyClient),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate checks the settings shared by every binary and returns all
// problems at once.
func (c *Config) Validate() error {
	var errs []string
	c.validateCommon(&errs)
	return joinErrors(errs)
}

// ValidateServer adds the API server requirements to Validate.
func (c *Config) ValidateServer() error {
	var errs []string
	c.validateCommon(&errs)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if err := ensureDir(c.SQLiteDBPath); err != nil {
		errs = append(errs, err.Error())
	}

	if len(c.JWTSecret) < 16 {
		errs = append(errs, "JWT_SECRET must be set and at least 16 characters long")
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be positive", c.TokenTTL))
	}

	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	return joinErrors(errs)
}

// ValidateWorker adds the mirror worker requirements to Validate.
func (c *Config) ValidateWorker() error {
	var errs []string
	c.validateCommon(&errs)

	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required by the worker")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
		errs = append(errs, "Google service account credentials are required when GOOGLE_SPREADSHEET_ID is set")
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}
	if c.HealthInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid health interval %v: must be at least 1 second", c.HealthInterval))
	}

	return joinErrors(errs)
}

// ValidateCLI adds the ledger backend requirements to Validate.
func (c *Config) ValidateCLI() error {
	var errs []string
	c.validateCommon(&errs)

	switch c.LedgerBackend {
	case BackendRemote:
		if u, err := url.Parse(c.LedgerAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid ledger API URL '%s'", c.LedgerAPIURL))
		}
	case BackendLocal:
		if c.LedgerDBPath == "" {
			errs = append(errs, "ledger database path cannot be empty when using local backend")
		} else if err := ensureDir(c.LedgerDBPath); err != nil {
			errs = append(errs, err.Error())
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("invalid ledger backend '%s': must be one of %v",
			c.LedgerBackend, []string{BackendRemote, BackendLocal, BackendMemory}))
	}

	if _, ok := core.LookupCurrency(c.Currency); !ok {
		errs = append(errs, fmt.Sprintf("unsupported currency '%s'", c.Currency))
	}
	if c.UndoWindow < 0 {
		errs = append(errs, fmt.Sprintf("invalid undo window %v: must not be negative", c.UndoWindow))
	}
	if _, err := recurring.PolicyByName(c.RecurringPolicy); err != nil {
		errs = append(errs, err.Error())
	}

	return joinErrors(errs)
}

func (c *Config) validateCommon(errs *[]string) {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		*errs = append(*errs, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		*errs = append(*errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			*errs = append(*errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			*errs = append(*errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			*errs = append(*errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			*errs = append(*errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}
}

// ensureDir creates the parent directory of a database path.
func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err)
		}
	}
	return nil
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
