package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// HTTP Server
	Port               string     `env:"PORT" envDefault:"8081"`
	LogLevel           slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string     `env:"LOG_FORMAT" envDefault:"text"`
	RateLimitPerMinute int        `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	CORSAllowedOrigins []string   `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Goal Store
	DataBackend       string `env:"DATA_BACKEND" envDefault:"file"`
	DataDir           string `env:"DATA_DIR" envDefault:"./data"`
	SQLiteDBPath      string `env:"SQLITE_DB_PATH" envDefault:"./data/wealthwise.db"`
	StoreKey          string `env:"STORE_KEY" envDefault:"financialGoals"`
	ResetCorruptStore bool   `env:"RESET_CORRUPT_STORE" envDefault:"true"`
	LockCompleted     bool   `env:"LOCK_COMPLETED_GOALS" envDefault:"false"`

	// Advice
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIModel     string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL"`
	AdviceURL       string        `env:"ADVICE_URL" envDefault:"http://localhost:8081"`
	AdviceTimeout   time.Duration `env:"ADVICE_TIMEOUT" envDefault:"0s"`
	AdviceCacheSize int           `env:"ADVICE_CACHE_SIZE" envDefault:"256"`
	AdviceCacheTTL  time.Duration `env:"ADVICE_CACHE_TTL" envDefault:"1h"`
	AdviceMaxChars  int           `env:"ADVICE_MAX_CHARS" envDefault:"400"`
	AdviceCurrency  string        `env:"ADVICE_CURRENCY" envDefault:"₹"`
	AdviceRegion    string        `env:"ADVICE_REGION" envDefault:"Indian"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"wealthwise"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"goal_events"`

	// Google Sheets export
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `env:"GOOGLE_SHEET_NAME" envDefault:"Goals"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
}

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"memory", "file", "sqlite"}

// Load parses the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// AdviceEnabled reports whether a text-generation provider is configured.
func (c *Config) AdviceEnabled() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

// AMQPEnabled reports whether goal events should be published.
func (c *Config) AMQPEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if f := strings.ToLower(strings.TrimSpace(c.LogFormat)); f != "" && f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	if strings.TrimSpace(c.StoreKey) == "" {
		errors = append(errors, "store key cannot be empty")
	}

	switch c.DataBackend {
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.AdviceTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid advice timeout %v: must not be negative", c.AdviceTimeout))
	}
	if c.AdviceCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid advice cache size %d: must not be negative", c.AdviceCacheSize))
	}
	if c.AdviceCacheSize > 0 && c.AdviceCacheTTL <= 0 {
		errors = append(errors, "advice cache TTL must be positive when the cache is enabled")
	}
	if c.AdviceMaxChars < 50 {
		errors = append(errors, fmt.Sprintf("invalid advice max chars %d: must be at least 50", c.AdviceMaxChars))
	}
	if c.AdviceURL != "" {
		if u, err := url.Parse(c.AdviceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid advice URL '%s': must be an http(s) URL", c.AdviceURL))
		}
	}
	if c.AdviceEnabled() && strings.TrimSpace(c.OpenAIModel) == "" {
		errors = append(errors, "OpenAI model cannot be empty when an API key is provided")
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

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid CORS origin '%s'", origin))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateExport checks the settings the export worker needs on top of Validate.
func (c *Config) ValidateExport() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the export worker")
	}
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("export configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
