// Package config provides configuration management functionality.
//
// All configuration is read from environment variables (optionally via a
// .env file) into an explicit Config struct that is passed into component
// constructors. There is no ambient global configuration state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// SourceConfig describes one configured price source. Lower priority numbers
// are tried first.
type SourceConfig struct {
	Name       string
	Enabled    bool
	Priority   int
	RetryCount int
	RetryDelay time.Duration
}

// EmailConfig holds SMTP settings for the summary notification.
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	From     string
	Password string
	To       string
}

// BackupConfig holds settings for post-run database uploads to S3-compatible
// storage. Endpoint is optional and allows R2/MinIO style endpoints.
type BackupConfig struct {
	Enabled         bool
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Keep            int // number of backups to retain
}

// Config holds application configuration
type Config struct {
	DataDir     string
	DBPath      string
	LogLevel    string
	Port        int
	Schedule    string // cron expression for daemon mode
	HTTPTimeout time.Duration

	BaselineMode domain.BaselineMode

	Sources               []SourceConfig
	EnableFallbackSources bool
	ValidatePrices        bool
	MinPrice              decimal.Decimal
	MaxPrice              decimal.Decimal

	Email  EmailConfig
	Backup BackupConfig
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PORTWATCH_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	minPrice, err := getEnvAsDecimal("MIN_PRICE", decimal.Zero)
	if err != nil {
		return nil, err
	}
	maxPrice, err := getEnvAsDecimal("MAX_PRICE", decimal.NewFromInt(1000000))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:     absDataDir,
		DBPath:      filepath.Join(absDataDir, "portwatch.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnvAsInt("PORT", 8090),
		Schedule:    getEnv("RUN_SCHEDULE", "0 0 18 * * MON-FRI"),
		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		BaselineMode: domain.BaselineMode(getEnv("BASELINE_MODE", string(domain.BaselineCostBasis))),

		Sources:               loadSources(),
		EnableFallbackSources: getEnvAsBool("ENABLE_FALLBACK_SOURCES", true),
		ValidatePrices:        getEnvAsBool("VALIDATE_PRICES", true),
		MinPrice:              minPrice,
		MaxPrice:              maxPrice,

		Email: EmailConfig{
			Enabled:  getEnvAsBool("ENABLE_EMAIL_NOTIFICATIONS", false),
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			From:     getEnv("SMTP_FROM", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			To:       getEnv("SMTP_TO", ""),
		},
		Backup: BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Prefix:          getEnv("BACKUP_PREFIX", "portwatch"),
			Region:          getEnv("BACKUP_REGION", "auto"),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Keep:            getEnvAsInt("BACKUP_KEEP", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSources builds the price source list from the environment. Defaults
// mirror the historical setup: Yahoo Finance first with 3 attempts, Google
// Finance as fallback with 2.
func loadSources() []SourceConfig {
	retryDelay := getEnvAsDuration("SOURCE_RETRY_DELAY", time.Second)

	sources := []SourceConfig{
		{
			Name:       domain.SourceYahoo,
			Enabled:    getEnvAsBool("YAHOO_ENABLED", true),
			Priority:   getEnvAsInt("YAHOO_PRIORITY", 1),
			RetryCount: getEnvAsInt("YAHOO_RETRY_COUNT", 3),
			RetryDelay: retryDelay,
		},
		{
			Name:       domain.SourceGoogle,
			Enabled:    getEnvAsBool("GOOGLE_ENABLED", true),
			Priority:   getEnvAsInt("GOOGLE_PRIORITY", 2),
			RetryCount: getEnvAsInt("GOOGLE_RETRY_COUNT", 2),
			RetryDelay: retryDelay,
		},
	}

	enabled := sources[:0]
	for _, s := range sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})

	return enabled
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no price sources enabled")
	}
	switch c.BaselineMode {
	case domain.BaselineCostBasis, domain.BaselinePriorSnapshot:
	default:
		return fmt.Errorf("invalid BASELINE_MODE %q", c.BaselineMode)
	}
	if c.ValidatePrices && c.MaxPrice.LessThanOrEqual(c.MinPrice) {
		return fmt.Errorf("MAX_PRICE must be greater than MIN_PRICE")
	}
	if c.Email.Enabled && (c.Email.From == "" || c.Email.To == "") {
		return fmt.Errorf("email notifications enabled but SMTP_FROM/SMTP_TO not set")
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup enabled but BACKUP_BUCKET not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal in %s: %w", key, err)
	}
	return d, nil
}
