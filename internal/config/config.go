package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Split-plan billing modes
const (
	// SplitModeAnchored creates the two anchored subscriptions only.
	SplitModeAnchored = "anchored"

	// SplitModeUpfront charges one installment immediately, then creates
	// the two anchored subscriptions.
	SplitModeUpfront = "upfront"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	App         AppConfig
	Stripe      StripeConfig
	Monday      MondayConfig
	Billing     BillingConfig
	Diagnostics DiagnosticsConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Environment     string
	RateLimitRPS    float64
	RateLimitBurst  int
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// AppConfig describes the public marketing site
type AppConfig struct {
	// BaseURL builds the post-charge redirect and the portal return URL.
	BaseURL string
}

// StripeConfig contains payment provider configuration
type StripeConfig struct {
	SecretKey string
	Currency  string
}

// MondayConfig contains CRM configuration
type MondayConfig struct {
	APIURL     string
	APIKey     string
	APIVersion string
	BoardID    string
	Columns    MondayColumns
}

// MondayColumns are the board column ids written for every enrollment
type MondayColumns struct {
	Email          string
	Phone          string
	EnrolledDate   string
	ActiveSince    string
	Status         string
	CustomerID     string
	SubscriptionID string
	Church         string
	Plan           string
	PortalLink     string
}

// BillingConfig holds the switches that unify both confirm-payment variants
type BillingConfig struct {
	ClampCeiling      bool
	CancelCeiling     time.Time
	SplitMode         string
	IncludePortalLink bool
}

// DiagnosticsConfig guards the board snapshot endpoint
type DiagnosticsConfig struct {
	Secret string
}

// DefaultCancelCeiling is the last possible cancellation instant of the
// cohort: ten months after the April 1 2026 start.
var DefaultCancelCeiling = time.Date(2027, time.February, 1, 12, 0, 0, 0, time.UTC)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	ceiling, err := getEnvAsTime("BILLING_CANCEL_CEILING", DefaultCancelCeiling)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 5),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			BaseURL: strings.TrimRight(getEnv("APP_URL", getEnv("VITE_APP_URL", "http://localhost:5173")), "/"),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:  getEnv("STRIPE_CURRENCY", "usd"),
		},
		Monday: MondayConfig{
			APIURL:     getEnv("MONDAY_API_URL", "https://api.monday.com/v2"),
			APIKey:     getEnv("MONDAY_API_KEY", ""),
			APIVersion: getEnv("MONDAY_API_VERSION", "2024-01"),
			BoardID:    getEnv("MONDAY_BOARD_ID", ""),
			Columns: MondayColumns{
				Email:          getEnv("MONDAY_COLUMN_EMAIL", "email_mm0pqws"),
				Phone:          getEnv("MONDAY_COLUMN_PHONE", "phone_mm0p7k3y"),
				EnrolledDate:   getEnv("MONDAY_COLUMN_ENROLLED", "date_mm0ptyex"),
				ActiveSince:    getEnv("MONDAY_COLUMN_ACTIVE_SINCE", "date_mm0pa9c9"),
				Status:         getEnv("MONDAY_COLUMN_STATUS", "color_mm0p9d9c"),
				CustomerID:     getEnv("MONDAY_COLUMN_CUSTOMER", "text_mm0prvc5"),
				SubscriptionID: getEnv("MONDAY_COLUMN_SUBSCRIPTION", "text_mm0pj8hf"),
				Church:         getEnv("MONDAY_COLUMN_CHURCH", "text_mm0zpx5"),
				Plan:           getEnv("MONDAY_COLUMN_PLAN", "text_mm0zqd6"),
				PortalLink:     getEnv("MONDAY_COLUMN_PORTAL", "link_mm0zprt"),
			},
		},
		Billing: BillingConfig{
			ClampCeiling:      getEnvAsBool("BILLING_CLAMP_CEILING", true),
			CancelCeiling:     ceiling,
			SplitMode:         strings.ToLower(getEnv("BILLING_SPLIT_MODE", SplitModeUpfront)),
			IncludePortalLink: getEnvAsBool("BILLING_INCLUDE_PORTAL_LINK", true),
		},
		Diagnostics: DiagnosticsConfig{
			Secret: getEnv("MONDAY_DIAGNOSTIC_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY must be set")
	}

	if c.Monday.APIKey == "" || c.Monday.BoardID == "" {
		return fmt.Errorf("MONDAY_API_KEY and MONDAY_BOARD_ID must be set")
	}

	if _, err := strconv.ParseInt(c.Monday.BoardID, 10, 64); err != nil {
		return fmt.Errorf("MONDAY_BOARD_ID must be numeric: %q", c.Monday.BoardID)
	}

	if c.Billing.SplitMode != SplitModeAnchored && c.Billing.SplitMode != SplitModeUpfront {
		return fmt.Errorf("unsupported BILLING_SPLIT_MODE: %s", c.Billing.SplitMode)
	}

	return nil
}

// ChargeUpfrontForSplit reports whether semi-monthly plans take an
// immediate installment before their anchored subscriptions start.
func (b BillingConfig) ChargeUpfrontForSplit() bool {
	return b.SplitMode == SplitModeUpfront
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsTime is strict: a malformed ceiling must not silently fall back.
func getEnvAsTime(key string, defaultValue time.Time) (time.Time, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.Parse(time.RFC3339, valueStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339: %w", key, err)
	}
	return value.UTC(), nil
}
