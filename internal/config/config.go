// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Defaults for optional settings.
const (
	DefaultRedisCatalogKey    = "tripfund:destinations"
	DefaultNATSSubjectPrefix  = "tripfund.loans"
	DefaultExchangeRateURL    = "https://api.frankfurter.app"
	DefaultExchangeCacheTTL   = time.Hour
	DefaultExchangeTimeout    = 5 * time.Second
	DefaultBaseCurrency       = "INR"
	DefaultOfferReminderAfter = 24 * time.Hour
)

// OpenTelemetry exporter choices for OTEL_EXPORTER.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken     string
	DatabaseURL          string
	GeminiAPIKey         string
	LogLevel             string
	LogFormat            string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	RedisAddr         string
	RedisCatalogKey   string
	NATSURL           string
	NATSSubjectPrefix string

	ExchangeRateBaseURL string
	ExchangeRateTimeout time.Duration
	ExchangeCacheTTL    time.Duration
	BaseCurrency        string

	LoanAnnualRate    decimal.Decimal
	LoanProcessingFee decimal.Decimal
	AnalysisDelay     time.Duration
	OTPDeliveryDelay  time.Duration
	OTPAutofillDelay  time.Duration
	OTPVerifyDelay    time.Duration

	// Demo financial snapshot handed to every journey; there is no core-banking integration.
	DemoLiquidCash    decimal.Decimal
	DemoImmediateNeed decimal.Decimal
	DemoLongTermGoal  decimal.Decimal
	DefaultPersona    string

	OfferReminderEnabled bool
	OfferReminderAfter   time.Duration

	OTelExporter string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        envString("LOG_FORMAT", "console"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisCatalogKey:  envString("REDIS_CATALOG_KEY", DefaultRedisCatalogKey),
		NATSURL:          os.Getenv("NATS_URL"),
		DefaultPersona:   os.Getenv("DEFAULT_PERSONA"),

		NATSSubjectPrefix:   envString("NATS_SUBJECT_PREFIX", DefaultNATSSubjectPrefix),
		ExchangeRateBaseURL: envString("EXCHANGE_API_URL", DefaultExchangeRateURL),
		ExchangeRateTimeout: envDuration("EXCHANGE_API_TIMEOUT", DefaultExchangeTimeout),
		ExchangeCacheTTL:    envDuration("EXCHANGE_CACHE_TTL", DefaultExchangeCacheTTL),
		BaseCurrency:        strings.ToUpper(envString("BASE_CURRENCY", DefaultBaseCurrency)),

		LoanAnnualRate:    envDecimal("LOAN_ANNUAL_RATE", decimal.RequireFromString("10.49")),
		LoanProcessingFee: envDecimal("LOAN_PROCESSING_FEE", decimal.NewFromInt(1499)),
		AnalysisDelay:     envDuration("ANALYSIS_DELAY", 2*time.Second),
		OTPDeliveryDelay:  envDuration("OTP_DELIVERY_DELAY", 2*time.Second),
		OTPAutofillDelay:  envDuration("OTP_AUTOFILL_DELAY", 1500*time.Millisecond),
		OTPVerifyDelay:    envDuration("OTP_VERIFY_DELAY", 1200*time.Millisecond),

		DemoLiquidCash:    envDecimal("DEMO_LIQUID_CASH", decimal.NewFromInt(1240500)),
		DemoImmediateNeed: envDecimal("DEMO_IMMEDIATE_NEED", decimal.NewFromInt(85000)),
		DemoLongTermGoal:  envDecimal("DEMO_LONG_TERM_GOAL", decimal.NewFromInt(2500000)),

		OfferReminderEnabled: os.Getenv("OFFER_REMINDER_ENABLED") == "true",
		OfferReminderAfter:   envDuration("OFFER_REMINDER_AFTER", DefaultOfferReminderAfter),
	}

	switch exporter := strings.ToLower(os.Getenv("OTEL_EXPORTER")); exporter {
	case ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC:
		cfg.OTelExporter = exporter
	default:
		cfg.OTelExporter = ExporterNone
	}

	cfg.WhitelistedUserIDs = parseUserIDs(os.Getenv("WHITELISTED_USER_IDS"))
	cfg.WhitelistedUsernames = parseUsernames(os.Getenv("WHITELISTED_USERNAMES"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseUserIDs reads a comma-separated list of Telegram IDs, skipping blanks and junk.
func parseUserIDs(raw string) []int64 {
	var ids []int64
	for field := range strings.SplitSeq(raw, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseUsernames(raw string) []string {
	var names []string
	for field := range strings.SplitSeq(raw, ",") {
		if name := strings.TrimPrefix(strings.TrimSpace(field), "@"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envDuration parses a Go duration. Missing, invalid or negative values yield def.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// envDecimal parses a non-negative decimal. Missing or invalid values yield def.
func envDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}

func (c *Config) validate() error {
	var errs []string
	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required")
	}
	if !c.LoanAnnualRate.IsPositive() {
		errs = append(errs, "LOAN_ANNUAL_RATE must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsUserWhitelisted reports whether the user may talk to the bot, by ID or by
// case-insensitive username.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}
	username = strings.TrimPrefix(username, "@")
	if username == "" {
		return false
	}
	return slices.ContainsFunc(c.WhitelistedUsernames, func(allowed string) bool {
		return strings.EqualFold(allowed, username)
	})
}
