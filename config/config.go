package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Billing service
	BillingAPIURL      string        // default: http://billing-api:3000
	BillingAPIKey      string        // sent as X-API-Key
	TenantID           string        // required, stamped on every check and record
	BudgetCheckTimeout time.Duration // default: 3s
	AccountingTimeout  time.Duration // default: 10s

	// Pricing
	PricingFile string // optional YAML, built-in table when empty

	// Upstream model endpoint (OpenAI-compatible)
	UpstreamURL    string // default: http://litellm:4000/v1
	UpstreamAPIKey string

	// Database
	PostgresDSN   string
	RunMigrations bool // apply embedded migrations at startup

	// Cache
	RedisAddr string

	// Observability
	LogLevel             string // default: info
	OTELExporterType     string // "stdout", "otlp" or "none"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Rate Limiting
	DefaultRateLimitTPM int64 // tokens per minute, default: 100000
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		BillingAPIURL:        getEnv("BILLING_API_URL", "http://billing-api:3000"),
		BillingAPIKey:        os.Getenv("BILLING_API_KEY"),
		TenantID:             os.Getenv("TENANT_ID"),
		PricingFile:          os.Getenv("PRICING_FILE"),
		UpstreamURL:          getEnv("UPSTREAM_URL", "http://litellm:4000/v1"),
		UpstreamAPIKey:       os.Getenv("UPSTREAM_API_KEY"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RunMigrations:        getEnv("RUN_MIGRATIONS", "false") == "true",
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.BudgetCheckTimeout, err = getDuration("BUDGET_CHECK_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.AccountingTimeout, err = getDuration("ACCOUNTING_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// Rate Limiting Default
	tpmStr := getEnv("DEFAULT_RATE_LIMIT_TPM", "100000")
	tpm, err := strconv.ParseInt(tpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_RATE_LIMIT_TPM: %w", err)
	}
	cfg.DefaultRateLimitTPM = tpm

	// Validation
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("TENANT_ID is required")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	if cfg.DefaultRateLimitTPM <= 0 {
		return nil, fmt.Errorf("DEFAULT_RATE_LIMIT_TPM must be positive, got %d", cfg.DefaultRateLimitTPM)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}
