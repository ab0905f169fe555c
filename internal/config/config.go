package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	// Upstream storefront backend that mints payment intents.
	IntentBackendURL string
	IntentTimeout    time.Duration

	// Card provider credentials. The publishable key is exposed to clients,
	// the secret key never leaves the server.
	StripeSecretKey      string
	StripePublishableKey string
	ConfirmTimeout       time.Duration

	// Where successful checkouts land.
	SuccessBaseURL string

	SessionTTL time.Duration

	// Optional storefront session token verification (shared sign-in with
	// the main site). Checkout works without it.
	SessionTokenSecret string
	SessionTokenIssuer string
	SessionCookieName  string

	RateLimitWindow time.Duration
	RateLimitMax    int

	ReceiptEmailEnabled bool
	ReceiptEmailFrom    string
	WorkerConcurrency   int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:               valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                 valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:             k.String("REDIS_URL"),
		CORSAllowedOrigins:   splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		IntentBackendURL:     k.String("INTENT_BACKEND_URL"),
		IntentTimeout:        parseDuration(k.String("INTENT_TIMEOUT"), "30s"),
		StripeSecretKey:      k.String("STRIPE_SECRET_KEY"),
		StripePublishableKey: k.String("STRIPE_PUBLISHABLE_KEY"),
		ConfirmTimeout:       parseDuration(k.String("CONFIRM_TIMEOUT"), "30s"),
		SuccessBaseURL:       valueOrDefault(k.String("SUCCESS_BASE_URL"), "https://checkout.yesviral.com/checkout/success"),
		SessionTTL:           parseDuration(k.String("CHECKOUT_SESSION_TTL"), "1h"),
		SessionTokenSecret:   k.String("SESSION_TOKEN_SECRET"),
		SessionTokenIssuer:   valueOrDefault(k.String("SESSION_TOKEN_ISSUER"), "yesviral.com"),
		SessionCookieName:    valueOrDefault(k.String("SESSION_COOKIE_NAME"), "yv_session"),
		RateLimitWindow:      parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:         intOrDefault(k.String("RATE_LIMIT_MAX"), 30),
		ReceiptEmailEnabled:  parseBool(k.String("RECEIPT_EMAIL_ENABLED")),
		ReceiptEmailFrom:     valueOrDefault(k.String("RECEIPT_EMAIL_FROM"), "orders@yesviral.com"),
		WorkerConcurrency:    intOrDefault(k.String("WORKER_CONCURRENCY"), 4),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.IntentBackendURL == "" {
		return nil, errors.New("INTENT_BACKEND_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
