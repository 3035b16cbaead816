package config

import (
	"log"
	"os"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL   string
	RedisURL      string
	SessionSecret string
	EncryptionKey string
	Env           string
	Port          string

	LogLevel  string
	LogFormat string

	// Night's Watchman batch settings
	WatchmanSchedule string // cron expression for the nightly scan
	WatchmanTimezone string // IANA timezone used for "local midnight"
	CronSecret       string // shared secret for the HTTP cron trigger

	// Email provider (HTTP API)
	EmailAPIURL      string
	EmailAPIKey      string
	EmailFromAddress string

	// Push provider (HTTP API)
	PushAPIURL string
	PushAPIKey string

	// WhatsApp provider (HTTP API)
	WhatsAppAPIURL string
	WhatsAppAPIKey string

	// StubProviders short-circuits all provider clients with canned
	// success responses for local development.
	StubProviders bool
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
		Env:           getEnvWithDefault("ENV", "development"),
		Port:          getEnvWithDefault("PORT", "8080"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		WatchmanSchedule: getEnvWithDefault("WATCHMAN_SCHEDULE", "0 8 * * *"),
		WatchmanTimezone: getEnvWithDefault("WATCHMAN_TIMEZONE", "Europe/Rome"),
		CronSecret:       os.Getenv("CRON_SECRET"),

		EmailAPIURL:      os.Getenv("EMAIL_API_URL"),
		EmailAPIKey:      os.Getenv("EMAIL_API_KEY"),
		EmailFromAddress: getEnvWithDefault("EMAIL_FROM_ADDRESS", "reminders@pittima.app"),

		PushAPIURL: os.Getenv("PUSH_API_URL"),
		PushAPIKey: os.Getenv("PUSH_API_KEY"),

		WhatsAppAPIURL: os.Getenv("WHATSAPP_API_URL"),
		WhatsAppAPIKey: os.Getenv("WHATSAPP_API_KEY"),

		StubProviders: os.Getenv("STUB_PROVIDERS") == "true",
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if cfg.CronSecret == "" {
		log.Println("WARNING: CRON_SECRET is not set. The cron trigger endpoint will reject all requests.")
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
