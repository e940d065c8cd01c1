// Package config loads the bot's configuration from the environment. The
// resulting struct is passed to constructors explicitly; no package reads
// environment variables at use time.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for optional settings.
const (
	DefaultPort     = "8080"
	DefaultModel    = "gemini-2.5-flash"
	DefaultTimezone = "Asia/Kolkata"
)

// Config is everything the process needs to run.
type Config struct {
	// Port the webhook server listens on.
	Port string

	// DatabaseURL is the Postgres connection string. Empty selects the
	// in-memory store (local development only).
	DatabaseURL string

	// TelegramToken authenticates the Bot API client.
	TelegramToken string

	// TelegramAPIBase overrides the Bot API endpoint; empty means
	// production.
	TelegramAPIBase string

	// GeminiAPIKey authenticates the intent extractor.
	GeminiAPIKey string

	// GeminiModel is the model name used for extraction.
	GeminiModel string

	// Location is the user-facing timezone for "now" defaults, dates in
	// replies and report windows.
	Location *time.Location
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present, matching how the bot is run locally.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getenv("PORT", DefaultPort),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAPIBase: os.Getenv("TELEGRAM_API_BASE"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getenv("GEMINI_MODEL", DefaultModel),
	}

	tz := getenv("BOT_TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config.Load: bad timezone %q: %w", tz, err)
	}
	cfg.Location = loc

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("config.Load: TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("config.Load: GEMINI_API_KEY is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
