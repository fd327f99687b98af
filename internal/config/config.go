package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	// MaxSessionHours is the age after which the expiry sweep closes an
	// active reservation as Expired.
	MaxSessionHours int

	// Cron schedule for the expiry sweep.
	ExpirySchedule string

	SendgridAPIKey    string
	SendgridFromEmail string
	SendgridFromName  string
}

// Load reads configuration from the environment, honoring a local .env file
// if present.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		MaxSessionHours:   72,
		ExpirySchedule:    getEnv("EXPIRY_SCHEDULE", "@every 15m"),
		SendgridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendgridFromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
		SendgridFromName:  getEnv("SENDGRID_FROM_NAME", "Parkside"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}

	if v := os.Getenv("MAX_SESSION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("invalid MAX_SESSION_HOURS %q", v)
		}
		cfg.MaxSessionHours = hours
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
