package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// LINE Messaging API
	ChannelSecret      string
	ChannelAccessToken string

	// Database
	DatabaseURL string

	// Web Server
	WebBind string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		ChannelSecret:      os.Getenv("LINE_CHANNEL_SECRET"),
		ChannelAccessToken: os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		WebBind:            getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
	}

	if cfg.ChannelSecret == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_SECRET is required")
	}
	if cfg.ChannelAccessToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
