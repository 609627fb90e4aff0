package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	BotToken    string
	DatabaseURL string
	OwnerID     int64
	OwnerName   string // display handle shown in access-denied replies

	HTTPAddr    string
	JWTSecret   string
	OpsUser     string
	OpsPassword string
}

// Load reads configuration from the environment. BOT_TOKEN, DATABASE_URL and
// OWNER_ID are required; everything else has a default.
func Load() (Config, error) {
	cfg := Config{
		BotToken:    os.Getenv("BOT_TOKEN"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OwnerName:   os.Getenv("OWNER_USERNAME"),
		HTTPAddr:    os.Getenv("HTTP_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		OpsUser:     os.Getenv("OPS_USER"),
		OpsPassword: os.Getenv("OPS_PASSWORD"),
	}

	if cfg.BotToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}

	rawOwner := os.Getenv("OWNER_ID")
	if rawOwner == "" {
		return cfg, fmt.Errorf("OWNER_ID is required")
	}
	ownerID, err := strconv.ParseInt(rawOwner, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("OWNER_ID must be a numeric user id: %w", err)
	}
	cfg.OwnerID = ownerID

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "0.0.0.0:8080"
	}
	if cfg.OpsUser == "" {
		cfg.OpsUser = "root"
	}
	if cfg.OpsPassword == "" {
		cfg.OpsPassword = "root"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "creditbot-dev-secret"
	}

	return cfg, nil
}
