package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config contains application-wide settings sourced from the environment.
type Config struct {
	DatabaseURL     string
	Addr            string
	AllowedOrigin   string
	JWTSecret       string
	GeocoderBaseURL string
	GeocoderContact string
	LogLevel        string
	LogFormat       string
	StaticDir       string
}

func loadConfig() (Config, error) {
	_ = godotenv.Load("config/local.env")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return Config{}, errors.New("DATABASE_URL env var is required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, errors.New("JWT_SECRET env var is required")
	}

	addr := fmt.Sprintf(":%s", envOrDefault("PORT", "8080"))

	return Config{
		DatabaseURL:     dsn,
		Addr:            addr,
		AllowedOrigin:   envOrDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		JWTSecret:       secret,
		GeocoderBaseURL: os.Getenv("GEOCODER_BASE_URL"),
		GeocoderContact: envOrDefault("GEOCODER_CONTACT", "ops@restaura.example"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		StaticDir:       envOrDefault("STATIC_DIR", "web/static"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
