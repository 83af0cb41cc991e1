package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the process reads from the environment. A .env
// file is honored when present so local runs match deployed ones.
type Config struct {
	DatabaseURL   string
	RedisURL      string // empty disables the cross-instance broadcast bridge
	JWTSecret     string
	Port          string
	AllowedOrigin string
	LogLevel      string
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	cfg := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Port:          os.Getenv("PORT"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET environment variable is not set")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "http://localhost:5173"
	}
	return cfg, nil
}
