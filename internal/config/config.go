package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every process-wide setting. It is built once at
// startup and passed by value into the components that need it; there
// is no ambient global.
type Config struct {
	DatabasePath   string        `yaml:"database_path"`
	HTTPAddr       string        `yaml:"http_addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SubmitAfterDay int           `yaml:"submit_after_day"`
	RolloverDay    int           `yaml:"rollover_day"`
	RolloverHour   int           `yaml:"rollover_hour"`
}

// Load builds the configuration: defaults, then the optional YAML file
// named by FLATPAY_CONFIG, then environment variable overrides.
func Load() (Config, error) {
	cfg := Config{
		DatabasePath:   "flatpay.db",
		HTTPAddr:       ":8080",
		SessionTTL:     12 * time.Hour,
		SubmitAfterDay: 24,
		RolloverDay:    1,
		RolloverHour:   0,
	}

	if path := os.Getenv("FLATPAY_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.DatabasePath = getenvDefault("DATABASE_PATH", cfg.DatabasePath)
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", cfg.JWTSecret)
	cfg.SessionTTL = getenvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SubmitAfterDay = getenvIntDefault("SUBMIT_AFTER_DAY", cfg.SubmitAfterDay)
	cfg.RolloverDay = getenvIntDefault("ROLLOVER_DAY", cfg.RolloverDay)
	cfg.RolloverHour = getenvIntDefault("ROLLOVER_HOUR", cfg.RolloverHour)

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("config: AUTH_JWT_SECRET is required")
	}
	if cfg.SubmitAfterDay < 1 || cfg.SubmitAfterDay > 28 {
		return Config{}, fmt.Errorf("config: submit_after_day out of range: %d", cfg.SubmitAfterDay)
	}
	if cfg.RolloverDay < 1 || cfg.RolloverDay > 28 {
		return Config{}, fmt.Errorf("config: rollover_day out of range: %d", cfg.RolloverDay)
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
