package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FLATPAY_CONFIG", "DATABASE_PATH", "HTTP_ADDR", "AUTH_JWT_SECRET",
		"SESSION_TTL", "SUBMIT_AFTER_DAY", "ROLLOVER_DAY", "ROLLOVER_HOUR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "flatpay.db" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SubmitAfterDay != 24 || cfg.RolloverDay != 1 || cfg.RolloverHour != 0 {
		t.Fatalf("unexpected cycle defaults: %+v", cfg)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.SessionTTL)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error without AUTH_JWT_SECRET")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DATABASE_PATH", "/tmp/billing.db")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SUBMIT_AFTER_DAY", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "/tmp/billing.db" || cfg.HTTPAddr != ":9090" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.SubmitAfterDay != 20 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadYAMLFileThenEnvWins(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "flatpay.yaml")
	contents := "database_path: from-file.db\njwt_secret: file-secret\nrollover_day: 2\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("FLATPAY_CONFIG", path)
	t.Setenv("DATABASE_PATH", "from-env.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "from-env.db" {
		t.Fatalf("env must override file, got %q", cfg.DatabasePath)
	}
	if cfg.JWTSecret != "file-secret" || cfg.RolloverDay != 2 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoadRejectsOutOfRangeDays(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("ROLLOVER_DAY", "31")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for rollover day 31")
	}
}
