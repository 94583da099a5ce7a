package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POCKETQUEST_JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "pocketquest.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "pocketquest.db")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 720*time.Hour)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POCKETQUEST_JWT_SECRET", "test-secret")
	t.Setenv("POCKETQUEST_PORT", "9090")
	t.Setenv("POCKETQUEST_SESSION_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, time.Hour)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("POCKETQUEST_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when JWT secret is unset")
	}
}

func TestLoadBadTTL(t *testing.T) {
	t.Setenv("POCKETQUEST_JWT_SECRET", "test-secret")
	t.Setenv("POCKETQUEST_SESSION_TTL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed session TTL")
	}
}
