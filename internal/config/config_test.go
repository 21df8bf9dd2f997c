package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port == "" {
		t.Error("port must have a default")
	}
	if cfg.MaxSourceResults <= 0 {
		t.Error("source result cap must be positive")
	}
	if cfg.MaxImageResults <= 0 {
		t.Error("image result cap must be positive")
	}
	if cfg.ProviderTimeout <= 0 || cfg.ResearchTimeout <= 0 {
		t.Error("timeouts must be positive")
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("session TTL default = %v, want 24h", cfg.SessionTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MAX_SOURCE_RESULTS", "7")
	t.Setenv("RESEARCH_TIMEOUT", "90s")
	t.Setenv("SESSION_TTL", "1h")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("port = %q, want 9999", cfg.Port)
	}
	if cfg.MaxSourceResults != 7 {
		t.Errorf("max source results = %d, want 7", cfg.MaxSourceResults)
	}
	if cfg.ResearchTimeout != 90*time.Second {
		t.Errorf("research timeout = %v, want 90s", cfg.ResearchTimeout)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("session TTL = %v, want 1h", cfg.SessionTTL)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_SOURCE_RESULTS", "not-a-number")
	t.Setenv("RESEARCH_TIMEOUT", "soon")

	cfg := Load()

	if cfg.MaxSourceResults != 5 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.MaxSourceResults)
	}
	if cfg.ResearchTimeout != 2*time.Minute {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.ResearchTimeout)
	}
}
