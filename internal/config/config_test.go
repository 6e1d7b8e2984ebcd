package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q, want openai", cfg.LLMProvider)
	}
	if cfg.LLMCallTimeout != 30*time.Second {
		t.Errorf("LLMCallTimeout = %v, want 30s", cfg.LLMCallTimeout)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.MaxSessions != 10000 {
		t.Errorf("MaxSessions = %d, want 10000", cfg.MaxSessions)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.ClinicName != "CareWell Clinic" {
		t.Errorf("ClinicName = %q, want CareWell Clinic", cfg.ClinicName)
	}
}

func TestLoadListOverride(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg := Load()

	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Errorf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Bedrock")
	t.Setenv("LLM_CALL_TIMEOUT", "10s")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Errorf("LLMProvider = %q, want bedrock (lowercased)", cfg.LLMProvider)
	}
	if cfg.LLMCallTimeout != 10*time.Second {
		t.Errorf("LLMCallTimeout = %v, want 10s", cfg.LLMCallTimeout)
	}
	if cfg.LLMTemperature != 0.2 {
		t.Errorf("LLMTemperature = %v, want 0.2", cfg.LLMTemperature)
	}
	if !cfg.RedisTLS {
		t.Error("RedisTLS = false, want true")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_SESSIONS", "not-a-number")
	t.Setenv("SESSION_TTL", "garbage")

	cfg := Load()

	if cfg.MaxSessions != 10000 {
		t.Errorf("MaxSessions = %d, want default 10000", cfg.MaxSessions)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want default 24h", cfg.SessionTTL)
	}
}
