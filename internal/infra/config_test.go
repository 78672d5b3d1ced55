package infra

import (
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "BIND_ADDR", "PORT", "API_KEY", "GEMINI_API_KEY", "GEMINI_BASE_URL",
		"PROFILE_PATH", "MEDIA_DIR", "VIDEO_POLL_INTERVAL_SECONDS", "VIDEO_MAX_POLLS",
		"VIDEO_TIMEOUT_SECONDS", "GEMINI_REQUESTS_PER_MINUTE", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:8787" {
		t.Fatalf("Addr mismatch: got %q", cfg.Addr())
	}
	if cfg.VideoPollEvery != 10*time.Second {
		t.Fatalf("VideoPollEvery mismatch: got %s", cfg.VideoPollEvery)
	}
	if cfg.VideoMaxPolls != 90 {
		t.Fatalf("VideoMaxPolls mismatch: got %d", cfg.VideoMaxPolls)
	}
	if cfg.ProfilePath == "" {
		t.Fatal("expected a default profile path")
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("expected no ambient key, got %q", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigAmbientKeyPrecedence(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "gemini" {
		t.Fatalf("GeminiAPIKey mismatch: got %q", cfg.GeminiAPIKey)
	}

	t.Setenv("API_KEY", "primary")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "primary" {
		t.Fatalf("API_KEY should win, got %q", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigRejectsPublicBind(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BIND_ADDR", "0.0.0.0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-loopback bind address")
	}
}

func TestLoadConfigAcceptsLocalhostNames(t *testing.T) {
	for _, addr := range []string{"localhost", "::1", "127.0.0.2"} {
		clearConfigEnv(t)
		t.Setenv("BIND_ADDR", addr)
		if _, err := LoadConfig(); err != nil {
			t.Fatalf("LoadConfig(%q) returned error: %v", addr, err)
		}
	}
}

func TestLoadConfigRejectsNonPositivePolling(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("VIDEO_MAX_POLLS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero max polls")
	}
}

func TestLoadConfigTrimsBaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GEMINI_BASE_URL", "http://127.0.0.1:9999/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiBaseURL != "http://127.0.0.1:9999" {
		t.Fatalf("GeminiBaseURL mismatch: got %q", cfg.GeminiBaseURL)
	}
}

func TestLoadConfigAllowedOrigins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://localhost:5173 ,, http://127.0.0.1:5173")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://localhost:5173" || cfg.AllowedOrigins[1] != "http://127.0.0.1:5173" {
		t.Fatalf("AllowedOrigins mismatch: got %q", cfg.AllowedOrigins)
	}
}
