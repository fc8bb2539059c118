package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"IMAGE_PROVIDER", "HEADSHOT_CANDIDATES", "MAX_UPLOAD_MB", "SESSION_IDLE_TTL_MINUTES", "CORS_ALLOWED_ORIGINS", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImageProvider != "gemini" {
		t.Fatalf("ImageProvider = %q, want gemini", cfg.ImageProvider)
	}
	if cfg.HeadshotCandidates != 4 {
		t.Fatalf("HeadshotCandidates = %d, want 4", cfg.HeadshotCandidates)
	}
	if cfg.MaxUploadBytes != 15<<20 {
		t.Fatalf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.SessionIdleTTL != time.Hour {
		t.Fatalf("SessionIdleTTL = %s, want 1h", cfg.SessionIdleTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL should be optional, got %q", cfg.DatabaseURL)
	}
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "OpenAI")
	t.Setenv("HEADSHOT_CANDIDATES", "6")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "45")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImageProvider != "openai" {
		t.Fatalf("ImageProvider = %q", cfg.ImageProvider)
	}
	if cfg.HeadshotCandidates != 6 {
		t.Fatalf("HeadshotCandidates = %d", cfg.HeadshotCandidates)
	}
	if cfg.GenerationTimeout != 45*time.Second {
		t.Fatalf("GenerationTimeout = %s", cfg.GenerationTimeout)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown provider", key: "IMAGE_PROVIDER", val: "dalle"},
		{name: "too many candidates", key: "HEADSHOT_CANDIDATES", val: "20"},
		{name: "zero candidates", key: "HEADSHOT_CANDIDATES", val: "0"},
		{name: "negative upload cap", key: "MAX_UPLOAD_MB", val: "-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "midjourney")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig accepted an unknown provider")
	}
	t.Setenv("IMAGE_PROVIDER", "qwen")
	t.Setenv("QWEN_IMAGE_MODEL", "qwen-image-edit-plus")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.QwenImageModel != "qwen-image-edit-plus" {
		t.Fatalf("QwenImageModel = %q", cfg.QwenImageModel)
	}
}
