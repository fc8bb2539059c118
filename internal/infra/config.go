package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	StoragePath        string
	DatabaseURL        string
	RedisURL           string
	GeoIPDBPath        string
	DefaultLocale      string
	CORSAllowedOrigins []string
	ImageProvider      string
	GeminiAPIKey       string
	GeminiImageModel   string
	GeminiTextModel    string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIImageModel   string
	OpenAIChatModel    string
	QwenAPIKey         string
	QwenBaseURL        string
	QwenImageModel     string
	HeadshotCandidates int
	MaxUploadBytes     int64
	SessionIdleTTL     time.Duration
	GenerationTimeout  time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

var imageProviders = map[string]struct{}{
	"gemini":    {},
	"openai":    {},
	"qwen":      {},
	"synthetic": {},
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		StoragePath:        getEnv("STORAGE_PATH", "./data"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		ImageProvider:      strings.ToLower(getEnv("IMAGE_PROVIDER", "gemini")),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiImageModel:   os.Getenv("GEMINI_IMAGE_MODEL"),
		GeminiTextModel:    os.Getenv("GEMINI_TEXT_MODEL"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		OpenAIImageModel:   os.Getenv("OPENAI_IMAGE_MODEL"),
		OpenAIChatModel:    os.Getenv("OPENAI_CHAT_MODEL"),
		QwenAPIKey:         os.Getenv("QWEN_API_KEY"),
		QwenBaseURL:        os.Getenv("QWEN_BASE_URL"),
		QwenImageModel:     os.Getenv("QWEN_IMAGE_MODEL"),
		HeadshotCandidates: getEnvInt("HEADSHOT_CANDIDATES", 4),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_MB", 15)) << 20,
		SessionIdleTTL:     time.Minute * time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 60)),
		GenerationTimeout:  time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 120)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if _, ok := imageProviders[cfg.ImageProvider]; !ok {
		return nil, fmt.Errorf("IMAGE_PROVIDER %q is not one of gemini, openai, qwen, synthetic", cfg.ImageProvider)
	}
	if cfg.HeadshotCandidates < 1 || cfg.HeadshotCandidates > 8 {
		return nil, fmt.Errorf("HEADSHOT_CANDIDATES must be between 1 and 8, got %d", cfg.HeadshotCandidates)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
