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
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	SQLitePath  string

	StoragePath       string
	StorageBaseURL    string
	StorageSigningKey string
	PresignTTL        time.Duration

	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiImageModel string
	GeminiVideoModel string
	GeminiTextModel  string

	GenerationDeadline time.Duration
	RetryBaseDelay     time.Duration

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/studio.db"),
		StoragePath:        getEnv("STORAGE_PATH", "./data/assets"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/v1/files", port)),
		StorageSigningKey:  os.Getenv("STORAGE_SIGNING_KEY"),
		PresignTTL:         time.Second * time.Duration(getEnvInt("PRESIGN_TTL_SECONDS", 3600)),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel:   getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiVideoModel:   getEnv("GEMINI_VIDEO_MODEL", "veo-3.0-fast-generate-001"),
		GeminiTextModel:    getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GenerationDeadline: time.Second * time.Duration(getEnvInt("GENERATION_DEADLINE_SECONDS", 30)),
		RetryBaseDelay:     time.Millisecond * time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 100)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 45)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if cfg.StorageSigningKey == "" {
		if cfg.AppEnv != "development" && cfg.AppEnv != "test" {
			return nil, fmt.Errorf("STORAGE_SIGNING_KEY is required")
		}
		cfg.StorageSigningKey = "dev-signing-key"
	}
	if cfg.GenerationDeadline <= 0 {
		return nil, fmt.Errorf("GENERATION_DEADLINE_SECONDS must be positive")
	}
	if cfg.RetryBaseDelay < 0 {
		return nil, fmt.Errorf("RETRY_BASE_DELAY_MS must not be negative")
	}

	return cfg, nil
}

// UsePostgres reports whether DATABASE_URL selects the Postgres project store.
func (c *Config) UsePostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
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

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
