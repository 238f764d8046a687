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
	AppEnv           string
	Port             string
	StoragePath      string
	AdminToken       string
	DefaultLocale    string
	AllowedOrigins   []string
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	WavespeedAPIKey  string
	WavespeedBaseURL string
	PromptsPath      string
	GeoIPDBPath      string
	MaxPhotoBytes    int64
	TextTimeout      time.Duration
	PollInterval     time.Duration
	PollMaxWait      time.Duration
	SessionTTL       time.Duration
	SweepInterval    time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		WavespeedAPIKey:  os.Getenv("WAVESPEED_API_KEY"),
		WavespeedBaseURL: getEnv("WAVESPEED_BASE_URL", "https://api.wavespeed.ai/api/v3"),
		PromptsPath:      os.Getenv("PROMPTS_PATH"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		MaxPhotoBytes:    int64(getEnvInt("MAX_PHOTO_MB", 8)) << 20,
		TextTimeout:      time.Second * time.Duration(getEnvInt("TEXT_TIMEOUT_SECONDS", 120)),
		PollInterval:     time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 2)),
		PollMaxWait:      time.Second * time.Duration(getEnvInt("POLL_MAX_WAIT_SECONDS", 300)),
		SessionTTL:       time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 24*60)),
		SweepInterval:    time.Minute * time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 10)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.StoragePath == "" {
		return nil, fmt.Errorf("STORAGE_PATH is required")
	}
	if cfg.MaxPhotoBytes <= 0 {
		return nil, fmt.Errorf("MAX_PHOTO_MB must be positive")
	}
	if cfg.PollInterval <= 0 || cfg.PollMaxWait <= 0 {
		return nil, fmt.Errorf("poll interval and max wait must be positive")
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
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
