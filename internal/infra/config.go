package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// History backends understood by LoadConfig.
const (
	HistoryBackendMemory   = "memory"
	HistoryBackendRedis    = "redis"
	HistoryBackendPostgres = "postgres"
	HistoryBackendSQLite   = "sqlite"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	GoogleAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	RemoveBGAPIKey      string
	RemoveBGBaseURL     string
	PicsartAPIKey       string
	PicsartBaseURL      string
	PollinationsBaseURL string

	UploadMaxBytes      int64
	AnalyzeMaxDimension int
	AnalyzeJPEGQuality  int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ProviderTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string

	HistoryBackend  string
	HistoryCapacity int
	RedisURL        string
	DatabaseURL     string
	SQLitePath      string

	StoragePath    string
	StorageBaseURL string

	GeoIPDBPath string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "3001")
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                port,
		GoogleAPIKey:        strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		GeminiBaseURL:       os.Getenv("GEMINI_BASE_URL"),
		RemoveBGAPIKey:      strings.TrimSpace(os.Getenv("REMOVE_BG_API_KEY")),
		RemoveBGBaseURL:     getEnv("REMOVE_BG_BASE_URL", "https://api.remove.bg/v1.0"),
		PicsartAPIKey:       strings.TrimSpace(os.Getenv("PICSART_API_KEY")),
		PicsartBaseURL:      getEnv("PICSART_BASE_URL", "https://api.picsart.io/tools/1.0"),
		PollinationsBaseURL: getEnv("POLLINATIONS_BASE_URL", "https://image.pollinations.ai"),
		UploadMaxBytes:      int64(getEnvInt("UPLOAD_MAX_BYTES", 10*1024*1024)),
		AnalyzeMaxDimension: getEnvInt("ANALYZE_MAX_DIMENSION", 1024),
		AnalyzeJPEGQuality:  getEnvInt("ANALYZE_JPEG_QUALITY", 80),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ProviderTimeout:     time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:         splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		HistoryBackend:      strings.ToLower(getEnv("HISTORY_BACKEND", HistoryBackendMemory)),
		HistoryCapacity:     getEnvInt("HISTORY_CAPACITY", 50),
		RedisURL:            os.Getenv("REDIS_URL"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          os.Getenv("SQLITE_PATH"),
		StoragePath:         getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:      getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		GeoIPDBPath:         strings.TrimSpace(os.Getenv("GEOIP_DB_PATH")),
	}

	if cfg.HistoryCapacity <= 0 {
		return nil, fmt.Errorf("HISTORY_CAPACITY must be positive")
	}
	if cfg.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}

	switch cfg.HistoryBackend {
	case HistoryBackendMemory:
	case HistoryBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis history backend")
		}
	case HistoryBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres history backend")
		}
	case HistoryBackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required for the sqlite history backend")
		}
	default:
		return nil, fmt.Errorf("unknown HISTORY_BACKEND %q", cfg.HistoryBackend)
	}

	cfg.StorageBaseURL = strings.TrimRight(cfg.StorageBaseURL, "/")
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
