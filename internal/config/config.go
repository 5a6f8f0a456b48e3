package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment      string
	AppName          string
	Port             string
	LogLevel         slog.Level
	SQLitePath       string
	MigrationsPath   string
	SeedDefaultData  bool
	YAMLAdaptersPath string

	FetchRetries     int
	FetchTimeout     time.Duration
	FetchRatePerSec  float64
	FetchBackoffBase time.Duration
	ChapterImportCap int
	WorkerEnabled    bool
	WorkerInterval   time.Duration
	WorkerClaimLimit int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:      getEnv("APP_ENV", "development"),
		AppName:          getEnv("APP_NAME", "mangapipe"),
		Port:             getEnv("APP_PORT", "8080"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "./migrations"),
		SeedDefaultData:  getEnvAsBool("SEED_DEFAULT_DATA", true),
		YAMLAdaptersPath: getEnv("YAML_ADAPTERS_PATH", "./adapters"),
		FetchRetries:     getEnvAsInt("FETCH_RETRIES", 3),
		FetchTimeout:     time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 12)) * time.Second,
		FetchRatePerSec:  getEnvAsFloat("FETCH_RATE_PER_SECOND", 4),
		FetchBackoffBase: time.Duration(getEnvAsInt("FETCH_BACKOFF_BASE_MS", 1000)) * time.Millisecond,
		ChapterImportCap: getEnvAsInt("CHAPTER_IMPORT_CAP", 200),
		WorkerEnabled:    getEnvAsBool("WORKER_ENABLED", true),
		WorkerInterval:   time.Duration(getEnvAsInt("WORKER_INTERVAL_SECONDS", 60)) * time.Second,
		WorkerClaimLimit: getEnvAsInt("WORKER_CLAIM_LIMIT", 3),
	}

	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = 3
	}
	if cfg.ChapterImportCap <= 0 {
		cfg.ChapterImportCap = 200
	}
	if cfg.WorkerInterval <= 0 {
		cfg.WorkerInterval = time.Minute
	}
	if cfg.WorkerClaimLimit <= 0 {
		cfg.WorkerClaimLimit = 3
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
