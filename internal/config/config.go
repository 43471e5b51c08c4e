package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"fightsync/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DatabaseURL   string
	SourceBaseURL string
	RequestDelay  time.Duration
	FetchRetries  int
	ServerPort    string
	LogLevel      string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SourceBaseURL: getEnv("SOURCE_BASE_URL", "http://ufcstats.com"),
		RequestDelay:  getEnvDuration("REQUEST_DELAY", constants.DefaultRequestDelay, logger),
		FetchRetries:  getEnvInt("FETCH_RETRIES", constants.FetchMaxRetries, logger),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	logger.Info().
		Str("source_base_url", cfg.SourceBaseURL).
		Dur("request_delay", cfg.RequestDelay).
		Int("fetch_retries", cfg.FetchRetries).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration, logger zerolog.Logger) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

func getEnvInt(key string, fallback int, logger zerolog.Logger) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

var Module = fx.Provide(Load)
