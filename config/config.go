// Package config loads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// RunRetention is how long processed runs are kept. Zero keeps them forever.
	RunRetention      time.Duration
	RetentionInterval time.Duration

	// CacheTTL bounds how long run details and exports stay cached in memory.
	CacheTTL time.Duration

	MaxUploadBytes int64
	CORSOrigins    []string
}

// Load reads envFiles (".env" when none are given) into the environment,
// without overriding variables already set, then builds the config.
// Invalid values fall back to their defaults with a warning.
func Load(log zerolog.Logger, envFiles ...string) *AppConfig {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using environment and defaults")
	} else {
		log.Debug().Strs("files", envFiles).Msg("loaded .env")
	}

	return &AppConfig{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "./ticket-recon.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RunRetention:      getEnvAsDuration(log, "RUN_RETENTION", 30*24*time.Hour),
		RetentionInterval: getEnvAsDuration(log, "RETENTION_INTERVAL", time.Hour),
		CacheTTL:          getEnvAsDuration(log, "CACHE_TTL", 10*time.Minute),
		MaxUploadBytes:    getEnvAsInt64(log, "MAX_UPLOAD_BYTES", 20<<20),
		CORSOrigins:       getEnvAsList("CORS_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(log zerolog.Logger, key string, defaultValue time.Duration) time.Duration {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		log.Warn().Str("key", key).Str("value", s).Dur("default", defaultValue).Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}

func getEnvAsInt64(log zerolog.Logger, key string, defaultValue int64) int64 {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", s).Int64("default", defaultValue).Msg("invalid integer, using default")
		return defaultValue
	}
	return v
}

func getEnvAsList(key string, defaultValue []string) []string {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
