/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string

	// Owner identity, fixed for the process lifetime.
	OwnerID int64
	// Fallback audit destination when no logger chat is configured. 0 = none.
	LogChannelID int64

	DBBackend DatabaseBackend
	DBDSN     string

	// Redis mirror for the stream resolution cache. Empty addr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Stream resolution
	ResolveTimeout time.Duration
	StreamCacheTTL time.Duration
	YTDLPBin       string
	CookiesFile    string

	// Call transport
	JoinTimeout time.Duration
	FFmpegBin   string

	// Broadcast fan-out
	BroadcastDelay time.Duration

	// Ops HTTP listener (health, metrics, command API)
	HTTPBind string
	HTTPPort int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:  getEnv("MUSICT_ENV", "development"),
		OwnerID:      getEnvInt64("MUSICT_OWNER_ID", 0),
		LogChannelID: getEnvInt64("MUSICT_LOG_CHANNEL_ID", 0),

		DBBackend: DatabaseBackend(getEnv("MUSICT_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("MUSICT_DB_DSN", ""),

		RedisAddr:     getEnv("MUSICT_REDIS_ADDR", ""),
		RedisPassword: getEnv("MUSICT_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MUSICT_REDIS_DB", 0),

		ResolveTimeout: time.Duration(getEnvInt("MUSICT_RESOLVE_TIMEOUT_SECONDS", 30)) * time.Second,
		StreamCacheTTL: time.Duration(getEnvInt("MUSICT_STREAM_CACHE_TTL_MINUTES", 30)) * time.Minute,
		YTDLPBin:       getEnv("MUSICT_YTDLP_BIN", "yt-dlp"),
		CookiesFile:    getEnv("MUSICT_COOKIES_FILE", ""),

		JoinTimeout: time.Duration(getEnvInt("MUSICT_JOIN_TIMEOUT_SECONDS", 15)) * time.Second,
		FFmpegBin:   getEnv("MUSICT_FFMPEG_BIN", "ffmpeg"),

		BroadcastDelay: time.Duration(getEnvInt("MUSICT_BROADCAST_DELAY_MS", 300)) * time.Millisecond,

		HTTPBind: getEnv("MUSICT_HTTP_BIND", "127.0.0.1"),
		HTTPPort: getEnvInt("MUSICT_HTTP_PORT", 9100),

		TracingEnabled:    getEnvBool("MUSICT_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MUSICT_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MUSICT_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.OwnerID == 0 {
		return nil, fmt.Errorf("MUSICT_OWNER_ID must be provided")
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MUSICT_DB_DSN must be provided")
	}

	if cfg.ResolveTimeout <= 0 || cfg.JoinTimeout <= 0 {
		return nil, fmt.Errorf("resolve and join timeouts must be positive")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
