// Package config loads daemon configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Bar feed
	FeedURL        string
	FeedAPIKey     string
	FeedClientCode string
	FeedTOTPSecret string

	// Series under chart
	Symbol    string
	Timeframe int // seconds

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	WebhookURL    string

	// Chart surface
	ChartWidth  int
	ChartHeight int

	// Tuning
	RingSize      int
	BackfillLimit int
	StaleAfterSec int

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		FeedURL:        mustEnv("FEED_URL"),
		FeedAPIKey:     getEnv("FEED_API_KEY", ""),
		FeedClientCode: getEnv("FEED_CLIENT_CODE", ""),
		FeedTOTPSecret: getEnv("FEED_TOTP_SECRET", ""),

		Symbol:    getEnv("SYMBOL", "BTCUSDT"),
		Timeframe: getEnvInt("TIMEFRAME", 60),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/candles.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),

		ChartWidth:  getEnvInt("CHART_WIDTH", 1280),
		ChartHeight: getEnvInt("CHART_HEIGHT", 720),

		RingSize:      getEnvInt("RING_SIZE", 1024),
		BackfillLimit: getEnvInt("BACKFILL_LIMIT", 5000),
		StaleAfterSec: getEnvInt("STALE_AFTER_SEC", 90),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
