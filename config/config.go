package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"owlprice/priceworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration (publisher)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration (key-value store)
	MemcacheAddr string

	// Analytics collector configuration
	AnalyticsEndpoint string
	AnalyticsWriteKey string

	// Navigation monitor configuration
	DebounceDelay time.Duration
	PollInterval  time.Duration

	// Pages the session starts watching on boot, comma separated
	WatchURLs []string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	debounceMs, _ := strconv.Atoi(getEnv("DEBOUNCE_DELAY_MS", "1500"))
	pollSeconds, _ := strconv.Atoi(getEnv("POLL_INTERVAL_SECONDS", "5"))

	return Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "products"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		AnalyticsEndpoint:    getEnv("ANALYTICS_ENDPOINT", "https://api.segment.io/v1"),
		AnalyticsWriteKey:    getEnv("ANALYTICS_WRITE_KEY", ""),
		DebounceDelay:        time.Duration(debounceMs) * time.Millisecond,
		PollInterval:         time.Duration(pollSeconds) * time.Second,
		WatchURLs:            splitList(getEnv("WATCH_URLS", "")),
		Environment:          getEnv("OWL_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for obvious misconfiguration
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return errors.NewConfiguration("redis address is empty", nil)
	}
	if c.MemcacheAddr == "" {
		return errors.NewConfiguration("memcache address is empty", nil)
	}
	if c.RedisStreamCount < 1 {
		return errors.NewConfiguration("redis stream count must be at least 1", nil)
	}
	if c.DebounceDelay < 100*time.Millisecond {
		return errors.NewConfiguration("debounce delay too short", nil)
	}
	if c.PollInterval < time.Second {
		return errors.NewConfiguration("poll interval too short", nil)
	}
	return nil
}

// splitList splits a comma separated env value, dropping empty parts
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
