package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, 1, config.RedisStreamCount)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, "https://api.segment.io/v1", config.AnalyticsEndpoint)
	assert.Equal(t, 1500*time.Millisecond, config.DebounceDelay)
	assert.Equal(t, 5*time.Second, config.PollInterval)

	// Test with environment variables
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("REDIS_DB", "1")
	os.Setenv("REDIS_STREAM_COUNT", "4")
	os.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	os.Setenv("ANALYTICS_WRITE_KEY", "test-write-key")
	os.Setenv("DEBOUNCE_DELAY_MS", "500")
	os.Setenv("POLL_INTERVAL_SECONDS", "10")

	config = LoadConfig()
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, 4, config.RedisStreamCount)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, "test-write-key", config.AnalyticsWriteKey)
	assert.Equal(t, 500*time.Millisecond, config.DebounceDelay)
	assert.Equal(t, 10*time.Second, config.PollInterval)

	os.Setenv("WATCH_URLS", "https://shopsite.com/product/mug, https://www.nike.com/t/air-max-90/DH8010-100")
	config = LoadConfig()
	assert.Equal(t, []string{
		"https://shopsite.com/product/mug",
		"https://www.nike.com/t/air-max-90/DH8010-100",
	}, config.WatchURLs)
	os.Unsetenv("WATCH_URLS")

	// Clean up
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("REDIS_DB")
	os.Unsetenv("REDIS_STREAM_COUNT")
	os.Unsetenv("MEMCACHE_ADDR")
	os.Unsetenv("ANALYTICS_WRITE_KEY")
	os.Unsetenv("DEBOUNCE_DELAY_MS")
	os.Unsetenv("POLL_INTERVAL_SECONDS")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.Validate())

	bad := config
	bad.RedisAddr = ""
	assert.Error(t, bad.Validate())

	bad = config
	bad.DebounceDelay = 10 * time.Millisecond
	assert.Error(t, bad.Validate())

	bad = config
	bad.RedisStreamCount = 0
	assert.Error(t, bad.Validate())
}
