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
	assert.Equal(t, 300*time.Second, config.ScanInterval)
	assert.Equal(t, 4, config.Concurrency)
	assert.Equal(t, 3, config.RetryCount)
	assert.Equal(t, 2*time.Second, config.BackoffBase)
	assert.Equal(t, "stockworker.db", config.DatabasePath)
	assert.Equal(t, "stockchanges", config.RedisStream)
	assert.Equal(t, 1, config.RedisStreamCount)
	assert.Equal(t, "pokemon tcg", config.DiscoveryQuery)
	assert.Equal(t, "development", config.Environment)

	// Test with environment variables
	os.Setenv("SCAN_INTERVAL_SECONDS", "60")
	os.Setenv("SCAN_CONCURRENCY", "2")
	os.Setenv("BACKOFF_BASE_SECONDS", "1")
	os.Setenv("DATABASE_PATH", "/tmp/test.db")
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("REDIS_DB", "1")

	config = LoadConfig()
	assert.Equal(t, 60*time.Second, config.ScanInterval)
	assert.Equal(t, 2, config.Concurrency)
	assert.Equal(t, time.Second, config.BackoffBase)
	assert.Equal(t, "/tmp/test.db", config.DatabasePath)
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)

	// Clean up
	os.Unsetenv("SCAN_INTERVAL_SECONDS")
	os.Unsetenv("SCAN_CONCURRENCY")
	os.Unsetenv("BACKOFF_BASE_SECONDS")
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("REDIS_DB")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.DatabasePath = "" },
			wantErr: "DATABASE_PATH",
		},
		{
			name:    "zero scan interval",
			mutate:  func(c *Config) { c.ScanInterval = 0 },
			wantErr: "SCAN_INTERVAL_SECONDS",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: "SCAN_CONCURRENCY",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.RetryCount = -1 },
			wantErr: "FETCH_RETRIES",
		},
		{
			name:    "zero backoff base",
			mutate:  func(c *Config) { c.BackoffBase = 0 },
			wantErr: "BACKOFF_BASE_SECONDS",
		},
		{
			name:    "zero stream count",
			mutate:  func(c *Config) { c.RedisStreamCount = 0 },
			wantErr: "REDIS_STREAM_COUNT",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := LoadConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
