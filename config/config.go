package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Scan loop configuration
	ScanInterval   time.Duration
	DiscoveryCron  string
	DiscoveryQuery string
	Concurrency    int
	PacingDelay    time.Duration

	// Fetch configuration
	RetryCount     int
	BackoffBase    time.Duration
	RequestTimeout time.Duration
	SellerRate     float64
	SellerBurst    int
	BrowserBin     string

	// Storage configuration
	DatabasePath string

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int64

	// Notification configuration
	DiscordWebhookURL string

	// Extra seller descriptors loaded at startup
	DescriptorFile string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	scanInterval, _ := strconv.Atoi(getEnv("SCAN_INTERVAL_SECONDS", "300"))
	concurrency, _ := strconv.Atoi(getEnv("SCAN_CONCURRENCY", "4"))
	pacingDelay, _ := strconv.Atoi(getEnv("PACING_DELAY_MS", "500"))
	retryCount, _ := strconv.Atoi(getEnv("FETCH_RETRIES", "3"))
	backoffBase, _ := strconv.Atoi(getEnv("BACKOFF_BASE_SECONDS", "2"))
	requestTimeout, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "20"))
	sellerRate, _ := strconv.ParseFloat(getEnv("SELLER_RATE_PER_SEC", "0.5"), 64)
	sellerBurst, _ := strconv.Atoi(getEnv("SELLER_BURST", "1"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLength, _ := strconv.ParseInt(getEnv("REDIS_STREAM_MAX_LENGTH", "500"), 10, 64)

	return &Config{
		ScanInterval:   time.Duration(scanInterval) * time.Second,
		DiscoveryCron:  getEnv("DISCOVERY_CRON", ""),
		DiscoveryQuery: getEnv("DISCOVERY_QUERY", "pokemon tcg"),
		Concurrency:    concurrency,
		PacingDelay:    time.Duration(pacingDelay) * time.Millisecond,

		RetryCount:     retryCount,
		BackoffBase:    time.Duration(backoffBase) * time.Second,
		RequestTimeout: time.Duration(requestTimeout) * time.Second,
		SellerRate:     sellerRate,
		SellerBurst:    sellerBurst,
		BrowserBin:     getEnv("BROWSER_BIN", ""),

		DatabasePath: getEnv("DATABASE_PATH", "stockworker.db"),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "stockchanges"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLength,

		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),

		DescriptorFile: getEnv("DESCRIPTOR_FILE", ""),

		Environment: getEnv("STOCKWORKER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values that would break the scan loop
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL_SECONDS must be positive, got %s", c.ScanInterval)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("SCAN_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("FETCH_RETRIES must not be negative, got %d", c.RetryCount)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("BACKOFF_BASE_SECONDS must be positive, got %s", c.BackoffBase)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %s", c.RequestTimeout)
	}
	if c.RedisStreamCount < 1 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be at least 1, got %d", c.RedisStreamCount)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
