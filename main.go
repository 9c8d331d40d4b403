package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pokewatch/stockworker/config"
	"pokewatch/stockworker/internal/descriptor"
	"pokewatch/stockworker/internal/detect"
	"pokewatch/stockworker/internal/fetch"
	"pokewatch/stockworker/internal/scan"
	"pokewatch/stockworker/logger"
	"pokewatch/stockworker/services/cache"
	"pokewatch/stockworker/services/notifier"
	"pokewatch/stockworker/services/publisher"
	"pokewatch/stockworker/services/store"
	"pokewatch/stockworker/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("scan_interval", cfg.ScanInterval).
		Int("concurrency", cfg.Concurrency).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Build the seller registry
	registry := descriptor.NewRegistry()
	if err := descriptor.RegisterBuiltin(registry); err != nil {
		log.Fatal().Err(err).Msg("Failed to register built-in sellers")
	}
	if cfg.DescriptorFile != "" {
		n, err := descriptor.LoadFile(cfg.DescriptorFile, registry)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.DescriptorFile).Msg("Failed to load seller descriptors")
		}
		log.Info().Int("count", n).Str("file", cfg.DescriptorFile).Msg("Loaded seller descriptors")
	}
	log.Info().Int("seller_count", registry.Len()).Msg("Seller registry ready")

	// Initialize services
	services, err := initializeServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Wire the scan pipeline
	pool := fetch.NewPool(fetch.PoolOptions{
		Timeout:      cfg.RequestTimeout,
		Retries:      cfg.RetryCount,
		BackoffBase:  cfg.BackoffBase,
		DefaultRate:  cfg.SellerRate,
		DefaultBurst: cfg.SellerBurst,
		BrowserBin:   cfg.BrowserBin,
		Cooldown:     services.Cache,
	})
	defer pool.Close()

	detector := detect.NewDetector(services.Store)
	scanner := scan.NewScanner(registry, pool, detector,
		scan.WithPacing(cfg.PacingDelay))

	w := worker.NewWorker(worker.Options{
		Store:          services.Store,
		Runner:         scanner,
		Registry:       registry,
		Publisher:      services.Publisher,
		Notifier:       services.Notifier,
		Interval:       cfg.ScanInterval,
		Concurrency:    cfg.Concurrency,
		DiscoveryCron:  cfg.DiscoveryCron,
		DiscoveryQuery: cfg.DiscoveryQuery,
	})

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting stock worker")
		workerDone <- w.Start(ctx)
	}()

	// Wait for shutdown signal or worker error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Store     store.Store
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Notifier  notifier.Notifier
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize storage
	sqliteStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	services.Store = sqliteStore

	logger.Info("Opened product database at %s", cfg.DatabasePath)

	// Initialize cache service, falling back to the in-process cache when
	// memcache is unreachable
	services.Cache = cache.NewMemoryService()
	if cfg.MemcacheAddr != "" {
		memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unreachable, using in-process cache: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = memcacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	// Initialize publisher when Redis is configured
	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			int(cfg.RedisStreamMaxLength),
		)

		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		logger.Info("REDIS_ADDR not set, stream publishing disabled")
	}

	// Initialize notifier
	if cfg.DiscordWebhookURL != "" {
		services.Notifier = notifier.NewDiscordNotifier(cfg.DiscordWebhookURL)
		logger.Info("Discord notifications enabled")
	} else {
		services.Notifier = notifier.NewNoOpNotifier()
	}

	return services, nil
}
