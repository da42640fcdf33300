package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"owlprice/priceworker/config"
	"owlprice/priceworker/helpers"
	"owlprice/priceworker/internal/analytics"
	"owlprice/priceworker/internal/detector"
	"owlprice/priceworker/internal/extractor"
	"owlprice/priceworker/internal/monitor"
	"owlprice/priceworker/logger"
	"owlprice/priceworker/services/coupon"
	"owlprice/priceworker/services/publisher"
	"owlprice/priceworker/services/store"
	"owlprice/priceworker/services/user"
	"owlprice/priceworker/services/worker"

	"github.com/PuerkitoBio/goquery"
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
		Dur("debounce_delay", cfg.DebounceDelay).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Assemble the session pipeline
	w := worker.New(
		services.Store,
		services.Publisher,
		services.Analytics,
		services.Coupons,
		services.Users,
	)
	mon := monitor.New(
		&pageFetcher{},
		extractor.New(),
		detector.New(extractor.CanonicalID),
		w,
		cfg.DebounceDelay,
		cfg.PollInterval,
	)
	w.Bind(mon)

	// Seed the session with the configured pages
	for _, watchURL := range cfg.WatchURLs {
		w.Observe(monitor.Signal{Kind: monitor.FocusGained, URL: watchURL})
	}

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting price watcher")
		workerDone <- w.Run(ctx)
	}()

	// Wait for shutdown signal or worker error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// pageFetcher loads pages with browser-like headers for the monitor.
type pageFetcher struct{}

func (f *pageFetcher) Fetch(_ context.Context, pageURL string) (*goquery.Document, error) {
	body, err := helpers.FetchWithRandomHeaders(pageURL)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(body)
}

// Services holds all the initialized services
type Services struct {
	Store     *store.Store
	Publisher publisher.Publisher
	Analytics *analytics.Client
	Coupons   *coupon.Service
	Users     *user.Service
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize the key-value store
	blob := store.NewMemcacheBlob(cfg.MemcacheAddr)
	if blob == nil {
		return nil, fmt.Errorf("failed to create blob store")
	}
	services.Store = store.New(blob)

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if redisPublisher == nil {
		return nil, fmt.Errorf("failed to create redis publisher")
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	// Initialize analytics and user services
	services.Analytics = analytics.New(cfg.AnalyticsEndpoint, cfg.AnalyticsWriteKey, services.Store, services.Store)
	services.Coupons = coupon.New(services.Store)
	services.Users = user.New(services.Store, services.Coupons)

	return services, nil
}
