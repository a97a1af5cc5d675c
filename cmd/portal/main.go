package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"domebooking/internal/availability"
	"domebooking/internal/backend"
	"domebooking/internal/config"
	"domebooking/internal/discount"
	"domebooking/internal/domain"
	"domebooking/internal/events"
	"domebooking/internal/facility"
	"domebooking/internal/logging"
	"domebooking/internal/metrics"
	"domebooking/internal/repository"
	"domebooking/internal/server"
	"domebooking/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := logging.Component(baseLogger, "portal-main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient := initRedis(ctx, cfg, &logger)
	defer func() { _ = repository.Close(redisClient) }()

	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.BackendTimeout())
	if redisClient != nil {
		client.UseRedisCache(
			redisClient,
			time.Duration(cfg.Backend.CacheTTLSeconds)*time.Second,
			time.Duration(cfg.Backend.AvailabilityTTLSeconds)*time.Second,
		)
	}

	sessions := initSessionStore(cfg, redisClient, &logger)

	bus := events.NewBus()

	facilityLogger := logging.Component(baseLogger, "facility")
	facilities := facility.NewProvider(client, &facilityLogger)

	resolverLogger := logging.Component(baseLogger, "availability")
	resolver := availability.NewResolver(client, cfg.Location(), &resolverLogger)
	resolver.Subscribe(bus)

	discountLogger := logging.Component(baseLogger, "discount")
	discounts := discount.NewService(client, &discountLogger)

	machineLogger := logging.Component(baseLogger, "session")
	machine := session.NewMachine(facilities, resolver, discounts, client, sessions, bus, &machineLogger)

	serverLogger := logging.Component(baseLogger, "http")
	httpServer := server.NewHTTPServer(cfg.Server, machine, resolver, facilities, client, bus, &serverLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("facility", cfg.Portal.DefaultFacility).Msg("portal started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis is not configured; sessions and caches stay in memory")
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Error().Err(err).Msg("redis unavailable; falling back to memory")
		_ = client.Close()
		return nil
	}
	return client
}

func initSessionStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	memory := repository.NewMemorySessionRepository(cfg.SessionTTL())
	if redisClient == nil {
		return memory
	}

	primary := repository.NewRedisSessionRepository(redisClient, cfg.SessionTTL())
	return repository.NewFailoverSessionRepository(primary, memory, logger)
}
