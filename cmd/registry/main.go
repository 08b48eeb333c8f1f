package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/redflag/internal/registry/config"
	"github.com/gartstein/redflag/internal/registry/controller"
	"github.com/gartstein/redflag/internal/registry/db"
	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/handlers"
	"github.com/gartstein/redflag/internal/registry/ingest"
	"github.com/gartstein/redflag/internal/registry/ratelimit"
	"github.com/gartstein/redflag/internal/registry/reporting"
	"github.com/gartstein/redflag/internal/registry/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// repository is what the registry needs from a store besides the
// controller surface.
type repository interface {
	controller.Repository
	ingest.Repository
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(2)
	}

	logger := initLogger(cfg.Log.Development)
	err = run(cfg, logger)
	if err != nil {
		logger.Error("Registry stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the registry and serves until SIGINT or SIGTERM. Deferred
// cleanup runs before it returns.
func run(cfg *config.Config, logger *zap.Logger) error {
	if err := reporting.Init(reporting.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
	}); err != nil {
		logger.Warn("Error reporting disabled", zap.Error(err))
	}
	defer reporting.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := initRepository(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close repository", zap.Error(err))
		}
	}()

	if cfg.Seed.Path != "" {
		fx, err := ingest.LoadFixture(cfg.Seed.Path)
		if err != nil {
			return fmt.Errorf("load seed fixture: %w", err)
		}
		if err := ingest.Seed(ctx, repo, fx, logger); err != nil {
			return fmt.Errorf("seed repository: %w", err)
		}
	}

	producer, closeProducer := initProducer(cfg, logger)
	defer closeProducer()

	limiter, closeLimiter := initLimiter(cfg, logger)
	defer closeLimiter()

	registrySvc := controller.NewRegistryService(repo, producer, logger)
	registryHandler := handlers.NewRegistryHandler(registrySvc, logger)

	server := handlers.NewServer(cfg.Server.GRPCPort, cfg.Server.HTTPPort, logger,
		handlers.ServerOptions(cfg.JWT.Secret, limiter, logger)...)
	server.RegisterGRPCHandler(registryHandler)
	if err := server.RegisterHTTPGateway(registryHandler, cfg.JWT.Secret, limiter); err != nil {
		return fmt.Errorf("register HTTP gateway: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("Servers stopped properly")
	return nil
}

func initLogger(development bool) *zap.Logger {
	if development {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

// initRepository opens the configured store, retrying database connections
// until database.connect_timeout elapses.
func initRepository(cfg *config.Config, logger *zap.Logger) (repository, error) {
	if cfg.Database.Driver == "memory" {
		logger.Info("Using in-memory repository")
		return store.NewMemory(), nil
	}

	dbConf := &db.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		Path:     cfg.Database.Path,
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.Database.ConnectTimeout

	var repo *db.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(dbConf)
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
	return repo, nil
}

func initProducer(cfg *config.Config, logger *zap.Logger) (controller.EventProducer, func()) {
	if !cfg.Kafka.Enabled {
		logger.Info("Kafka disabled, events are discarded")
		return events.NopProducer{}, func() {}
	}

	err := backoff.Retry(func() error {
		return events.EnsureTopic(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions, logger)
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		logger.Warn("Kafka topic not verified", zap.Error(err))
	}

	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BufferSize, logger)
	return producer, producer.Close
}

func initLimiter(cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func()) {
	if !cfg.RateLimit.Enabled {
		return ratelimit.Unlimited{}, func() {}
	}
	if cfg.RateLimit.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("Using redis rate limiter", zap.String("addr", cfg.Redis.Addr))
		return ratelimit.NewRedis(client, cfg.RateLimit.Limit, cfg.RateLimit.Window, "redflag:ratelimit"), func() {
			if err := client.Close(); err != nil {
				logger.Error("Failed to close redis client", zap.Error(err))
			}
		}
	}
	return ratelimit.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window), func() {}
}
