package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/outcry/outcry/internal/auction"
	"github.com/outcry/outcry/internal/config"
	"github.com/outcry/outcry/internal/infra/database"
	"github.com/outcry/outcry/internal/infra/events"
	redisinfra "github.com/outcry/outcry/internal/infra/redis"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down auctiond...")
		cancel()
	}()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}
	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("Unable to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Connect to RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	// 3. Connect to Redis
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Redis failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("Redis Connected")

	reductionFactor, err := decimal.NewFromString(cfg.ReductionFactor)
	if err != nil {
		logger.Error("Invalid price reduction factor", "error", err)
		os.Exit(1)
	}

	// 4. Infrastructure adapters
	store := database.NewPostgresEventStore(pool, cfg.LockTimeout)
	cursors := database.NewPostgresCursorStore(pool)
	sequences := redisinfra.NewSequenceService(rdb)

	publisher, err := events.NewRabbitMQPublisher(amqpConn)
	if err != nil {
		logger.Error("Failed to create publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	cache := auction.NewTTLCache(cfg.CacheTTL)

	// 5. Command service and timer wiring. Timer callbacks re-enter
	// the command path; they get no special treatment.
	var service *auction.CommandService
	timers := redisinfra.NewTimerService(rdb, redisinfra.TimerCallbacks{
		CloseAuction: func(ctx context.Context, auctionID auction.AuctionID) error {
			return service.OnCloseTimer(ctx, auctionID)
		},
		ReducePrice: func(ctx context.Context, auctionID auction.AuctionID) error {
			return service.OnPriceReductionTimer(ctx, auctionID, reductionFactor)
		},
	}, cfg.TimerResolution, logger)
	service = auction.NewCommandService(store, publisher, sequences, timers, cache, logger, cfg.CommandRetries)

	relay := events.NewEventRelay(store, cursors, publisher, cfg.RelayConsumer, cfg.RelayBatchSize, cfg.RelayInterval, logger)

	logger.Info("Services Initialized")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return relay.Run(groupCtx) })
	group.Go(func() error { return timers.Run(groupCtx) })

	if err := group.Wait(); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("auctiond stopped")
}
