package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskdesk/eligibility-service/config"
	"github.com/taskdesk/eligibility-service/internal/assignments"
	"github.com/taskdesk/eligibility-service/internal/consumer"
	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/eligibility"
	"github.com/taskdesk/eligibility-service/internal/engine"
	httpclient "github.com/taskdesk/eligibility-service/internal/http"
	"github.com/taskdesk/eligibility-service/internal/http/ratelimit"
	"github.com/taskdesk/eligibility-service/internal/lock"
	"github.com/taskdesk/eligibility-service/internal/queue"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
	"github.com/taskdesk/eligibility-service/internal/telemetry"
	"github.com/taskdesk/eligibility-service/internal/users"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting eligibility worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry disabled, exporter init failed")
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, results held in memory only")
	} else if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Warn().Err(err).Msg("Database unavailable, results held in memory only")
	} else {
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("Schema check failed")
		}
		logger.Info().Msg("Database connected")
	}

	if err := redisconn.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, consumer will idle until it connects")
		go retryRedis(ctx, cfg, logger)
	} else {
		defer redisconn.Close()
		logger.Info().Msg("Redis connected")
	}

	store := eligibility.NewPostgresStore(database.Pool)
	cache := eligibility.NewRedisCache(redisconn.Client, *logger)
	repo := eligibility.NewRepository(store, cache, *logger)

	outbound := httpclient.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.Outbound.RequestsPerSecond,
		Burst:             cfg.Outbound.Burst,
		MaxRetries:        cfg.Outbound.MaxRetries,
		InitialBackoff:    cfg.Outbound.InitialBackoff,
		MaxBackoff:        cfg.Outbound.MaxBackoff,
	})

	eng := engine.New(
		lock.NewRedisManager(redisconn.Client, cfg.Engine.LockTTL, *logger),
		users.NewClient(cfg.Services.UserServiceURL, outbound, *logger),
		repo,
		assignments.NewPublisher(cfg.Services.TaskServiceURL, outbound, *logger),
		*logger,
	)

	workQueue := queue.New(redisconn.Client, *logger)
	cons := consumer.New(workQueue, eng, cfg.Engine.ConsumerIdle, *logger)

	done := make(chan struct{})
	go func() {
		cons.Start(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down worker...")
	cons.Stop()
	cancel()

	select {
	case <-done:
	case <-time.After(queue.DequeueTimeout + time.Second):
		logger.Warn().Msg("Consumer did not stop in time")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Debug().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Worker exited")
}

// retryRedis keeps trying to establish the Redis connection so a worker that
// started during an outage recovers without a restart.
func retryRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := redisconn.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err == nil {
				logger.Info().Msg("Redis connected")
				return
			}
		}
	}
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "eligibility-worker").Logger()
	return &logger
}
