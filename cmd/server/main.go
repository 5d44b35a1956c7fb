package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/taskdesk/eligibility-service/config"
	_ "github.com/taskdesk/eligibility-service/docs"
	"github.com/taskdesk/eligibility-service/internal/assignments"
	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/eligibility"
	"github.com/taskdesk/eligibility-service/internal/engine"
	"github.com/taskdesk/eligibility-service/internal/handlers"
	httpclient "github.com/taskdesk/eligibility-service/internal/http"
	"github.com/taskdesk/eligibility-service/internal/http/ratelimit"
	"github.com/taskdesk/eligibility-service/internal/lock"
	"github.com/taskdesk/eligibility-service/internal/middleware"
	"github.com/taskdesk/eligibility-service/internal/queue"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
	"github.com/taskdesk/eligibility-service/internal/sweepers"
	"github.com/taskdesk/eligibility-service/internal/telemetry"
	"github.com/taskdesk/eligibility-service/internal/users"
)

// @title						Eligibility Service API
// @version					1.0
// @description				Internal API for eligibility evaluation, assignment publication, and eligibility reads.
// @BasePath					/internal
// @securityDefinitions.apikey	InternalAPIKey
// @in							header
// @name						X-Internal-API-Key
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting eligibility service")

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry disabled, exporter init failed")
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// Both backends are optional at startup: the service runs degraded on
	// its in-memory fallback rather than refusing to start.
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, running without persistent store")
	} else if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Warn().Err(err).Msg("Database unavailable, running without persistent store")
	} else {
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("Schema check failed")
		}
		logger.Info().Msg("Database connected")
	}

	if err := redisconn.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, running without cache, locks and queue")
	} else {
		defer redisconn.Close()
		logger.Info().Msg("Redis connected")
	}

	store := eligibility.NewPostgresStore(database.Pool)
	cache := eligibility.NewRedisCache(redisconn.Client, *logger)
	repo := eligibility.NewRepository(store, cache, *logger)

	if cfg.Engine.WarmOnStart && database.Pool() != nil {
		warmed, err := repo.Warm(ctx, int64(cfg.Engine.WarmConcurrency))
		if err != nil {
			logger.Warn().Err(err).Msg("Cache warm failed")
		} else {
			logger.Info().Int("tasks", warmed).Msg("Cache warmed")
		}
	}

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
	api := handlers.NewAPI(eng, repo, workQueue, *logger)

	depthSweeper := sweepers.NewQueueDepthSweeper(workQueue, *logger, cfg.Engine.SweeperInterval)
	go depthSweeper.Start(ctx)

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	setupRequestLogging(router, logger)

	router.GET("/health", api.Health)
	router.GET("/health/ready", api.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	docs := router.Group("/docs", middleware.RateLimitMiddleware())
	if cfg.Docs.Password != "" {
		docs.Use(gin.BasicAuth(gin.Accounts{cfg.Docs.Username: cfg.Docs.Password}))
	}
	docs.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware())
	internal.Use(middleware.ServiceRateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize))
	{
		internal.POST("/evaluate", api.Evaluate)
		internal.POST("/recompute", api.Recompute)
		internal.POST("/enqueue", api.Enqueue)
		internal.GET("/tasks/:taskID/eligible-users", api.EligibleUsers)
		internal.GET("/my-eligible-tasks", api.MyEligibleTasks)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	depthSweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Debug().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
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

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "eligibility-service").Logger()
	return &logger
}

func setupRequestLogging(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Msg("HTTP request")
	})
}
