// Package main runs the exposure session server.
//
//	@title			Exposure Session API
//	@version		1.0
//	@description	Session progression engine for guided exposure therapy.
//
//	@BasePath	/api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exposure-server/internal/clients"
	"exposure-server/internal/config"
	"exposure-server/internal/handler"
	"exposure-server/internal/messaging"
	"exposure-server/internal/playback"
	"exposure-server/internal/service"
	sharedDatabase "exposure-server/shared/database"
	"exposure-server/shared/interfaces"
	sharedLogger "exposure-server/shared/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Service:  "session-server",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting session server", zap.String("logLevel", cfg.Log.Level))

	var redisClient *redis.Client
	if cfg.Rewards.Store == config.StoreRedis {
		redisClient, err = setupRedis(cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
	}

	var rewardRepo interfaces.RewardRepository
	switch cfg.Rewards.Store {
	case config.StorePostgres:
		dbPool, err := setupDatabase(cfg.Postgres)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer dbPool.Close()
		logger.Info("Connected to PostgreSQL")

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = sharedDatabase.NewMigrator(dbPool, logger).Up(migrateCtx)
		cancel()
		if err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		rewardRepo = sharedDatabase.NewPgRewardRepository(dbPool, logger)
	default:
		rewardRepo = sharedDatabase.NewRedisRewardRepository(redisClient, logger)
	}

	var publisher interfaces.SessionEventPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbitConn, err := messaging.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.RetryDelay, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer func() { _ = rabbitConn.Close() }()

		rabbitPublisher, err := messaging.NewRabbitMQSessionEventPublisher(rabbitConn, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Fatal("Failed to create session event publisher", zap.Error(err))
		}
		defer func() { _ = rabbitPublisher.Close() }()
		publisher = rabbitPublisher
	} else {
		logger.Warn("RABBITMQ_URL is empty, session records will not be delivered")
	}

	mediaResolver, err := setupMediaResolver(cfg.Media, logger)
	if err != nil {
		logger.Fatal("Failed to set up media resolution", zap.Error(err))
	}

	clock := time.Now
	deps := service.EngineDeps{
		Scenario:  clients.NewHTTPScenarioClient(cfg.Scenario.BaseURL, cfg.Scenario.Timeout, logger),
		Media:     mediaResolver,
		Ledger:    service.NewRewardLedger(rewardRepo, clock, logger),
		Publisher: publisher,
		Clock:     clock,
		Logger:    logger,
	}
	registry := service.NewSessionRegistry(deps, func() playback.AudioDriver {
		return playback.NewRemoteAudioDriver(cfg.Playback.ProbeTimeout, logger)
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go registry.RunJanitor(janitorCtx, cfg.Sessions.JanitorInterval, cfg.Sessions.IdleTTL)

	manager := handler.NewConnectionManager(logger)

	var rateLimit gin.HandlerFunc
	if cfg.Server.RateLimitRequests > 0 {
		rateLimit = handler.NewRateLimiter(redisClient, cfg.Server.RateLimitWindow, cfg.Server.RateLimitRequests, logger)
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		Sessions:       handler.NewSessionHandler(registry, logger),
		WebSocket:      handler.NewWebSocketHandler(registry, manager, cfg.Server.AllowedOrigins, cfg.Sessions.EventBuffer, logger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      rateLimit,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	stopJanitor()
	manager.Stop()
	registry.Close()
	logger.Info("Session server stopped")
}

func setupRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	return client, nil
}

func setupDatabase(cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return dbPool, nil
}

// setupMediaResolver returns nil when media suggestions are switched off.
func setupMediaResolver(cfg config.MediaConfig, logger *zap.Logger) (interfaces.MediaResolver, error) {
	switch cfg.Mode {
	case config.MediaModeOff:
		logger.Info("Media suggestions disabled")
		return nil, nil
	case config.MediaModeCatalog:
		catalog, err := clients.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		var ai clients.ChatCompleter
		if cfg.AIAPIKey != "" {
			ai = clients.NewOpenAIChatCompleter(clients.AIConfig{
				APIKey:  cfg.AIAPIKey,
				BaseURL: cfg.AIBaseURL,
				Model:   cfg.AIModel,
				Timeout: cfg.AITimeout,
			})
		}
		logger.Info("Media suggestions from catalog", zap.String("path", cfg.CatalogPath), zap.Bool("ai", ai != nil))
		return clients.NewCatalogMediaResolver(catalog, ai, cfg.AIModel, logger), nil
	default:
		return clients.NewHTTPMediaResolver(cfg.BaseURL, cfg.Timeout, logger), nil
	}
}
