package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/database"
	httpServer "github.com/redmonkez12/go-task-api/internal/http"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/metrics"
	"github.com/redmonkez12/go-task-api/internal/ratelimit"
	"github.com/redmonkez12/go-task-api/internal/task"
	"github.com/redmonkez12/go-task-api/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"token_format", cfg.Auth.TokenFormat,
	)

	ctx := context.Background()

	// Initialize database connection
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB, cfg.Database.Driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize Redis connection
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer client.Close()
		redisClient = client
	} else {
		logger.Warn("redis disabled, using in-memory denylist and rate limiter")
	}

	var denylist auth.Denylist = auth.NewMemoryDenylist()
	if redisClient != nil {
		denylist = auth.NewRedisDenylist(redisClient)
	}

	// Initialize repositories
	userRepo := user.NewRepository(db)
	taskRepo := task.NewRepository(db)

	// Initialize rate limiter
	rateLimiter := ratelimit.New(cfg.RateLimit, redisClient)

	// Initialize token service
	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	hasher := auth.NewArgon2Hasher(auth.Argon2Params{
		Time:      uint32(cfg.Auth.Argon2Time),
		MemoryKiB: uint32(cfg.Auth.Argon2MemoryKiB),
		Threads:   uint8(cfg.Auth.Argon2Threads),
	}, cfg.Auth.HashConcurrency)

	appMetrics := metrics.New()

	// Initialize services
	authService := auth.NewService(
		userRepo,
		hasher,
		tokenService,
		denylist,
		appMetrics,
		logger,
		cfg.Auth.MaxPasswordLength,
	)
	taskService := task.NewService(taskRepo)

	// Initialize router
	router := httpServer.NewRouter(cfg, httpServer.Deps{
		AuthHandler:    auth.NewHandler(authService, rateLimiter, logger),
		AuthMiddleware: auth.NewMiddleware(authService),
		TaskHandler:    task.NewHandler(taskService),
		Metrics:        appMetrics,
		DB:             db,
		Logger:         logger,
	})

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
