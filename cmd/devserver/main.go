package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/carside/devserver"
	"github.com/example/carside/pkg/config"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting dev server",
		zap.String("host", cfg.DevServer.Host),
		zap.Int("port", cfg.DevServer.Port))

	// Pick the order store: Redis when configured and reachable, memory
	// otherwise.
	var store devserver.OrderStore = devserver.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		redisStore := devserver.NewRedisStore(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory store", zap.Error(err))
			redisStore.Close()
		} else {
			logger.Info("Using Redis order store", zap.String("addr", cfg.Redis.Addr))
			store = redisStore
		}
		cancel()
	}

	srv := devserver.NewServer(cfg, logger, store)
	srv.SetupRoutes()

	// Start server in goroutine
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			srvErr <- err
		}
	}()

	logger.Info("Dev server started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-srvErr:
		logger.Fatal("Dev server error", zap.Error(err))
	}

	logger.Info("Dev server stopped")
}
