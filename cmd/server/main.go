package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carbontrack/internal/server/api"
	"carbontrack/internal/server/auth"
	"carbontrack/internal/server/cache"
	"carbontrack/internal/server/config"
	"carbontrack/internal/server/database"
	"carbontrack/internal/server/service"
	"carbontrack/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"upload_dir", cfg.UploadDir,
		"upload_random_suffix", cfg.UploadRandomSuffix,
		"leaderboard_cache_ttl", cfg.LeaderboardCacheTTL,
	)
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set; every authenticated route will answer 401")
	}

	// Connect to the activity store
	ctx := context.Background()
	store, err := database.Open(ctx, cfg.DatabaseURL, database.Options{MongoDatabase: cfg.MongoDatabase})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// The upload directory is expected to exist already
	if info, err := os.Stat(cfg.UploadDir); err != nil || !info.IsDir() {
		slog.Warn("upload directory is missing; uploads will fail until it is created", "path", cfg.UploadDir)
	}
	var uploadOpts []storage.Option
	if cfg.UploadRandomSuffix {
		uploadOpts = append(uploadOpts, storage.WithRandomSuffix())
	}
	uploads := storage.NewDiskStorage(cfg.UploadDir, uploadOpts...)

	// Optional leaderboard cache
	var svcOpts []service.Option
	var leaderboardCache *cache.LeaderboardCache
	if cfg.RedisURL != "" && cfg.LeaderboardCacheTTL > 0 {
		leaderboardCache, err = cache.NewLeaderboardCache(ctx, cfg.RedisURL, cfg.LeaderboardCacheTTL)
		if err != nil {
			slog.Error("failed to connect to redis, leaderboard cache disabled", "error", err)
		} else {
			svcOpts = append(svcOpts, service.WithLeaderboardCache(leaderboardCache))
			slog.Info("leaderboard cache enabled", "ttl", cfg.LeaderboardCacheTTL)
		}
	}

	svc := service.NewActivityService(store, svcOpts...)

	// Setup HTTP router
	handler := api.NewHandler(svc, uploads, auth.NewVerifier(cfg.JWTSecret), store)
	e := api.SetupRouter(handler, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	if leaderboardCache != nil {
		if err := leaderboardCache.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	if err := store.Close(shutdownCtx); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("server exited cleanly")
}
