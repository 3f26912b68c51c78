package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"

	httpadapter "github.com/couchcryptid/storm-plots-service/internal/adapter/http"
	"github.com/couchcryptid/storm-plots-service/internal/config"
	"github.com/couchcryptid/storm-plots-service/internal/imagestore"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store imagestore.Store
	if cfg.ImagesBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			logger.Error("failed to create storage client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		store = imagestore.NewGCS(client, cfg.ImagesBucket)
		logger.Info("serving images from bucket", "bucket", cfg.ImagesBucket)
	} else {
		store = imagestore.NewFS(cfg.ImagesDir)
		logger.Info("serving images from directory", "dir", cfg.ImagesDir)
	}
	if cfg.ImageCacheSize > 0 {
		store = imagestore.NewCached(store, cfg.ImageCacheSize, metrics)
		logger.Info("image cache enabled", "entries", cfg.ImageCacheSize)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, logger, metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
