package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/storm-plots-service/internal/adapter/hafs"
	kafkaadapter "github.com/couchcryptid/storm-plots-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-plots-service/internal/adapter/nhc"
	"github.com/couchcryptid/storm-plots-service/internal/adapter/snapshot"
	"github.com/couchcryptid/storm-plots-service/internal/config"
	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/imagestore"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
	"github.com/couchcryptid/storm-plots-service/internal/pipeline"
	"github.com/couchcryptid/storm-plots-service/internal/render"
)

func main() {
	testMode := flag.Bool("test", false, "read feeds from local snapshots, fetching and saving them on first use")
	plots := flag.String("plots", "", "comma-separated plot kinds to render, or \"all\" (overrides PLOT_KINDS)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *plots != "" {
		kinds, err := domain.ParsePlotKinds(*plots)
		if err != nil {
			slog.Error("invalid -plots", "error", err)
			os.Exit(1)
		}
		cfg.PlotKinds = kinds
	}

	logger := observability.NewLogger(cfg)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry(registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := run(ctx, cfg, *testMode, logger, metrics)

	if cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsTextfile, registry); err != nil {
			logger.Error("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}
	if runErr != nil {
		logger.Error("batch failed", "error", runErr)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, testMode bool, logger *slog.Logger, metrics *observability.Metrics) error {
	var aggregator pipeline.Aggregator = nhc.NewClient(cfg.NHCStormsURL, cfg.ATCFBaseURL, cfg.HTTPTimeout, logger, metrics)
	var hazard pipeline.HazardModel = hafs.NewClient(cfg.HAFSBaseURL, cfg.HAFSModels, cfg.HTTPTimeout, logger, metrics)
	if testMode {
		logger.Info("snapshot mode enabled", "dir", cfg.SnapshotDir)
		aggregator = snapshot.NewAggregator(aggregator, cfg.SnapshotDir, logger)
		hazard = snapshot.NewHazardModel(hazard, cfg.SnapshotDir, logger)
	}

	var basemap *render.Basemap
	if cfg.BasemapGeoJSON != "" {
		b, err := render.LoadBasemap(cfg.BasemapGeoJSON)
		if err != nil {
			return err
		}
		basemap = b
	} else {
		logger.Warn("no basemap configured, plots will have no coastlines")
	}
	renderer := render.NewRenderer(basemap, cfg.JPEGQuality)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var notifier pipeline.Notifier
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
		logger.Info("plot notifications enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(aggregator, hazard, renderer, store, notifier, cfg.PlotKinds, logger, metrics)
	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}
	return summaryError(summary)
}

// summaryError fails a run in which every attempted image failed. Skipped
// storms are not failures: a new system often has no official forecast yet.
func summaryError(summary pipeline.Summary) error {
	if summary.ImageFailures > 0 && summary.ImagesWritten == 0 {
		return fmt.Errorf("all %d images failed", summary.ImageFailures)
	}
	return nil
}

// openStore returns the GCS store when IMAGES_BUCKET is set, otherwise the
// local tree under IMAGES_DIR.
func openStore(ctx context.Context, cfg *config.Config) (imagestore.Store, func(), error) {
	if cfg.ImagesBucket == "" {
		return imagestore.NewFS(cfg.ImagesDir), func() {}, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	return imagestore.NewGCS(client, cfg.ImagesBucket), func() { _ = client.Close() }, nil
}
