// Command weather-eda runs the exploratory analysis over a weather CSV once
// and, when HTTP_ADDR is set, keeps serving the results until interrupted.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-eda/internal/adapter/http"
	"github.com/couchcryptid/weather-eda/internal/adapter/excel"
	kafkaadapter "github.com/couchcryptid/weather-eda/internal/adapter/kafka"
	"github.com/couchcryptid/weather-eda/internal/adapter/leaflet"
	"github.com/couchcryptid/weather-eda/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-eda/internal/adapter/minio"
	"github.com/couchcryptid/weather-eda/internal/chart"
	"github.com/couchcryptid/weather-eda/internal/config"
	"github.com/couchcryptid/weather-eda/internal/observability"
	"github.com/couchcryptid/weather-eda/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := pipeline.Deps{
		Charts:  chart.NewRenderer(cfg.OutputDir),
		Map:     leaflet.NewRenderer(cfg.OutputDir, cfg.MapboxToken),
		Report:  excel.NewWriter(cfg.OutputDir),
		Console: os.Stdout,
	}

	// Optional collaborators, each enabled by its own environment variables.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		deps.Geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		deps.Publisher = writer
		logger.Info("anomaly publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAnomalyTopic)
	}

	var store *minio.Store
	if cfg.MinioEnabled {
		store, err = minio.New(cfg, logger)
		if err != nil {
			logger.Error("failed to create artifact store", "error", err)
			return 1
		}
		deps.Store = store
		logger.Info("artifact upload enabled", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	}

	p := pipeline.New(pipeline.Options{
		OutputDir:     cfg.OutputDir,
		Seed:          cfg.Seed,
		TestFraction:  cfg.TestFraction,
		Contamination: cfg.Contamination,
	}, deps, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		ready := httpadapter.ReadinessGroup{p}
		if store != nil {
			ready = append(ready, store)
		}
		srv = httpadapter.NewServer(cfg.HTTPAddr, cfg.OutputDir, leaflet.HTMLFile, ready, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	code := 0
	if _, err := p.Run(ctx, cfg.InputPath); err != nil {
		code = 1
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics textfile export failed", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	if srv != nil && code == 0 {
		logger.Info("serving results until interrupted", "addr", cfg.HTTPAddr)
		<-ctx.Done()
	}
	shutdown(cfg, logger, srv, writer)
	return code
}

func shutdown(cfg *config.Config, logger *slog.Logger, srv *httpadapter.Server, writer *kafkaadapter.Writer) {
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
