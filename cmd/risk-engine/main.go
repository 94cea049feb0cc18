package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/advisory"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/api"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/config"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/inference"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/metrics"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/model"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/refdata"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/training"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting risk engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	table, err := refdata.Load(cfg.RefData.Path)
	if err != nil {
		logger.Error("failed to load reference data", slog.Any("error", err))
		os.Exit(1)
	}

	advisor, err := advisory.NewGenerator(cfg.Advisory.Path, logger)
	if err != nil {
		logger.Error("failed to load advisory pack", slog.Any("error", err))
		os.Exit(1)
	}

	store := model.NewStore(cfg.Store.Dir, cfg.Store.LegacyModelPath, table, logger)
	if active := store.LoadActive(); active.Fallback {
		logger.Warn("no trained model artifact found, serving fallback until retraining")
	}

	svc := inference.NewService(store, table, advisor, logger)
	pipeline := training.NewPipeline(cfg.Retraining, store, logger)
	handler := api.NewHandler(svc, pipeline, store, table, *cfg, logger)
	server := api.NewServer(cfg.Server, handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("risk engine stopped")
}
