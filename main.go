package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cancerscreen/config"
	"cancerscreen/db"
	chttp "cancerscreen/http"
	"cancerscreen/logging"
	"cancerscreen/monitoring"
	"cancerscreen/predictor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Must(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logger.Sync()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Live case feed and counters for the dashboard
	feed := monitoring.NewCaseFeed(logger)
	go feed.Run(ctx)
	metrics := monitoring.NewCaseMetrics()

	// 3. Model, case store and alert topic
	service, err := predictor.Open(ctx, cfg, logger, predictor.WithEvents(monitoring.Sinks{feed, metrics}))
	if err != nil {
		logger.Fatal("failed to initialize predictor", zap.Error(err))
	}

	api := &chttp.API{Invoker: service, Cases: service.Cases, Metrics: metrics, Feed: feed, Logger: logger}
	if cfg.Training.LogDB != "" {
		trainingLog, err := db.OpenSQLite(cfg.Training.LogDB)
		if err != nil {
			logger.Fatal("failed to open training log", zap.Error(err))
		}
		defer trainingLog.Close()
		api.TrainingLog = trainingLog
	}

	// 4. Start HTTP server
	server := chttp.NewServer(chttp.ServerConfigFrom(cfg), api, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	cancel()
	if err := service.Close(shutdownCtx); err != nil {
		logger.Error("close predictor", zap.Error(err))
	}
	logger.Info("exiting")
}
