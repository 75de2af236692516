package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"cancerscreen/config"
	"cancerscreen/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	dataPath := flag.String("data", "", "local dataset path, downloaded from the dataset bucket when missing")
	modelKey := flag.String("model_key", "", "object key of the uploaded model")
	testRatio := flag.Float64("test_ratio", -1, "share of rows held out for evaluation (0 evaluates on the training set)")
	c := flag.Float64("c", 0, "SVM regularization parameter")
	logDB := flag.String("log_db", "", "sqlite file recording training runs")
	localModel := flag.String("local_model", "model_v1.json", "local copy of the model, empty to skip")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Storage.LocalDatasetPath = *dataPath
	}
	if *modelKey != "" {
		cfg.Storage.ModelKey = *modelKey
	}
	if *testRatio >= 0 {
		cfg.Training.TestRatio = *testRatio
	}
	if *c > 0 {
		cfg.Training.C = *c
	}
	if *logDB != "" {
		cfg.Training.LogDB = *logDB
	}

	logger := logging.Must(logging.Options{Level: cfg.Log.Level, Format: "console"})
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := run(ctx, cfg, *localModel, logger)
	if err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
	fmt.Printf("Success! Model uploaded to %s\n", location)
}
