package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"cancerscreen/config"
	"cancerscreen/logging"
	"cancerscreen/predictor"
)

func main() {
	// Lambda has no config file; everything comes from the environment.
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	logger := logging.Must(logging.Options{Level: cfg.Log.Level, Format: "json"})
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	// cold start: the model is loaded once per instance
	service, err := predictor.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize handler", zap.Error(err))
	}

	lambda.Start(func(ctx context.Context, event json.RawMessage) (predictor.Response, error) {
		logger.Debug("received event", zap.ByteString("event", event))
		return service.Handle(ctx, event), nil
	})
}
