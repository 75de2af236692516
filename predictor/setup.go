package predictor

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"cancerscreen/config"
	"cancerscreen/db"
	"cancerscreen/ml"
	"cancerscreen/monitoring"
)

// Service is a Handler wired to production dependencies.
type Service struct {
	*Handler
	Model   *ml.Pipeline
	Cases   db.CaseStore
	alerter *monitoring.Alerter
}

// Open loads the model artifact once and connects the case store and the
// alert topic. The model is shared read-only by every request.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	artifacts, err := ml.OpenArtifactStore(ctx, cfg.Storage.ModelBucket)
	if err != nil {
		return nil, err
	}
	defer artifacts.Close()

	logger.Info("loading model", zap.String("bucket", cfg.Storage.ModelBucket), zap.String("key", cfg.Storage.ModelKey))
	model, err := artifacts.LoadModel(ctx, cfg.Storage.ModelKey)
	if err != nil {
		return nil, errors.Wrap(err, "load model")
	}
	logger.Info("model loaded", zap.Strings("classes", model.Classes), zap.Time("trained_at", model.TrainedAt))

	cases, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Cases.CacheSize > 0 {
		cases = db.NewCachedStore(cases, cfg.Cases.CacheSize, cfg.Cases.CacheTTL)
	}

	alerter, err := monitoring.OpenAlerter(ctx, cfg.Alerts.Topic, logger)
	if err != nil {
		cases.Close()
		return nil, err
	}

	opts = append([]Option{WithLogger(logger)}, opts...)
	return &Service{
		Handler: NewHandler(model, cases, alerter, opts...),
		Model:   model,
		Cases:   cases,
		alerter: alerter,
	}, nil
}

func (s *Service) Close(ctx context.Context) error {
	return errors.CombineErrors(s.alerter.Close(ctx), s.Cases.Close())
}
