package main

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gocloud.dev/blob"

	"cancerscreen/config"
	"cancerscreen/db"
	"cancerscreen/ml"
	"cancerscreen/pipeline"
)

// run fetches the dataset, trains and evaluates the pipeline, then uploads
// it. Nothing is uploaded unless every earlier step succeeded.
func run(ctx context.Context, cfg config.Config, localModel string, logger *zap.Logger) (string, error) {
	if err := fetchDataset(ctx, cfg, logger); err != nil {
		return "", err
	}

	file, err := os.Open(cfg.Storage.LocalDatasetPath)
	if err != nil {
		return "", errors.Wrap(err, "open dataset")
	}
	set, err := pipeline.ReadTrainingSet(file)
	file.Close()
	if err != nil {
		return "", errors.Wrapf(err, "read dataset %s", cfg.Storage.LocalDatasetPath)
	}

	model, metrics, evaluatedOn, err := train(set, cfg, logger)
	if err != nil {
		return "", err
	}

	if cfg.Training.LogDB != "" {
		if err := recordRun(ctx, cfg, metrics, evaluatedOn, model.TrainedAt, len(set.Features)); err != nil {
			return "", err
		}
	}

	if localModel != "" {
		if err := saveLocal(model, localModel); err != nil {
			return "", err
		}
		logger.Info("model saved locally", zap.String("path", localModel))
	}

	if err := upload(ctx, cfg, model, logger); err != nil {
		return "", err
	}
	return objectLocation(cfg.Storage.ModelBucket, cfg.Storage.ModelKey), nil
}

func fetchDataset(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if _, err := os.Stat(cfg.Storage.LocalDatasetPath); err == nil {
		return nil
	}
	bucket, err := blob.OpenBucket(ctx, cfg.Storage.DatasetBucket)
	if err != nil {
		return errors.Wrapf(err, "open dataset bucket %s", cfg.Storage.DatasetBucket)
	}
	defer bucket.Close()
	return pipeline.Fetch(ctx, bucket, cfg.Storage.DatasetKey, cfg.Storage.LocalDatasetPath, pipeline.FetchOptions{
		Attempts: cfg.Training.Attempts,
		Logger:   logger,
	})
}

func train(set *pipeline.TrainingSet, cfg config.Config, logger *zap.Logger) (*ml.Pipeline, ml.Metrics, string, error) {
	encoder := &ml.LabelEncoder{}
	labels, err := encoder.FitTransform(set.Labels)
	if err != nil {
		return nil, ml.Metrics{}, "", errors.Wrap(err, "encode labels")
	}
	if len(encoder.Classes) != 2 {
		return nil, ml.Metrics{}, "", errors.Newf("expected two diagnoses, got %v", encoder.Classes)
	}

	trainX, trainY, testX, testY := ml.SplitDataset(set.Features, labels, cfg.Training.TestRatio, cfg.Training.Seed)
	evaluatedOn := "holdout"
	if len(testX) == 0 {
		testX, testY = trainX, trainY
		evaluatedOn = "training"
	}

	logger.Info("training model",
		zap.Int("rows", len(trainX)),
		zap.Int("features", len(set.Columns)-1),
		zap.Strings("classes", encoder.Classes))
	model, err := ml.Fit(trainX, trainY, ml.Options{
		C:          cfg.Training.C,
		Components: cfg.Training.Components,
		MaxIter:    cfg.Training.MaxIter,
		Tolerance:  cfg.Training.Tolerance,
		Seed:       cfg.Training.Seed,
	})
	if err != nil {
		return nil, ml.Metrics{}, "", errors.Wrap(err, "fit model")
	}
	model.Classes = encoder.Classes
	logger.Info("training complete")

	metrics := ml.Evaluate(model, testX, testY)
	logger.Info("evaluation",
		zap.String("evaluated_on", evaluatedOn),
		zap.Int("samples", metrics.Samples),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall))
	return model, metrics, evaluatedOn, nil
}

func recordRun(ctx context.Context, cfg config.Config, metrics ml.Metrics, evaluatedOn string, trainedAt time.Time, rows int) error {
	store, err := db.OpenSQLite(cfg.Training.LogDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveTrainingLog(ctx, db.TrainingLog{
		ModelName:   cfg.Storage.ModelKey,
		Accuracy:    metrics.Accuracy,
		Precision:   metrics.Precision,
		Recall:      metrics.Recall,
		EvaluatedOn: evaluatedOn,
		TrainedAt:   trainedAt,
		DataPoints:  rows,
	})
}

func saveLocal(model *ml.Pipeline, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create local model")
	}
	if err := model.Save(file); err != nil {
		file.Close()
		return errors.Wrap(err, "write local model")
	}
	return file.Close()
}

func upload(ctx context.Context, cfg config.Config, model *ml.Pipeline, logger *zap.Logger) error {
	store, err := ml.OpenArtifactStore(ctx, cfg.Storage.ModelBucket)
	if err != nil {
		return err
	}
	defer store.Close()

	attempts := cfg.Training.Attempts
	if attempts == 0 {
		// zero means retry forever to retry-go
		attempts = 1
	}
	logger.Info("uploading model", zap.String("key", cfg.Storage.ModelKey))
	return retry.Do(
		func() error { return store.Upload(ctx, cfg.Storage.ModelKey, model) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("upload failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

// objectLocation renders bucket URL and key without driver query options,
// e.g. s3://breast-cancer-prediction-models/latest_model.json.
func objectLocation(bucketURL, key string) string {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return bucketURL + "/" + key
	}
	u.RawQuery = ""
	return strings.TrimSuffix(u.String(), "/") + "/" + key
}
