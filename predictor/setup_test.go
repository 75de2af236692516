package predictor

import (
	"context"
	"math/rand"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/pubsub"

	"cancerscreen/config"
	"cancerscreen/db"
	"cancerscreen/ml"
)

func trainedModel(t *testing.T) *ml.Pipeline {
	t.Helper()
	rnd := rand.New(rand.NewSource(3))
	var features [][]float64
	var labels []int
	for i := 0; i < 80; i++ {
		label := i % 2
		row := make([]float64, ml.FeatureCount)
		for j := range row {
			row[j] = float64(label)*4 + rnd.NormFloat64()
		}
		features = append(features, row)
		labels = append(labels, label)
	}
	model, err := ml.Fit(features, labels, ml.DefaultOptions())
	require.NoError(t, err)
	model.Classes = []string{"B", "M"}
	return model
}

func TestOpenService(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Storage.ModelBucket = "file://" + filepath.Join(dir)
	cfg.Cases.Driver = config.CasesDriverSQLite
	cfg.Cases.SQLitePath = filepath.Join(dir, "cases.db")
	cfg.Alerts.Topic = "mem://malignant-alerts-setup"

	artifacts, err := ml.OpenArtifactStore(ctx, cfg.Storage.ModelBucket)
	require.NoError(t, err)
	require.NoError(t, artifacts.Upload(ctx, cfg.Storage.ModelKey, trainedModel(t)))
	require.NoError(t, artifacts.Close())

	service, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer service.Close(ctx)

	sub, err := pubsub.OpenSubscription(ctx, "mem://malignant-alerts-setup")
	require.NoError(t, err)
	defer sub.Shutdown(ctx)

	malignant := make([]float64, ml.FeatureCount)
	for i := range malignant {
		malignant[i] = 4
	}
	result, err := service.Predict(ctx, PredictionRequest{ID: "s1", Features: malignant})
	require.NoError(t, err)
	assert.Equal(t, db.PredictionMalignant, result.Prediction)

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := sub.Receive(recvCtx)
	require.NoError(t, err)
	msg.Ack()
	assert.Contains(t, string(msg.Body), "Case ID: s1")

	stored, err := service.Cases.GetCase(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, db.StatusPendingReview, stored.Status)

	resp := service.Handle(ctx, []byte(`{"operation":"feedback","id":"s1","resolution":"confirmed_malignant"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenServiceMissingModel(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.ModelBucket = "file://" + t.TempDir()
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ml.ErrModelNotFound))
}
