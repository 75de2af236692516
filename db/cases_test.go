package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/docstore/memdocstore"

	"cancerscreen/config"
)

func newMemDocStore(t *testing.T) CaseStore {
	coll, err := memdocstore.OpenCollection("id", nil)
	require.NoError(t, err)
	return NewDocStore(coll)
}

func newSQLiteStore(t *testing.T) CaseStore {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "cases.db"))
	require.NoError(t, err)
	return store
}

func newCachedStore(t *testing.T) CaseStore {
	return NewCachedStore(newMemDocStore(t), 16, time.Minute)
}

func TestCaseStores(t *testing.T) {
	stores := map[string]func(*testing.T) CaseStore{
		"docstore": newMemDocStore,
		"sqlite":   newSQLiteStore,
		"cached":   newCachedStore,
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			testCaseStore(t, open(t))
		})
	}
}

func testCaseStore(t *testing.T, store CaseStore) {
	ctx := context.Background()
	defer store.Close()

	_, err := store.GetCase(ctx, "p001")
	assert.True(t, errors.Is(err, ErrCaseNotFound), "unknown id: %v", err)

	err = store.ResolveCase(ctx, "p001", ResolutionConfirmedBenign)
	assert.True(t, errors.Is(err, ErrCaseNotFound), "resolve unknown id: %v", err)

	created := Case{
		ID:          "p001",
		Features:    "[17.99, 10.38]",
		Prediction:  PredictionMalignant,
		Probability: 0.93,
		Status:      StatusPendingReview,
		CreatedAt:   "2026-10-18T09:00:00Z",
	}
	require.NoError(t, store.PutCase(ctx, created))

	got, err := store.GetCase(ctx, "p001")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	require.NoError(t, store.ResolveCase(ctx, "p001", ResolutionConfirmedMalignant))
	got, err = store.GetCase(ctx, "p001")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, got.Status)
	assert.Equal(t, ResolutionConfirmedMalignant, got.DoctorResolution)
	assert.Equal(t, created.Features, got.Features, "feedback leaves other fields alone")

	// a new prediction for the same id replaces the whole record
	replaced := Case{
		ID:         "p001",
		Features:   "[11.42, 20.38]",
		Prediction: PredictionBenign,
		Status:     StatusPendingReview,
		CreatedAt:  "2026-10-18T10:00:00Z",
	}
	require.NoError(t, store.PutCase(ctx, replaced))
	got, err = store.GetCase(ctx, "p001")
	require.NoError(t, err)
	assert.Equal(t, replaced, got)
	assert.Empty(t, got.DoctorResolution)
}

func TestTrainingLog(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "training.db"))
	require.NoError(t, err)
	defer store.Close()

	older := TrainingLog{ModelName: "latest_model.json", Accuracy: 0.9, EvaluatedOn: "training", TrainedAt: time.Now().Add(-time.Hour), DataPoints: 569}
	newer := TrainingLog{ModelName: "latest_model.json", Accuracy: 0.95, Precision: 0.97, Recall: 0.9, EvaluatedOn: "holdout", TrainedAt: time.Now(), DataPoints: 114}
	require.NoError(t, store.SaveTrainingLog(ctx, older))
	require.NoError(t, store.SaveTrainingLog(ctx, newer))

	logs, err := store.LoadTrainingLog(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 0.95, logs[0].Accuracy)
	assert.Equal(t, "holdout", logs[0].EvaluatedOn)
	assert.Equal(t, 569, logs[1].DataPoints)
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Cases.Driver = config.CasesDriverDocstore
	cfg.Cases.URL = "mem://cases/id"
	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &DocStore{}, store)
	require.NoError(t, store.Close())

	cfg.Cases.Driver = config.CasesDriverSQLite
	cfg.Cases.SQLitePath = filepath.Join(t.TempDir(), "cases.db")
	store, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	cfg.Cases.Driver = "redis"
	_, err = Open(ctx, cfg)
	assert.Error(t, err)
}

type countingStore struct {
	CaseStore
	gets int
}

func (s *countingStore) GetCase(ctx context.Context, id string) (Case, error) {
	s.gets++
	return s.CaseStore.GetCase(ctx, id)
}

func TestCachedStoreServesRepeatedReads(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{CaseStore: newMemDocStore(t)}
	store := NewCachedStore(inner, 4, time.Minute)
	defer store.Close()

	require.NoError(t, inner.CaseStore.PutCase(ctx, Case{ID: "c1", Prediction: PredictionBenign, Status: StatusPendingReview}))
	for i := 0; i < 3; i++ {
		_, err := store.GetCase(ctx, "c1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.gets)

	require.NoError(t, store.ResolveCase(ctx, "c1", ResolutionConfirmedBenign))
	got, err := store.GetCase(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, got.Status, "resolve evicts the stale entry")
	assert.Equal(t, 2, inner.gets)
}
