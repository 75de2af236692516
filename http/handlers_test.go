package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/docstore/memdocstore"

	"cancerscreen/db"
	"cancerscreen/monitoring"
	"cancerscreen/predictor"
)

type malignantModel struct{}

func (malignantModel) Predict([]float64) (int, float64, error) { return 1, 0.9, nil }

type nopNotifier struct{ sent int }

func (n *nopNotifier) MalignantAlert(context.Context, string) error {
	n.sent++
	return nil
}

type testEnv struct {
	server   *Server
	cases    db.CaseStore
	notifier *nopNotifier
	feed     *monitoring.CaseFeed
	metrics  *monitoring.CaseMetrics
}

func newTestEnv(t *testing.T, trainingLog TrainingLogSource) *testEnv {
	t.Helper()
	coll, err := memdocstore.OpenCollection("id", nil)
	require.NoError(t, err)
	cases := db.NewCachedStore(db.NewDocStore(coll), 16, time.Minute)
	t.Cleanup(func() { cases.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	feed := monitoring.NewCaseFeed(nil)
	go feed.Run(ctx)

	metrics := monitoring.NewCaseMetrics()
	notifier := &nopNotifier{}
	handler := predictor.NewHandler(malignantModel{}, cases, notifier,
		predictor.WithEvents(monitoring.Sinks{feed, metrics}))
	api := &API{Invoker: handler, Cases: cases, TrainingLog: trainingLog, Metrics: metrics, Feed: feed}
	server := NewServer(ServerConfig{Port: 0, Timeout: 5 * time.Second, AllowedOrigins: []string{"*"}, MaxBodyBytes: 4096}, api, nil)
	return &testEnv{server: server, cases: cases, notifier: notifier, feed: feed, metrics: metrics}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestInvokeAndLookupCase(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodPost, "/api/invoke", `{"features":[1,2,3],"id":"p001"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"prediction":"M","id":"p001"}`, rr.Body.String())
	assert.Equal(t, 1, env.notifier.sent)

	rr = env.do(http.MethodGet, "/api/cases/p001", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var c db.Case
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c))
	assert.Equal(t, db.StatusPendingReview, c.Status)
	assert.Equal(t, "[1.0, 2.0, 3.0]", c.Features)

	rr = env.do(http.MethodPost, "/api/invoke", `{"operation":"feedback","id":"p001","resolution":"confirmed_malignant"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"Case p001 resolved as confirmed_malignant"`, rr.Body.String())

	rr = env.do(http.MethodGet, "/api/cases/p001", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c))
	assert.Equal(t, db.StatusResolved, c.Status)
	assert.Equal(t, db.ResolutionConfirmedMalignant, c.DoctorResolution)
}

func TestInvokeRelaysClientErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodPost, "/api/invoke", `{"id":"p002"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `"Error: 'features' list is required."`, rr.Body.String())

	rr = env.do(http.MethodPost, "/api/invoke", `{"features":[`+strings.Repeat("1,", 4096)+`1]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestUnknownCase(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodGet, "/api/cases/nobody", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrainingLogRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/training/log", "").Code)

	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "training.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.SaveTrainingLog(context.Background(), db.TrainingLog{
		ModelName:  "latest_model.json",
		Accuracy:   0.97,
		Precision:  0.96,
		Recall:     0.95,
		TrainedAt:  time.Now().UTC(),
		DataPoints: 569,
	}))

	env = newTestEnv(t, store)
	rr := env.do(http.MethodGet, "/api/training/log", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []db.TrainingLog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 569, entries[0].DataPoints)
}

func TestCaseFeedThroughMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws/cases", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/invoke", "application/json", strings.NewReader(`{"features":[1],"id":"live"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var event monitoring.CaseEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "live", event.CaseID)
	assert.Equal(t, db.PredictionMalignant, event.Prediction)
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/invoke", `{"features":[1],"id":"m1"}`).Code)

	rr := env.do(http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var snapshot monitoring.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	assert.Equal(t, 1, snapshot.Predictions[db.PredictionMalignant])
	assert.Equal(t, 1, snapshot.Pending)
}
