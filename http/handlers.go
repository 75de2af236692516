package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"cancerscreen/db"
	"cancerscreen/monitoring"
	"cancerscreen/predictor"
)

// Invoker runs one prediction or feedback event.
type Invoker interface {
	Handle(ctx context.Context, event []byte) predictor.Response
}

// TrainingLogSource lists past training runs, newest first.
type TrainingLogSource interface {
	LoadTrainingLog(ctx context.Context) ([]db.TrainingLog, error)
}

// MetricsSource reports counters of the cases handled so far.
type MetricsSource interface {
	Snapshot() monitoring.MetricsSnapshot
}

// API serves the local equivalents of the deployed function plus read-only
// views of cases and training runs. TrainingLog, Metrics and Feed are
// optional.
type API struct {
	Invoker     Invoker
	Cases       db.CaseStore
	TrainingLog TrainingLogSource
	Metrics     MetricsSource
	Feed        http.Handler
	Logger      *zap.Logger
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/invoke", a.handleInvoke)
	mux.HandleFunc("GET /api/cases/{id}", a.handleCase)
	mux.HandleFunc("GET /api/training/log", a.handleTrainingLog)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	if a.Feed != nil {
		mux.Handle("GET /api/ws/cases", a.Feed)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInvoke feeds the raw body to the handler and relays its status code
// and JSON body unchanged.
func (a *API) handleInvoke(w http.ResponseWriter, r *http.Request) {
	event, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	resp := a.Invoker.Handle(r.Context(), event)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	io.WriteString(w, resp.Body)
}

func (a *API) handleCase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	c, err := a.Cases.GetCase(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "case not found")
	case err != nil:
		a.logger().Error("get case", zap.String("case_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (a *API) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if a.TrainingLog == nil {
		writeError(w, http.StatusNotFound, "training log not configured")
		return
	}
	entries, err := a.TrainingLog.LoadTrainingLog(r.Context())
	if err != nil {
		a.logger().Error("load training log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []db.TrainingLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if a.Metrics == nil {
		writeError(w, http.StatusNotFound, "metrics not configured")
		return
	}
	writeJSON(w, http.StatusOK, a.Metrics.Snapshot())
}

func (a *API) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
