// Package predictor scores incoming feature vectors, records each case and
// applies doctor feedback. It backs both the Lambda entrypoint and the local
// HTTP server.
package predictor

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"cancerscreen/db"
	"cancerscreen/ml"
	"cancerscreen/monitoring"
	"cancerscreen/pipeline"
)

// Notifier raises the alert for a malignant prediction.
type Notifier interface {
	MalignantAlert(ctx context.Context, caseID string) error
}

// EventSink receives case events for live dashboards. Publish must not block.
type EventSink interface {
	Publish(event monitoring.CaseEvent)
}

type PredictionResult struct {
	Prediction  string  `json:"prediction"`
	ID          string  `json:"id"`
	Probability float64 `json:"-"`
}

type Handler struct {
	model    ml.Classifier
	cases    db.CaseStore
	notifier Notifier
	events   EventSink
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Handler)

func WithEvents(sink EventSink) Option {
	return func(h *Handler) { h.events = sink }
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func withClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(model ml.Classifier, cases db.CaseStore, notifier Notifier, opts ...Option) *Handler {
	h := &Handler{
		model:    model,
		cases:    cases,
		notifier: notifier,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Predict classifies the features, stores the case for review and alerts on
// a malignant verdict. The record is written before the alert, so a failed
// publish leaves a stored case behind.
func (h *Handler) Predict(ctx context.Context, req PredictionRequest) (PredictionResult, error) {
	index, probability, err := h.model.Predict(req.Features)
	if err != nil {
		return PredictionResult{}, errors.Mark(errors.Wrap(err, "predict"), ErrInference)
	}
	prediction := db.PredictionBenign
	if index == ml.PositiveClass {
		prediction = db.PredictionMalignant
	}
	h.logger.Info("prediction",
		zap.String("case_id", req.ID),
		zap.String("prediction", prediction),
		zap.Float64("probability", probability))

	record := db.Case{
		ID:          req.ID,
		Features:    pipeline.FeatureText(req.Features),
		Prediction:  prediction,
		Probability: probability,
		Status:      db.StatusPendingReview,
		CreatedAt:   h.now().UTC().Format(time.RFC3339),
	}
	if err := h.cases.PutCase(ctx, record); err != nil {
		return PredictionResult{}, dependencyError(err, "store case %s", req.ID)
	}

	if prediction == db.PredictionMalignant {
		if err := h.notifier.MalignantAlert(ctx, req.ID); err != nil {
			return PredictionResult{}, dependencyError(err, "alert for case %s", req.ID)
		}
	}

	h.emit(monitoring.CaseEvent{
		Type:       monitoring.EventPrediction,
		CaseID:     req.ID,
		Prediction: prediction,
		Status:     db.StatusPendingReview,
	})
	return PredictionResult{Prediction: prediction, ID: req.ID, Probability: probability}, nil
}

// Resolve records the doctor's verdict. The resolution is stored as given.
func (h *Handler) Resolve(ctx context.Context, req FeedbackRequest) (string, error) {
	h.logger.Info("processing feedback", zap.String("case_id", req.ID), zap.String("resolution", req.Resolution))
	if err := h.cases.ResolveCase(ctx, req.ID, req.Resolution); err != nil {
		return "", dependencyError(err, "update case %s", req.ID)
	}
	h.emit(monitoring.CaseEvent{
		Type:       monitoring.EventFeedback,
		CaseID:     req.ID,
		Status:     db.StatusResolved,
		Resolution: req.Resolution,
	})
	return fmt.Sprintf("Case %s resolved as %s", req.ID, req.Resolution), nil
}

func (h *Handler) emit(event monitoring.CaseEvent) {
	if h.events == nil {
		return
	}
	event.Timestamp = h.now().UTC()
	h.events.Publish(event)
}
