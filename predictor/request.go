package predictor

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	OperationFeedback = "feedback"
	UnknownID         = "unknown_id"
)

// Request is either a PredictionRequest or a FeedbackRequest.
type Request interface {
	operation() string
}

type PredictionRequest struct {
	ID       string
	Features []float64
}

type FeedbackRequest struct {
	ID         string
	Resolution string
}

func (PredictionRequest) operation() string { return "predict" }
func (FeedbackRequest) operation() string   { return OperationFeedback }

type envelope struct {
	Body json.RawMessage `json:"body"`
}

type payload struct {
	Operation  string          `json:"operation"`
	ID         json.RawMessage `json:"id"`
	Resolution json.RawMessage `json:"resolution"`
	Features   json.RawMessage `json:"features"`
}

// DecodeRequest accepts either a bare request object or an API Gateway
// proxy event whose body is a JSON string or an embedded object.
func DecodeRequest(event []byte) (Request, error) {
	raw, err := unwrapBody(event)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode request body"), ErrValidation)
	}

	if p.Operation == OperationFeedback {
		id := scalarText(p.ID)
		resolution := scalarText(p.Resolution)
		if id == "" || resolution == "" {
			return nil, validationError("Missing id or resolution")
		}
		return FeedbackRequest{ID: id, Resolution: resolution}, nil
	}

	var features []float64
	if !isNull(p.Features) {
		if err := json.Unmarshal(p.Features, &features); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "features must be a list of numbers"), ErrValidation)
		}
	}
	if len(features) == 0 {
		return nil, validationError("Error: 'features' list is required.")
	}
	id := UnknownID
	if !isNull(p.ID) {
		id = scalarText(p.ID)
	}
	return PredictionRequest{ID: id, Features: features}, nil
}

func unwrapBody(event []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(event, &env); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode event"), ErrValidation)
	}
	if isNull(env.Body) {
		return event, nil
	}
	body := bytes.TrimSpace(env.Body)
	if body[0] != '"' {
		return body, nil
	}
	var text string
	if err := json.Unmarshal(body, &text); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode event body"), ErrValidation)
	}
	return []byte(text), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// scalarText renders a JSON string as its value and any other scalar as its
// literal text. Empty strings, false and null come back empty.
func scalarText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "false" || text == "0" {
		return ""
	}
	return text
}
