package predictor

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Response mirrors an API Gateway proxy response. Body always holds JSON.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Handle decodes one invocation event, dispatches it and maps the outcome
// to a status code. It never returns an error; failures become 4xx/5xx
// responses.
func (h *Handler) Handle(ctx context.Context, event []byte) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("%v", r)
			h.logger.Error("handler panic", zap.Error(err))
			resp = respond(http.StatusInternalServerError, "Internal Server Error: "+err.Error())
		}
	}()

	req, err := DecodeRequest(event)
	if err != nil {
		return h.failure(err, "Internal Server Error: ")
	}

	switch req := req.(type) {
	case FeedbackRequest:
		message, err := h.Resolve(ctx, req)
		if err != nil {
			return h.failure(err, "Database error: ")
		}
		return respond(http.StatusOK, message)
	case PredictionRequest:
		result, err := h.Predict(ctx, req)
		if err != nil {
			return h.failure(err, "Internal Server Error: ")
		}
		return respond(http.StatusOK, result)
	default:
		return respond(http.StatusInternalServerError, "Internal Server Error: unsupported request")
	}
}

func (h *Handler) failure(err error, prefix string) Response {
	if errors.Is(err, ErrValidation) {
		h.logger.Info("rejected request", zap.Error(err))
		return respond(http.StatusBadRequest, err.Error())
	}
	h.logger.Error("request failed", zap.Error(err))
	return respond(http.StatusInternalServerError, prefix+err.Error())
}

func respond(status int, body interface{}) Response {
	encoded, err := json.Marshal(body)
	if err != nil {
		return Response{StatusCode: http.StatusInternalServerError, Body: `"Internal Server Error: encode response"`}
	}
	return Response{StatusCode: status, Body: string(encoded)}
}
