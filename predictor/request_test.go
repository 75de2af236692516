package predictor

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name  string
		event string
		want  Request
	}{
		{
			name:  "bare prediction",
			event: `{"features":[1.5,2],"id":"p001"}`,
			want:  PredictionRequest{ID: "p001", Features: []float64{1.5, 2}},
		},
		{
			name:  "missing id",
			event: `{"features":[1]}`,
			want:  PredictionRequest{ID: UnknownID, Features: []float64{1}},
		},
		{
			name:  "string body",
			event: `{"body":"{\"features\":[3],\"id\":\"p002\"}"}`,
			want:  PredictionRequest{ID: "p002", Features: []float64{3}},
		},
		{
			name:  "object body",
			event: `{"body":{"operation":"feedback","id":"p003","resolution":"confirmed_benign"}}`,
			want:  FeedbackRequest{ID: "p003", Resolution: "confirmed_benign"},
		},
		{
			name:  "null body falls back to the event",
			event: `{"body":null,"operation":"feedback","id":"p004","resolution":"whatever"}`,
			want:  FeedbackRequest{ID: "p004", Resolution: "whatever"},
		},
		{
			name:  "numeric id",
			event: `{"features":[1],"id":42}`,
			want:  PredictionRequest{ID: "42", Features: []float64{1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.event))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		message string
	}{
		{"feedback without id", `{"operation":"feedback","resolution":"confirmed_benign"}`, "Missing id or resolution"},
		{"feedback with empty resolution", `{"operation":"feedback","id":"p1","resolution":""}`, "Missing id or resolution"},
		{"no features", `{"id":"p1"}`, "Error: 'features' list is required."},
		{"empty features", `{"id":"p1","features":[]}`, "Error: 'features' list is required."},
		{"null features", `{"features":null}`, "Error: 'features' list is required."},
		{"non numeric features", `{"features":["a"]}`, ""},
		{"malformed json", `{"features":`, ""},
		{"malformed body string", `{"body":"not json"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.event))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}
