package db

import (
	"context"

	"github.com/cockroachdb/errors"

	"cancerscreen/config"
)

const (
	StatusPendingReview = "Pending Review"
	StatusResolved      = "Resolved"

	PredictionMalignant = "M"
	PredictionBenign    = "B"

	ResolutionConfirmedMalignant = "confirmed_malignant"
	ResolutionConfirmedBenign    = "confirmed_benign"
)

var ErrCaseNotFound = errors.New("case not found")

// Case is one patient record: the submitted features, the model's verdict and
// the doctor's review.
type Case struct {
	ID               string  `docstore:"id" json:"id"`
	Features         string  `docstore:"features" json:"features"`
	Prediction       string  `docstore:"prediction" json:"prediction"`
	Probability      float64 `docstore:"probability" json:"probability"`
	Status           string  `docstore:"status" json:"status"`
	DoctorResolution string  `docstore:"doctor_resolution,omitempty" json:"doctor_resolution,omitempty"`
	CreatedAt        string  `docstore:"created_at" json:"created_at"`
}

// CaseStore persists cases keyed by id.
type CaseStore interface {
	// PutCase writes c, replacing any stored case with the same id.
	PutCase(ctx context.Context, c Case) error
	// ResolveCase sets the doctor resolution and marks the case resolved.
	ResolveCase(ctx context.Context, id, resolution string) error
	GetCase(ctx context.Context, id string) (Case, error)
	Close() error
}

// Open returns the case store selected by cfg.Cases.Driver.
func Open(ctx context.Context, cfg config.Config) (CaseStore, error) {
	switch cfg.Cases.Driver {
	case config.CasesDriverDocstore:
		return OpenDocStore(ctx, cfg.Cases.URL)
	case config.CasesDriverSQLite:
		return OpenSQLite(cfg.Cases.SQLitePath)
	default:
		return nil, errors.Newf("unknown cases driver %q", cfg.Cases.Driver)
	}
}
