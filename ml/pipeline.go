package ml

import (
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
)

// FormatVersion identifies the JSON layout of a saved Pipeline.
const FormatVersion = 1

type Options struct {
	C          float64
	Components int
	MaxIter    int
	Tolerance  float64
	Seed       int64
}

// DefaultOptions are the hyperparameters the production model is trained with.
func DefaultOptions() Options {
	return Options{C: 0.1, Components: 2, MaxIter: 1000, Tolerance: 1e-4, Seed: 42}
}

// Pipeline standardizes, projects onto principal components, then classifies
// with a calibrated linear SVM.
type Pipeline struct {
	FormatVersion int             `json:"format_version"`
	Classes       []string        `json:"classes"`
	Features      int             `json:"features"`
	Scaler        *StandardScaler `json:"scaler"`
	PCA           *PCA            `json:"pca"`
	SVC           *LinearSVC      `json:"svc"`
	Platt         *PlattScaler    `json:"platt"`
	TrainedAt     time.Time       `json:"trained_at"`
}

// Fit trains every stage in order on labels in {0, 1}.
func Fit(features [][]float64, labels []int, opts Options) (*Pipeline, error) {
	cols, err := columnCount(features)
	if err != nil {
		return nil, err
	}
	if len(features) != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}

	p := &Pipeline{
		FormatVersion: FormatVersion,
		Features:      cols,
		Scaler:        &StandardScaler{},
		PCA:           &PCA{},
		SVC:           &LinearSVC{},
		Platt:         &PlattScaler{},
	}

	if err := p.Scaler.Fit(features); err != nil {
		return nil, errors.Wrap(err, "fit scaler")
	}
	scaled := make([][]float64, len(features))
	for i, row := range features {
		if scaled[i], err = p.Scaler.Transform(row); err != nil {
			return nil, err
		}
	}

	if err := p.PCA.Fit(scaled, opts.Components); err != nil {
		return nil, errors.Wrap(err, "fit pca")
	}
	projected := make([][]float64, len(scaled))
	for i, row := range scaled {
		if projected[i], err = p.PCA.Transform(row); err != nil {
			return nil, err
		}
	}

	svcOpts := SVCOptions{C: opts.C, MaxIter: opts.MaxIter, Tolerance: opts.Tolerance, Seed: opts.Seed}
	if err := p.SVC.Fit(projected, labels, svcOpts); err != nil {
		return nil, errors.Wrap(err, "fit svc")
	}

	decisions := make([]float64, len(projected))
	for i, row := range projected {
		if decisions[i], err = p.SVC.Decision(row); err != nil {
			return nil, err
		}
	}
	if err := p.Platt.Fit(decisions, labels); err != nil {
		return nil, errors.Wrap(err, "calibrate probabilities")
	}

	p.TrainedAt = time.Now().UTC()
	return p, nil
}

// Decision runs every stage but the calibration.
func (p *Pipeline) Decision(features []float64) (float64, error) {
	if p.Scaler == nil || p.PCA == nil || p.SVC == nil {
		return 0, errors.New("model not trained")
	}
	if len(features) != p.Features {
		return 0, errors.Newf("model expects %d features, got %d", p.Features, len(features))
	}
	scaled, err := p.Scaler.Transform(features)
	if err != nil {
		return 0, err
	}
	projected, err := p.PCA.Transform(scaled)
	if err != nil {
		return 0, err
	}
	return p.SVC.Decision(projected)
}

// Predict returns the class index chosen by the SVM decision and the
// calibrated probability of the positive class. As with libsvm, the two can
// disagree close to the margin.
func (p *Pipeline) Predict(features []float64) (int, float64, error) {
	decision, err := p.Decision(features)
	if err != nil {
		return 0, 0, err
	}
	label := 0
	if decision > 0 {
		label = PositiveClass
	}
	probability := 0.0
	if p.Platt != nil {
		probability = p.Platt.Probability(decision)
	}
	return label, probability, nil
}

// ClassName maps an encoded class index back to its label.
func (p *Pipeline) ClassName(index int) string {
	if index < 0 || index >= len(p.Classes) {
		return ""
	}
	return p.Classes[index]
}

func (p *Pipeline) Save(w io.Writer) error {
	if p.SVC == nil || len(p.SVC.Weights) == 0 {
		return errors.New("model not trained")
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(p)
}

func Load(r io.Reader) (*Pipeline, error) {
	var p Pipeline
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode model artifact")
	}
	if p.FormatVersion != FormatVersion {
		return nil, errors.Newf("unsupported model format version %d", p.FormatVersion)
	}
	if p.Scaler == nil || p.PCA == nil || p.SVC == nil {
		return nil, errors.New("model artifact is incomplete")
	}
	return &p, nil
}
