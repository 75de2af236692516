package ml

import (
	"math/rand"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
)

// LinearSVC is a soft-margin linear support vector classifier trained with
// dual coordinate descent. The bias is learned as the weight of a constant
// feature appended to every vector.
type LinearSVC struct {
	C       float64   `json:"c"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

type SVCOptions struct {
	C         float64
	MaxIter   int
	Tolerance float64
	Seed      int64
}

// Fit trains on labels in {0, 1}.
func (s *LinearSVC) Fit(features [][]float64, labels []int, opts SVCOptions) error {
	cols, err := columnCount(features)
	if err != nil {
		return err
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if opts.C <= 0 {
		return errors.Newf("C must be positive, got %v", opts.C)
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 1000
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-4
	}

	n := len(features)
	signs := make([]float64, n)
	augmented := make([][]float64, n)
	diag := make([]float64, n)
	var positives int
	for i, row := range features {
		switch labels[i] {
		case 0:
			signs[i] = -1
		case 1:
			signs[i] = 1
			positives++
		default:
			return errors.Newf("label %d at row %d is not binary", labels[i], i)
		}
		augmented[i] = append(append(make([]float64, 0, cols+1), row...), 1)
		diag[i] = floats.Dot(augmented[i], augmented[i])
	}
	if positives == 0 || positives == n {
		return errors.New("training data needs both classes")
	}

	w := make([]float64, cols+1)
	alpha := make([]float64, n)
	rnd := rand.New(rand.NewSource(opts.Seed))
	for iter := 0; iter < opts.MaxIter; iter++ {
		maxPG, minPG := -1e300, 1e300
		for _, i := range rnd.Perm(n) {
			if diag[i] == 0 {
				continue
			}
			g := signs[i]*floats.Dot(w, augmented[i]) - 1
			pg := g
			switch {
			case alpha[i] == 0:
				pg = min(g, 0)
			case alpha[i] == opts.C:
				pg = max(g, 0)
			}
			maxPG = max(maxPG, pg)
			minPG = min(minPG, pg)
			if pg == 0 {
				continue
			}
			previous := alpha[i]
			alpha[i] = min(max(alpha[i]-g/diag[i], 0), opts.C)
			floats.AddScaled(w, (alpha[i]-previous)*signs[i], augmented[i])
		}
		if maxPG-minPG < opts.Tolerance {
			break
		}
	}

	s.C = opts.C
	s.Weights = w[:cols]
	s.Bias = w[cols]
	return nil
}

// Decision returns the signed distance-like score; positive means class 1.
func (s *LinearSVC) Decision(x []float64) (float64, error) {
	if len(s.Weights) == 0 {
		return 0, errors.New("svc not fitted")
	}
	if len(x) != len(s.Weights) {
		return 0, errors.Newf("expected %d inputs, got %d", len(s.Weights), len(x))
	}
	return floats.Dot(s.Weights, x) + s.Bias, nil
}
