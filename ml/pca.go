package ml

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA projects vectors onto their leading principal components.
type PCA struct {
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance"`
}

func (p *PCA) Fit(features [][]float64, components int) error {
	cols, err := columnCount(features)
	if err != nil {
		return err
	}
	rows := len(features)
	if components < 1 || components > min(rows, cols) {
		return errors.Newf("cannot extract %d components from %dx%d data", components, rows, cols)
	}

	data := mat.NewDense(rows, cols, nil)
	for i, row := range features {
		data.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return errors.New("principal component decomposition failed")
	}
	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	variances := pc.VarsTo(nil)

	p.Mean = make([]float64, cols)
	for j := 0; j < cols; j++ {
		p.Mean[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	p.Components = make([][]float64, components)
	for k := 0; k < components; k++ {
		direction := mat.Col(nil, k, &vectors)
		// the SVD sign is arbitrary; pin it so refits give the same artifact
		if direction[floats.MaxIdx(absolute(direction))] < 0 {
			floats.Scale(-1, direction)
		}
		p.Components[k] = direction
	}
	p.ExplainedVariance = append([]float64(nil), variances[:components]...)
	return nil
}

func (p *PCA) Transform(x []float64) ([]float64, error) {
	if len(p.Components) == 0 {
		return nil, errors.New("pca not fitted")
	}
	if len(x) != len(p.Mean) {
		return nil, errors.Newf("expected %d features, got %d", len(p.Mean), len(x))
	}
	centered := make([]float64, len(x))
	floats.SubTo(centered, x, p.Mean)
	out := make([]float64, len(p.Components))
	for k, direction := range p.Components {
		out[k] = floats.Dot(centered, direction)
	}
	return out, nil
}

func absolute(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}
