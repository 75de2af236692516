package ml

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column on zero and scales it to unit
// population variance.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) Fit(features [][]float64) error {
	cols, err := columnCount(features)
	if err != nil {
		return err
	}
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	column := make([]float64, len(features))
	for j := 0; j < cols; j++ {
		for i, row := range features {
			column[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(s.Mean) == 0 {
		return nil, errors.New("scaler not fitted")
	}
	if len(x) != len(s.Mean) {
		return nil, errors.Newf("expected %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, value := range x {
		out[j] = (value - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

func columnCount(features [][]float64) (int, error) {
	if len(features) == 0 {
		return 0, errors.New("features is empty")
	}
	cols := len(features[0])
	if cols == 0 {
		return 0, errors.New("feature vectors are empty")
	}
	for i, row := range features {
		if len(row) != cols {
			return 0, errors.Newf("row %d has %d features, expected %d", i, len(row), cols)
		}
	}
	return cols, nil
}
