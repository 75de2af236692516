package ml

import (
	"math"

	"github.com/cockroachdb/errors"
)

// PlattScaler maps decision values to probabilities with the sigmoid
// 1 / (1 + exp(A*f + B)).
type PlattScaler struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Fit follows the Newton method with backtracking line search described by
// Lin, Lin and Weng, "A note on Platt's probabilistic outputs for support
// vector machines".
func (p *PlattScaler) Fit(decisions []float64, labels []int) error {
	if len(decisions) == 0 || len(decisions) != len(labels) {
		return errors.New("decisions and labels must be non-empty and the same size")
	}
	var prior1, prior0 float64
	for _, label := range labels {
		if label == PositiveClass {
			prior1++
		} else {
			prior0++
		}
	}

	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
		eps     = 1e-5
	)
	hiTarget := (prior1 + 1) / (prior1 + 2)
	loTarget := 1 / (prior0 + 2)
	targets := make([]float64, len(labels))
	for i, label := range labels {
		if label == PositiveClass {
			targets[i] = hiTarget
		} else {
			targets[i] = loTarget
		}
	}

	a, b := 0.0, math.Log((prior0+1)/(prior1+1))
	objective := func(a, b float64) float64 {
		var value float64
		for i, f := range decisions {
			fApB := f*a + b
			if fApB >= 0 {
				value += targets[i]*fApB + math.Log1p(math.Exp(-fApB))
			} else {
				value += (targets[i]-1)*fApB + math.Log1p(math.Exp(fApB))
			}
		}
		return value
	}
	fval := objective(a, b)

	for iter := 0; iter < maxIter; iter++ {
		h11, h22, h21 := sigma, sigma, 0.0
		var g1, g2 float64
		for i, f := range decisions {
			fApB := f*a + b
			var prob, q float64
			if fApB >= 0 {
				e := math.Exp(-fApB)
				prob, q = e/(1+e), 1/(1+e)
			} else {
				e := math.Exp(fApB)
				prob, q = 1/(1+e), e/(1+e)
			}
			d2 := prob * q
			h11 += f * f * d2
			h22 += d2
			h21 += f * d2
			d1 := targets[i] - prob
			g1 += f * d1
			g2 += d1
		}
		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}

		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= minStep {
			newA, newB := a+step*dA, b+step*dB
			newF := objective(newA, newB)
			if newF < fval+0.0001*step*gd {
				a, b, fval = newA, newB, newF
				break
			}
			step /= 2
		}
		if step < minStep {
			break
		}
	}

	p.A, p.B = a, b
	return nil
}

// Probability returns P(class 1 | decision).
func (p *PlattScaler) Probability(decision float64) float64 {
	fApB := decision*p.A + p.B
	if fApB >= 0 {
		e := math.Exp(-fApB)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(fApB))
}
