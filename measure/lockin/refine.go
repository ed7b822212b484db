package lockin

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// refineReference fits offset + A*cos(w*t + phi) to the raw reference trace
// by nonlinear least squares, starting from sd.
//
// Solver failure propagates as ErrConvergence; no retry, no reseeding. A
// seed without an oscillation (zero amplitude or non-positive frequency) is
// rejected as ErrDegenerate: the model would otherwise "converge" to a
// meaningless flat fit.
func refineReference(t, ref []float64, sd seed) (ReferenceFit, error) {
	if sd.amplitude == 0 || sd.omega <= 0 {
		return ReferenceFit{}, ErrDegenerate
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			sum := 0.0
			for k, tk := range t {
				r := p[0] + p[1]*math.Cos(p[2]*tk+p[3]) - ref[k]
				sum += r * r
			}

			return sum
		},
		Grad: func(grad, p []float64) {
			for i := range grad {
				grad[i] = 0
			}

			for k, tk := range t {
				sin, cos := math.Sincos(p[2]*tk + p[3])
				r := p[0] + p[1]*cos - ref[k]

				grad[0] += 2 * r
				grad[1] += 2 * r * cos
				grad[2] -= 2 * r * p[1] * sin * tk
				grad[3] -= 2 * r * p[1] * sin
			}
		},
	}

	init := []float64{sd.offset, sd.amplitude, sd.omega, sd.phase}

	result, err := optimize.Minimize(problem, init, nil, &optimize.BFGS{})
	if err != nil {
		return ReferenceFit{}, fmt.Errorf("%w: %v", ErrConvergence, err)
	}

	if err := result.Status.Err(); err != nil {
		return ReferenceFit{}, fmt.Errorf("%w: %v", ErrConvergence, err)
	}

	for _, p := range result.X {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return ReferenceFit{}, fmt.Errorf("%w: non-finite fit parameter", ErrDegenerate)
		}
	}

	fit := ReferenceFit{
		Offset:    result.X[0],
		Amplitude: result.X[1],
		Omega:     result.X[2],
		Phase:     wrapPhase(result.X[3]),
	}

	resid := make([]float64, len(t))
	for k, tk := range t {
		resid[k] = ref[k] - fit.Eval(tk)
	}

	fit.ResidualStd = stat.PopStdDev(resid, nil)

	return fit, nil
}

// Eval returns the fitted cosine model at time tk.
func (r ReferenceFit) Eval(tk float64) float64 {
	return r.Offset + r.Amplitude*math.Cos(r.Omega*tk+r.Phase)
}

// EvalTrace returns the fitted cosine model across all of t.
func (r ReferenceFit) EvalTrace(t []float64) []float64 {
	out := make([]float64, len(t))
	for k, tk := range t {
		out[k] = r.Eval(tk)
	}

	return out
}

// wrapPhase maps an angle into [0, 2*pi).
func wrapPhase(phi float64) float64 {
	phi = math.Mod(phi, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}

	// A tiny negative input rounds to exactly 2*pi after the correction.
	if phi >= 2*math.Pi {
		phi = 0
	}

	return phi
}
