package lockin

import "math"

// Reconstruct sums the fitted harmonics back into a time-domain trace:
//
//	x(t) = sum_n A_n * cos(n*w0*t + phi_n + n*phi0)
//
// Comparing the result against the original signal gives a residual for
// validating the fit.
func (f *Fit) Reconstruct(t []float64) []float64 {
	out := make([]float64, len(t))

	for _, h := range f.Harmonics {
		phase := h.Phase + float64(h.Index)*f.Reference.Phase

		for k, tk := range t {
			out[k] += h.Magnitude * math.Cos(h.Omega*tk+phase)
		}
	}

	return out
}
