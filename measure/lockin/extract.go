package lockin

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"
)

// extractHarmonics demodulates the signal at each integer multiple of the
// refined reference frequency:
//
//	A_n = sum_k w[k]*sig[k] * exp(-i*(n*w0*t[k] + n*phi0))
//
// The harmonics share only (w0, phi0); each is independent of the others.
func extractHarmonics(t, sig, win []float64, ref ReferenceFit, count int) []Harmonic {
	mean := stat.Mean(sig, nil)

	work := make([]float64, len(sig))
	for i, v := range sig {
		work[i] = v - mean
	}

	vecmath.MulBlockInPlace(work, win)

	out := make([]Harmonic, count)
	for n := 1; n <= count; n++ {
		omega := float64(n) * ref.Omega
		phase := float64(n) * ref.Phase

		var re, im float64
		for k, tk := range t {
			sin, cos := math.Sincos(omega*tk + phase)
			re += work[k] * cos
			im -= work[k] * sin
		}

		coeff := complex(re, im)
		out[n-1] = Harmonic{
			Index:     n,
			Omega:     omega,
			Coeff:     coeff,
			Magnitude: cmplx.Abs(coeff),
			Phase:     cmplx.Phase(coeff),
		}
	}

	return out
}
