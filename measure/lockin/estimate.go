package lockin

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/klecknerlab/wavefit/dsp/spectrum"
)

// seed holds starting parameters for the cosine refinement.
type seed struct {
	offset    float64
	amplitude float64
	omega     float64
	phase     float64
}

// estimateReference locates the strongest oscillation of the reference by a
// coarse spectral search and derives starting parameters from its bin.
//
// Only the first N/2 bins of the half-spectrum are searched, matching the
// established truncation of this analysis; win must be the sum-2 normalized
// window so the peak magnitude reads out the amplitude directly.
func estimateReference(t, ref, win []float64) seed {
	n := len(t)
	dt := t[1] - t[0]

	offset := stat.Mean(ref, nil)

	work := make([]float64, n)
	for i, v := range ref {
		work[i] = v - offset
	}

	vecmath.MulBlockInPlace(work, win)

	fft := fourier.NewFFT(n)
	bins := fft.Coefficients(nil, work)
	if len(bins) > n/2 {
		bins = bins[:n/2]
	}

	mag := spectrum.Magnitude(bins)

	peak := 0
	for i, m := range mag {
		if m > mag[peak] {
			peak = i
		}
	}

	omega := 2 * math.Pi * fft.Freq(peak) / dt

	return seed{
		offset:    offset,
		amplitude: mag[peak],
		omega:     omega,
		phase:     cmplx.Phase(bins[peak]) - omega*t[0],
	}
}
