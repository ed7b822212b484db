// Package spectrum provides helpers for working with complex frequency-domain
// bins: magnitude/power/phase extraction and a windowed half-spectrum for
// quick inspection of captured traces.
package spectrum

import (
	"fmt"
	"math/cmplx"
	"sort"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/klecknerlab/wavefit/dsp/window"
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)

	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}

	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Magnitude returns |X[k]| for each complex spectrum bin.
//
// Scratch buffers are pooled internally, so in steady state this allocates
// only the output slice.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(out, re, im)
	putScratch(buf)

	return out
}

// Power returns |X[k]|^2 for each complex spectrum bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Power(out, re, im)
	putScratch(buf)

	return out
}

// Phase returns arg(X[k]) for each complex spectrum bin in radians.
func Phase(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	for i, c := range in {
		out[i] = cmplx.Phase(c)
	}

	return out
}

// HalfSpectrum windows signal, zero-pads to the next power of two, and
// returns the non-negative-frequency bins [0..Nyquist] together with the
// bin width in Hz.
func HalfSpectrum(signal []float64, sampleRate float64, winType window.Type) ([]complex128, float64, error) {
	if len(signal) == 0 {
		return nil, 0, fmt.Errorf("spectrum: signal is empty")
	}

	if sampleRate <= 0 {
		return nil, 0, fmt.Errorf("spectrum: sample rate must be > 0: %f", sampleRate)
	}

	fftSize := nextPowerOf2(len(signal))

	work := make([]float64, len(signal))
	copy(work, signal)
	window.Apply(winType, work)

	in := make([]complex128, fftSize)
	for i, v := range work {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, 0, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, 0, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	return out[:fftSize/2+1], sampleRate / float64(fftSize), nil
}

// TopPeaks returns the bin indices of the k largest local maxima of mag,
// strongest first. The DC bin is excluded.
func TopPeaks(mag []float64, k int) []int {
	if k <= 0 {
		return nil
	}

	var peaks []int
	for i := 1; i < len(mag)-1; i++ {
		if mag[i] > mag[i-1] && mag[i] >= mag[i+1] {
			peaks = append(peaks, i)
		}
	}

	sort.Slice(peaks, func(a, b int) bool { return mag[peaks[a]] > mag[peaks[b]] })

	if len(peaks) > k {
		peaks = peaks[:k]
	}

	return peaks
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
