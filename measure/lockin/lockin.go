package lockin

import (
	"github.com/klecknerlab/wavefit/dsp/window"
)

// Config holds lock-in analysis parameters.
type Config struct {
	// Harmonics is the number of integer multiples of the reference
	// frequency to extract. Must be >= 1.
	Harmonics int

	// WindowType selects the tapering window applied before the frequency
	// search and the harmonic correlations. The zero value means Hann.
	WindowType window.Type
}

// ReferenceFit holds the refined cosine model of the reference channel:
// ref(t) ~ Offset + Amplitude*cos(Omega*t + Phase).
type ReferenceFit struct {
	Offset      float64
	Amplitude   float64
	Omega       float64 // rad/s
	Phase       float64 // wrapped into [0, 2*pi)
	ResidualStd float64 // population std of ref minus model
}

// Harmonic holds one extracted harmonic component.
type Harmonic struct {
	Index     int        // n >= 1; 1 is the fundamental
	Omega     float64    // n * reference Omega, rad/s
	Coeff     complex128 // raw synchronous-detection correlation
	Magnitude float64    // |Coeff|
	Phase     float64    // arg(Coeff), radians
}

// Fit is the complete result of one lock-in analysis. It is never mutated
// after creation.
type Fit struct {
	Reference ReferenceFit
	Harmonics []Harmonic
}

// Analyze fits the reference cosine model and extracts cfg.Harmonics
// harmonic components from sig.
//
// t, ref, and sig must have equal length; t is assumed uniformly spaced.
// On any failure no partial Fit is returned.
func Analyze(t, ref, sig []float64, cfg Config) (*Fit, error) {
	if len(ref) != len(t) || len(sig) != len(t) {
		return nil, ErrChannelMismatch
	}

	if len(t) < 2 {
		return nil, ErrShortRecord
	}

	if cfg.Harmonics < 1 {
		return nil, ErrHarmonicCount
	}

	winType := cfg.WindowType
	if winType == 0 {
		winType = window.TypeHann
	}

	win, err := window.Normalized(winType, len(t))
	if err != nil {
		return nil, err
	}

	seed := estimateReference(t, ref, win)

	refFit, err := refineReference(t, ref, seed)
	if err != nil {
		return nil, err
	}

	return &Fit{
		Reference: refFit,
		Harmonics: extractHarmonics(t, sig, win, refFit, cfg.Harmonics),
	}, nil
}
