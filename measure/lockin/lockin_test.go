package lockin

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/klecknerlab/wavefit/dsp/window"
)

func makeTimes(n int, dt float64) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * dt
	}

	return t
}

// angDiff returns the absolute angular distance between a and b, mod 2*pi.
func angDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}

	if d < -math.Pi {
		d += 2 * math.Pi
	}

	return math.Abs(d)
}

// literalScenario builds the reference capture: 1000 points over [0,1),
// 50 Hz reference, signal 0.5*cos(2*pi*50*t+0.3) + 0.2*cos(2*pi*100*t+1.0).
func literalScenario() (t, ref, sig []float64) {
	t = makeTimes(1000, 1e-3)
	ref = make([]float64, len(t))
	sig = make([]float64, len(t))

	for i, tk := range t {
		ref[i] = math.Cos(2 * math.Pi * 50 * tk)
		sig[i] = 0.5*math.Cos(2*math.Pi*50*tk+0.3) + 0.2*math.Cos(2*math.Pi*100*tk+1.0)
	}

	return t, ref, sig
}

func TestAnalyzeLiteralScenario(t *testing.T) {
	ts, ref, sig := literalScenario()

	fit, err := Analyze(ts, ref, sig, Config{Harmonics: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOmega := 2 * math.Pi * 50
	if math.Abs(fit.Reference.Omega-wantOmega)/wantOmega > 1e-4 {
		t.Fatalf("omega mismatch: got %g want %g", fit.Reference.Omega, wantOmega)
	}

	if math.Abs(fit.Reference.Amplitude-1) > 1e-4 {
		t.Fatalf("reference amplitude mismatch: got %g want 1", fit.Reference.Amplitude)
	}

	if fit.Reference.ResidualStd > 1e-6 {
		t.Fatalf("reference residual too large: %g", fit.Reference.ResidualStd)
	}

	if len(fit.Harmonics) != 3 {
		t.Fatalf("harmonic count mismatch: got %d want 3", len(fit.Harmonics))
	}

	h1, h2, h3 := fit.Harmonics[0], fit.Harmonics[1], fit.Harmonics[2]

	if math.Abs(h1.Magnitude-0.5) > 1e-3 {
		t.Fatalf("harmonic 1 magnitude mismatch: got %g want 0.5", h1.Magnitude)
	}

	if math.Abs(h2.Magnitude-0.2) > 1e-3 {
		t.Fatalf("harmonic 2 magnitude mismatch: got %g want 0.2", h2.Magnitude)
	}

	if h3.Magnitude > 1e-3 {
		t.Fatalf("harmonic 3 should be at the noise floor: got %g", h3.Magnitude)
	}

	phi0 := fit.Reference.Phase
	if d := angDiff(h1.Phase+1*phi0, 0.3); d > 1e-3 {
		t.Fatalf("harmonic 1 phase mismatch: off by %g rad", d)
	}

	if d := angDiff(h2.Phase+2*phi0, 1.0); d > 1e-3 {
		t.Fatalf("harmonic 2 phase mismatch: off by %g rad", d)
	}

	for _, h := range fit.Harmonics {
		if want := float64(h.Index) * fit.Reference.Omega; h.Omega != want {
			t.Fatalf("harmonic %d omega mismatch: got %g want %g", h.Index, h.Omega, want)
		}
	}
}

func TestAnalyzeRecoveryOffBin(t *testing.T) {
	// Reference frequency that does not land on an FFT bin and does not
	// span an integer number of periods.
	const (
		f0     = 52.37
		offset = 0.4
		refAmp = 1.3
		refPhi = 0.9
	)

	ts := makeTimes(2048, 1e-3)
	ref := make([]float64, len(ts))
	sig := make([]float64, len(ts))

	amps := []float64{0.8, 0.35, 0.1}
	phis := []float64{1.7, 4.0, 2.2}

	for i, tk := range ts {
		ref[i] = offset + refAmp*math.Cos(2*math.Pi*f0*tk+refPhi)
		for n := range amps {
			sig[i] += amps[n] * math.Cos(2*math.Pi*f0*float64(n+1)*tk+phis[n])
		}
	}

	fit, err := Analyze(ts, ref, sig, Config{Harmonics: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOmega := 2 * math.Pi * f0
	if math.Abs(fit.Reference.Omega-wantOmega)/wantOmega > 1e-4 {
		t.Fatalf("omega mismatch: got %g want %g", fit.Reference.Omega, wantOmega)
	}

	if math.Abs(fit.Reference.Offset-offset) > 1e-4 {
		t.Fatalf("offset mismatch: got %g want %g", fit.Reference.Offset, offset)
	}

	if math.Abs(fit.Reference.Amplitude-refAmp) > 1e-4 {
		t.Fatalf("amplitude mismatch: got %g want %g", fit.Reference.Amplitude, refAmp)
	}

	if angDiff(fit.Reference.Phase, refPhi) > 1e-4 {
		t.Fatalf("reference phase mismatch: got %g want %g", fit.Reference.Phase, refPhi)
	}

	for n, h := range fit.Harmonics {
		if math.Abs(h.Magnitude-amps[n])/amps[n] > 1e-2 {
			t.Fatalf("harmonic %d magnitude mismatch: got %g want %g", h.Index, h.Magnitude, amps[n])
		}

		if d := angDiff(h.Phase+float64(h.Index)*fit.Reference.Phase, phis[n]); d > 1e-2 {
			t.Fatalf("harmonic %d phase mismatch: off by %g rad", h.Index, d)
		}
	}
}

func TestAnalyzePhaseRangeInvariant(t *testing.T) {
	ts := makeTimes(1024, 1e-3)
	sig := make([]float64, len(ts))

	for _, phi := range []float64{0, 1, 2, 3.14, 5, 6.2, -0.7} {
		ref := make([]float64, len(ts))
		for i, tk := range ts {
			ref[i] = math.Cos(2*math.Pi*40*tk + phi)
			sig[i] = ref[i]
		}

		fit, err := Analyze(ts, ref, sig, Config{Harmonics: 1})
		if err != nil {
			t.Fatalf("unexpected error for phi=%g: %v", phi, err)
		}

		p := fit.Reference.Phase
		if p < 0 || p >= 2*math.Pi {
			t.Fatalf("phase out of range for phi=%g: %g", phi, p)
		}

		if d := angDiff(p, phi); d > 1e-4 {
			t.Fatalf("phase mismatch for phi=%g: off by %g rad", phi, d)
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	ts, ref, sig := literalScenario()

	first, err := Analyze(ts, ref, sig, Config{Harmonics: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := Analyze(ts, ref, sig, Config{Harmonics: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated analysis of identical inputs differs")
	}
}

func TestAnalyzeSingleHarmonic(t *testing.T) {
	ts, ref, sig := literalScenario()

	fit, err := Analyze(ts, ref, sig, Config{Harmonics: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fit.Harmonics) != 1 || fit.Harmonics[0].Index != 1 {
		t.Fatalf("expected only the fundamental, got %+v", fit.Harmonics)
	}
}

func TestAnalyzeRejectsZeroHarmonics(t *testing.T) {
	ts, ref, sig := literalScenario()

	if _, err := Analyze(ts, ref, sig, Config{Harmonics: 0}); !errors.Is(err, ErrHarmonicCount) {
		t.Fatalf("expected ErrHarmonicCount, got %v", err)
	}
}

func TestAnalyzeRejectsShapeErrors(t *testing.T) {
	ts, ref, sig := literalScenario()

	if _, err := Analyze(ts, ref[:len(ref)-1], sig, Config{Harmonics: 1}); !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("expected ErrChannelMismatch, got %v", err)
	}

	if _, err := Analyze(ts[:1], ref[:1], sig[:1], Config{Harmonics: 1}); !errors.Is(err, ErrShortRecord) {
		t.Fatalf("expected ErrShortRecord, got %v", err)
	}
}

func TestAnalyzeZeroReference(t *testing.T) {
	ts, _, sig := literalScenario()
	ref := make([]float64, len(ts))

	_, err := Analyze(ts, ref, sig, Config{Harmonics: 2})
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate for all-zero reference, got %v", err)
	}
}

func TestAnalyzeConstantReference(t *testing.T) {
	ts, _, sig := literalScenario()

	ref := make([]float64, len(ts))
	for i := range ref {
		ref[i] = 2.5
	}

	_, err := Analyze(ts, ref, sig, Config{Harmonics: 2})
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate for constant reference, got %v", err)
	}
}

func TestAnalyzeWithFlatTopWindow(t *testing.T) {
	ts, ref, sig := literalScenario()

	fit, err := Analyze(ts, ref, sig, Config{Harmonics: 2, WindowType: window.TypeFlatTop})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(fit.Harmonics[0].Magnitude-0.5) > 1e-2 {
		t.Fatalf("harmonic 1 magnitude mismatch: got %g want 0.5", fit.Harmonics[0].Magnitude)
	}

	if math.Abs(fit.Harmonics[1].Magnitude-0.2) > 1e-2 {
		t.Fatalf("harmonic 2 magnitude mismatch: got %g want 0.2", fit.Harmonics[1].Magnitude)
	}
}

func TestReconstructFidelity(t *testing.T) {
	ts, ref, sig := literalScenario()

	fit, err := Analyze(ts, ref, sig, Config{Harmonics: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recon := fit.Reconstruct(ts)
	if len(recon) != len(ts) {
		t.Fatalf("reconstruction length mismatch: got %d want %d", len(recon), len(ts))
	}

	var sum, sumSq float64
	for i := range recon {
		d := sig[i] - recon[i]
		sum += d
		sumSq += d * d
	}

	mean := sum / float64(len(recon))
	std := math.Sqrt(sumSq/float64(len(recon)) - mean*mean)

	if std > 1e-3 {
		t.Fatalf("reconstruction residual too large: std=%g", std)
	}
}

func TestReferenceFitEvalTrace(t *testing.T) {
	r := ReferenceFit{Offset: 1, Amplitude: 2, Omega: 3, Phase: 0.5}
	ts := []float64{0, 0.1, 0.2}

	out := r.EvalTrace(ts)
	for i, tk := range ts {
		want := 1 + 2*math.Cos(3*tk+0.5)
		if math.Abs(out[i]-want) > 1e-15 {
			t.Fatalf("eval mismatch at %d: got %g want %g", i, out[i], want)
		}
	}
}

func TestWrapPhase(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{-1, 2*math.Pi - 1},
		{2*math.Pi + 0.5, 0.5},
		{-7 * math.Pi, math.Pi},
		// A tiny negative angle must not round up to exactly 2*pi.
		{-1e-17, 0},
		{-math.SmallestNonzeroFloat64, 0},
	}

	for _, c := range cases {
		got := wrapPhase(c.in)
		if got < 0 || got >= 2*math.Pi {
			t.Fatalf("wrapPhase(%g) out of range: %g", c.in, got)
		}

		if math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("wrapPhase(%g) mismatch: got %g want %g", c.in, got, c.want)
		}
	}
}
