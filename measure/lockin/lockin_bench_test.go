package lockin

import (
	"math"
	"strconv"
	"testing"
)

func BenchmarkAnalyze(b *testing.B) {
	for _, n := range []int{1024, 4096, 16384} {
		b.Run("n_"+strconv.Itoa(n), func(b *testing.B) {
			dt := 1e-3
			ts := makeTimes(n, dt)
			ref := make([]float64, n)
			sig := make([]float64, n)

			for i, tk := range ts {
				ref[i] = math.Cos(2 * math.Pi * 50 * tk)
				sig[i] = 0.5*math.Cos(2*math.Pi*50*tk+0.3) + 0.2*math.Cos(2*math.Pi*100*tk+1.0)
			}

			cfg := Config{Harmonics: 5}

			b.ReportAllocs()
			b.ResetTimer()

			for range b.N {
				if _, err := Analyze(ts, ref, sig, cfg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkReconstruct(b *testing.B) {
	ts := makeTimes(4096, 1e-3)
	ref := make([]float64, len(ts))
	sig := make([]float64, len(ts))

	for i, tk := range ts {
		ref[i] = math.Cos(2 * math.Pi * 50 * tk)
		sig[i] = 0.5 * math.Cos(2*math.Pi*50*tk+0.3)
	}

	fit, err := Analyze(ts, ref, sig, Config{Harmonics: 5})
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = fit.Reconstruct(ts)
	}
}
