// Package lockin recovers amplitude and phase of a periodic signal's
// harmonics relative to a synchronously sampled reference channel, acting
// as a software substitute for a hardware lock-in amplifier.
//
// The pipeline is a one-shot batch computation over a complete capture:
//
//  1. An FFT of the windowed, demeaned reference locates the strongest
//     oscillation and seeds offset, amplitude, frequency, and phase.
//  2. A nonlinear least-squares fit of offset + A*cos(w*t + phi) to the raw
//     reference refines the seed; the refined (w0, phi0) anchor everything
//     downstream.
//  3. Each harmonic n = 1..H is extracted from the windowed signal by a
//     synchronous correlation at n*w0, phase-referenced to n*phi0.
//
// # Usage
//
//	fit, err := lockin.Analyze(t, ref, sig, lockin.Config{Harmonics: 5})
//	if err != nil {
//	    // handle ErrConvergence, ErrDegenerate, shape errors ...
//	}
//	for _, h := range fit.Harmonics {
//	    // h.Omega, h.Magnitude, h.Phase
//	}
//	recon := fit.Reconstruct(t)
//
// Sampling is assumed uniform (dt = t[1]-t[0]); non-uniform input silently
// yields incorrect results. Accuracy depends on how closely the capture
// spans an integer number of reference periods; the window keeps the
// resulting leakage bias small but does not remove it.
//
// All functions are pure and keep no state between calls, so independent
// fits may run concurrently.
package lockin
