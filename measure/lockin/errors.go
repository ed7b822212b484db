package lockin

import "errors"

// Errors returned by lock-in analysis.
var (
	ErrChannelMismatch = errors.New("lockin: channels must have equal length")
	ErrShortRecord     = errors.New("lockin: record too short for analysis")
	ErrHarmonicCount   = errors.New("lockin: harmonic count must be >= 1")
	ErrConvergence     = errors.New("lockin: reference fit did not converge")
	ErrDegenerate      = errors.New("lockin: reference has no usable oscillation")
)
