// Package capture decodes oscilloscope CSV exports into uniformly sampled
// channel arrays and serializes analysis results back to CSV.
package capture

import (
	"errors"
	"fmt"
)

// Errors returned by capture decoding.
var (
	ErrHeader    = errors.New("capture: malformed capture header")
	ErrRaggedRow = errors.New("capture: data row has too few columns")
	ErrNoSamples = errors.New("capture: capture contains no samples")
)

// Capture holds a uniformly sampled multi-channel trace. Traces[0] is
// conventionally the reference channel; any further traces are signal
// channels.
type Capture struct {
	Time   []float64
	Traces [][]float64
}

// Reference returns the reference channel (the first trace).
func (c *Capture) Reference() []float64 {
	if len(c.Traces) == 0 {
		return nil
	}

	return c.Traces[0]
}

// Signals returns the signal channels (all traces after the first).
func (c *Capture) Signals() [][]float64 {
	if len(c.Traces) < 2 {
		return nil
	}

	return c.Traces[1:]
}

// SampleRate returns 1/dt from the first two time samples.
func (c *Capture) SampleRate() (float64, error) {
	if len(c.Time) < 2 {
		return 0, ErrNoSamples
	}

	dt := c.Time[1] - c.Time[0]
	if dt <= 0 {
		return 0, fmt.Errorf("capture: non-increasing time axis: dt=%g", dt)
	}

	return 1 / dt, nil
}
