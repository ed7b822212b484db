package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Option configures capture decoding.
type Option func(*readConfig)

type readConfig struct {
	noTriggerOffset bool
}

// WithoutTriggerOffset leaves the time axis starting at zero instead of
// shifting it so that t = 0 is the trigger point.
func WithoutTriggerOffset() Option {
	return func(c *readConfig) {
		c.noTriggerOffset = true
	}
}

// Load reads an oscilloscope CSV export from path.
func Load(path string, opts ...Option) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	defer f.Close()

	return Read(f, opts...)
}

// Read decodes an oscilloscope CSV export.
//
// The format is the one written by Rigol DS1000-series scopes: a heading
// line, then a units line whose last two fields carry the time start and
// time increment, then data rows whose first column is a sample index.
// The index column is scaled by the increment to build the time axis, and
// shifted by the start so t = 0 is the trigger point (unless
// [WithoutTriggerOffset] is given).
func Read(r io.Reader, opts ...Option) (*Capture, error) {
	var cfg readConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	// Heading line carries no numeric payload.
	if !sc.Scan() {
		return nil, ErrHeader
	}

	if !sc.Scan() {
		return nil, ErrHeader
	}

	parts := strings.Split(sc.Text(), ",")
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: units line has %d fields", ErrHeader, len(parts))
	}

	start, err := strconv.ParseFloat(strings.TrimSpace(parts[len(parts)-2]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: time start: %v", ErrHeader, err)
	}

	inc, err := strconv.ParseFloat(strings.TrimSpace(parts[len(parts)-1]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: time increment: %v", ErrHeader, err)
	}

	// Index column plus channel columns; the two trailing header fields
	// are not data columns.
	ncols := len(parts) - 2

	cols := make([][]float64, ncols)

	row := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < ncols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedRow, row, len(fields), ncols)
		}

		for i := 0; i < ncols; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("capture: row %d column %d: %w", row, i, err)
			}

			cols[i] = append(cols[i], v)
		}

		row++
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	if row == 0 {
		return nil, ErrNoSamples
	}

	time := cols[0]
	for i := range time {
		time[i] *= inc
		if !cfg.noTriggerOffset {
			time[i] += start
		}
	}

	return &Capture{Time: time, Traces: cols[1:]}, nil
}
