package capture

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/klecknerlab/wavefit/measure/lockin"
)

// WriteCSV serializes a capture, optional fitted traces, and an optional
// harmonic table to w.
//
// fitted aligns with c.Traces: fitted[i], when present and non-nil, is
// written next to trace i as a "<name> fit" column. When fit is non-nil a
// harmonic table {index, frequency, amplitude, phase} follows the trace
// columns, ending with a "ref" row for the reference oscillation itself.
// Trailing empty fields are trimmed per row, so the short table columns do
// not pad every sample row.
func WriteCSV(w io.Writer, c *Capture, fitted [][]float64, fit *lockin.Fit) error {
	var (
		headings []string
		cols     [][]string
	)

	addCol := func(name string, values []float64) {
		headings = append(headings, name)

		col := make([]string, len(values))
		for i, v := range values {
			col[i] = formatSample(v)
		}

		cols = append(cols, col)
	}

	addCol("t (s)", c.Time)

	for i, trace := range c.Traces {
		name := traceName(i)
		addCol(name, trace)

		if i < len(fitted) && fitted[i] != nil {
			addCol(name+" fit", fitted[i])
		}
	}

	if fit != nil {
		appendHarmonicTable(&headings, &cols, fit)
	}

	bw := bufio.NewWriter(w)

	if err := writeRow(bw, headings); err != nil {
		return err
	}

	maxLen := 0
	for _, col := range cols {
		if len(col) > maxLen {
			maxLen = len(col)
		}
	}

	items := make([]string, len(cols))
	for row := 0; row < maxLen; row++ {
		last := 0
		for j, col := range cols {
			if row < len(col) {
				items[j] = col[row]
				last = j
			} else {
				items[j] = ""
			}
		}

		if err := writeRow(bw, items[:last+1]); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	return nil
}

func appendHarmonicTable(headings *[]string, cols *[][]string, fit *lockin.Fit) {
	h := len(fit.Harmonics)

	index := make([]string, 0, h+1)
	freq := make([]string, 0, h+1)
	amp := make([]string, 0, h+1)
	phase := make([]string, 0, h+1)

	for _, hr := range fit.Harmonics {
		index = append(index, strconv.Itoa(hr.Index))
		freq = append(freq, formatSample(hr.Omega/(2*math.Pi)))
		amp = append(amp, formatSample(hr.Magnitude))
		phase = append(phase, formatSample(hr.Phase))
	}

	ref := fit.Reference
	index = append(index, "ref")
	freq = append(freq, formatSample(ref.Omega/(2*math.Pi)))
	amp = append(amp, formatSample(ref.Amplitude))
	phase = append(phase, formatSample(ref.Phase))

	*headings = append(*headings, "", "Harmonic", "Frequency (Hz)", "Amplitude (V)", "Phase Delay (rad)")
	*cols = append(*cols, nil, index, freq, amp, phase)
}

func traceName(i int) string {
	switch i {
	case 0:
		return "V_ref"
	case 1:
		return "V_sig"
	default:
		return fmt.Sprintf("V_sig%d", i)
	}
}

func formatSample(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return fmt.Errorf("capture: %w", err)
			}
		}

		if _, err := w.WriteString(f); err != nil {
			return fmt.Errorf("capture: %w", err)
		}
	}

	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	return nil
}
