package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/klecknerlab/wavefit/capture"
)

// DS1000Z drives Rigol DS1000Z-series oscilloscopes.
type DS1000Z struct {
	inst Instrument
}

// NewDS1000Z wraps an instrument connection; the series needs no readout
// configuration up front.
func NewDS1000Z(inst Instrument) *DS1000Z {
	return &DS1000Z{inst: inst}
}

// Run resumes acquisition.
func (s *DS1000Z) Run() error {
	return s.inst.Write(":RUN")
}

// Stop halts acquisition.
func (s *DS1000Z) Stop() error {
	return s.inst.Write(":STOP")
}

// Running reports whether acquisition is active.
func (s *DS1000Z) Running() (bool, error) {
	reply, err := s.inst.Ask(":TRIG:STAT?")
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(reply) != "STOP", nil
}

// ReadChannels halts acquisition, reads each channel as raw bytes scaled by
// the waveform preamble, and resumes acquisition. The time axis derived
// from the first channel's preamble is shared.
func (s *DS1000Z) ReadChannels(channels []int) (*capture.Capture, error) {
	if err := s.Stop(); err != nil {
		return nil, err
	}

	out := &capture.Capture{}

	for _, ch := range channels {
		for _, cmd := range []string{
			fmt.Sprintf(":WAV:SOUR CHAN%d", ch),
			":WAV:FORM BYTE",
			":WAV:DATA?",
		} {
			if err := s.inst.Write(cmd); err != nil {
				return nil, err
			}
		}

		raw, err := s.inst.ReadRaw()
		if err != nil {
			return nil, err
		}

		payload, err := DecodeBlock(raw)
		if err != nil {
			return nil, err
		}

		pre, err := s.preamble()
		if err != nil {
			return nil, err
		}

		// Preamble fields: x increment [4], x origin [5], x reference [6],
		// y increment [7], y origin [8], y reference [9].
		if out.Time == nil {
			t := make([]float64, len(payload))
			for i := range t {
				t[i] = (float64(i) - (pre[6] + pre[5])) * pre[4]
			}

			out.Time = t
		}

		v := make([]float64, len(payload))
		for i, b := range payload {
			v[i] = (float64(b) - (pre[9] + pre[8])) * pre[7]
		}

		out.Traces = append(out.Traces, v)
	}

	if err := s.Run(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *DS1000Z) preamble() ([]float64, error) {
	reply, err := s.inst.Ask(":WAV:PRE?")
	if err != nil {
		return nil, err
	}

	fields := strings.Split(reply, ",")
	if len(fields) < 10 {
		return nil, fmt.Errorf("%w: %d fields", ErrPreamble, len(fields))
	}

	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", ErrPreamble, i, err)
		}

		out[i] = v
	}

	return out, nil
}
