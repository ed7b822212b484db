package scope

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/klecknerlab/wavefit/capture"
)

// TBS2000 drives Tektronix TBS2000-series oscilloscopes.
type TBS2000 struct {
	inst Instrument
}

// NewTBS2000 prepares a TBS2000-series instrument for binary waveform
// readout. Pending error bits are cleared before configuration.
func NewTBS2000(inst Instrument) (*TBS2000, error) {
	s := &TBS2000{inst: inst}

	// Reading *ESR? clears the event status register.
	if _, err := s.esr(); err != nil {
		return nil, err
	}

	if err := inst.Write("WFMO:ENC BIN"); err != nil {
		return nil, err
	}

	if err := s.checkESR(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *TBS2000) esr() (int, error) {
	reply, err := s.inst.Ask("*ESR?")
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, fmt.Errorf("scope: event status reply %q: %w", reply, err)
	}

	return v, nil
}

func (s *TBS2000) checkESR() error {
	v, err := s.esr()
	if err != nil {
		return err
	}

	if v != 0 {
		return fmt.Errorf("%w: %d", ErrErrorByte, v)
	}

	return nil
}

// Run resumes acquisition.
func (s *TBS2000) Run() error {
	return s.inst.Write("ACQ:STATE RUN")
}

// Stop halts acquisition.
func (s *TBS2000) Stop() error {
	return s.inst.Write("ACQ:STATE STOP")
}

// Running reports whether acquisition is active.
func (s *TBS2000) Running() (bool, error) {
	reply, err := s.inst.Ask("ACQ:STATE?")
	if err != nil {
		return false, err
	}

	return strings.HasPrefix(reply, "1"), nil
}

// ReadChannel reads one channel and returns its time and voltage arrays,
// scaled per the instrument's waveform preamble.
func (s *TBS2000) ReadChannel(channel int) (t, v []float64, err error) {
	if err := s.inst.Write("DATA INIT"); err != nil {
		return nil, nil, err
	}

	if err := s.inst.Write(fmt.Sprintf("DATA:SOU CH%d", channel)); err != nil {
		return nil, nil, err
	}

	reply, err := s.inst.Ask("WFMO?")
	if err != nil {
		return nil, nil, err
	}

	fields := strings.Split(reply, ";")
	if len(fields) < 15 {
		return nil, nil, fmt.Errorf("%w: %d fields", ErrPreamble, len(fields))
	}

	width, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || (width != 1 && width != 2) {
		return nil, nil, fmt.Errorf("%w: sample width %q", ErrPreamble, fields[0])
	}

	signed := fields[3] == "RI"

	tInc, err1 := strconv.ParseFloat(fields[9], 64)
	tOff, err2 := strconv.ParseFloat(fields[10], 64)
	vInc, err3 := strconv.ParseFloat(fields[13], 64)
	vOff, err4 := strconv.ParseFloat(fields[14], 64)

	for _, e := range []error{err1, err2, err3, err4} {
		if e != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrPreamble, e)
		}
	}

	if err := s.inst.Write("CURV?"); err != nil {
		return nil, nil, err
	}

	raw, err := s.inst.ReadRaw()
	if err != nil {
		return nil, nil, err
	}

	if err := s.checkESR(); err != nil {
		return nil, nil, err
	}

	payload, err := DecodeBlock(raw)
	if err != nil {
		return nil, nil, err
	}

	samples, err := decodeSamples(payload, width, signed)
	if err != nil {
		return nil, nil, err
	}

	t = make([]float64, len(samples))
	v = make([]float64, len(samples))

	for i, sv := range samples {
		t[i] = float64(i)*tInc + tOff
		v[i] = (sv - vOff) * vInc
	}

	return t, v, nil
}

// ReadChannels halts acquisition, reads each channel, and restores the
// previous acquisition state. The time axis of the first channel is shared.
func (s *TBS2000) ReadChannels(channels []int) (*capture.Capture, error) {
	running, err := s.Running()
	if err != nil {
		return nil, err
	}

	if running {
		if err := s.Stop(); err != nil {
			return nil, err
		}
	}

	out := &capture.Capture{}

	for _, ch := range channels {
		t, v, err := s.ReadChannel(ch)
		if err != nil {
			return nil, err
		}

		if out.Time == nil {
			out.Time = t
		}

		out.Traces = append(out.Traces, v)
	}

	if running {
		if err := s.Run(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func decodeSamples(payload []byte, width int, signed bool) ([]float64, error) {
	if width == 1 {
		out := make([]float64, len(payload))
		for i, b := range payload {
			if signed {
				out[i] = float64(int8(b))
			} else {
				out[i] = float64(b)
			}
		}

		return out, nil
	}

	if len(payload)%2 != 0 {
		return nil, fmt.Errorf("%w: odd payload length %d for 2-byte samples", ErrBlockFormat, len(payload))
	}

	// Tektronix sends the most significant byte first by default.
	out := make([]float64, len(payload)/2)
	for i := range out {
		u := binary.BigEndian.Uint16(payload[2*i:])
		if signed {
			out[i] = float64(int16(u))
		} else {
			out[i] = float64(u)
		}
	}

	return out, nil
}
