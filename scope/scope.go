// Package scope acquires waveform captures from bench oscilloscopes over
// SCPI. It exposes a minimal instrument conversation interface, a TCP
// implementation of it, and waveform-readout drivers for the instrument
// models the lab uses.
package scope

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/klecknerlab/wavefit/capture"
)

// Errors returned by instrument drivers.
var (
	ErrBlockFormat  = errors.New("scope: malformed data block")
	ErrUnknownModel = errors.New("scope: unknown oscilloscope model")
	ErrErrorByte    = errors.New("scope: instrument reported an error byte")
	ErrPreamble     = errors.New("scope: malformed waveform preamble")
)

// Instrument is a minimal SCPI conversation with a remote device.
type Instrument interface {
	// Write sends a command that produces no reply.
	Write(cmd string) error

	// Ask sends a query and returns the text reply with line endings
	// trimmed.
	Ask(cmd string) (string, error)

	// ReadRaw reads one raw reply message, including any block header.
	ReadRaw() ([]byte, error)

	Close() error
}

// Oscilloscope captures waveforms from a recognized instrument model.
//
// ReadChannels returns one shared time axis and one trace per requested
// channel, so the result feeds the analysis pipeline directly.
type Oscilloscope interface {
	Run() error
	Stop() error
	Running() (bool, error)
	ReadChannels(channels []int) (*capture.Capture, error)
}

var (
	tekTBS2000Pattern  = regexp.MustCompile(`^TEKTRONIX,TBS2\d\d2B?`)
	rigolDS1000Pattern = regexp.MustCompile(`^RIGOL TECHNOLOGIES,DS1\d\d\dZ`)
)

// IDN queries the instrument identification string.
func IDN(inst Instrument) (string, error) {
	return inst.Ask("*IDN?")
}

// Detect queries *IDN? and returns a waveform driver for a recognized
// model.
func Detect(inst Instrument) (Oscilloscope, error) {
	idn, err := IDN(inst)
	if err != nil {
		return nil, fmt.Errorf("scope: identification query failed: %w", err)
	}

	switch {
	case tekTBS2000Pattern.MatchString(idn):
		return NewTBS2000(inst)
	case rigolDS1000Pattern.MatchString(idn):
		return NewDS1000Z(inst), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, idn)
	}
}
