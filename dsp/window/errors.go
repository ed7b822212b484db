package window

import (
	"errors"
	"fmt"
)

var errZeroCoherentGain = errors.New("window coherent gain is zero")

func validateLength(size int) error {
	if size <= 0 {
		return fmt.Errorf("window size must be > 0: %d", size)
	}

	return nil
}

func errUnknownType(name string) error {
	return fmt.Errorf("unknown window type: %q", name)
}
