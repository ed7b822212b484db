package scope

import "fmt"

// DecodeBlock extracts the payload of an IEEE 488.2 definite-length block:
// a '#' byte, one digit giving the length-field width, the decimal payload
// length, then the payload itself.
func DecodeBlock(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != '#' {
		return nil, fmt.Errorf("%w: first byte should be #", ErrBlockFormat)
	}

	if raw[1] < '0' || raw[1] > '9' {
		return nil, fmt.Errorf("%w: header digit %q", ErrBlockFormat, raw[1])
	}

	headLen := int(raw[1] - '0')
	if len(raw) < 2+headLen {
		return nil, fmt.Errorf("%w: truncated length field", ErrBlockFormat)
	}

	payloadLen := 0
	for _, b := range raw[2 : 2+headLen] {
		if b < '0' || b > '9' {
			return nil, fmt.Errorf("%w: length field %q", ErrBlockFormat, raw[2:2+headLen])
		}

		payloadLen = payloadLen*10 + int(b-'0')
	}

	if len(raw) < 2+headLen+payloadLen {
		return nil, fmt.Errorf("%w: payload shorter than declared length %d", ErrBlockFormat, payloadLen)
	}

	return raw[2+headLen : 2+headLen+payloadLen], nil
}
