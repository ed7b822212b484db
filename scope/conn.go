package scope

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// DefaultPort is the conventional raw-SCPI TCP port.
const DefaultPort = "5555"

// Conn speaks SCPI over a TCP connection and implements [Instrument].
type Conn struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
}

// Dial connects to an instrument at addr. When addr carries no port,
// [DefaultPort] is used. timeout bounds the dial and every subsequent
// read or write; zero means no deadline.
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, DefaultPort)
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}

	return NewConn(conn, timeout), nil
}

// NewConn wraps an established connection.
func NewConn(conn net.Conn, timeout time.Duration) *Conn {
	return &Conn{
		conn:    conn,
		r:       bufio.NewReaderSize(conn, 64*1024),
		timeout: timeout,
	}
}

func (c *Conn) deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}

	return time.Now().Add(c.timeout)
}

// Write sends one command line.
func (c *Conn) Write(cmd string) error {
	if err := c.conn.SetWriteDeadline(c.deadline()); err != nil {
		return fmt.Errorf("scope: %w", err)
	}

	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("scope: write %q: %w", cmd, err)
	}

	return nil
}

// Ask sends a query and returns the reply line with line endings trimmed.
func (c *Conn) Ask(cmd string) (string, error) {
	if err := c.Write(cmd); err != nil {
		return "", err
	}

	if err := c.conn.SetReadDeadline(c.deadline()); err != nil {
		return "", fmt.Errorf("scope: %w", err)
	}

	reply, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("scope: reply to %q: %w", cmd, err)
	}

	return strings.TrimRight(reply, "\r\n"), nil
}

// ReadRaw reads one raw reply. A reply starting with '#' is read as an
// IEEE 488.2 definite-length block and returned with its header intact,
// ready for [DecodeBlock]; anything else is returned as a single line
// without its terminator.
func (c *Conn) ReadRaw() ([]byte, error) {
	if err := c.conn.SetReadDeadline(c.deadline()); err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}

	first, err := c.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}

	if first != '#' {
		rest, err := c.r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("scope: %w", err)
		}

		line := append([]byte{first}, rest...)

		return []byte(strings.TrimRight(string(line), "\r\n")), nil
	}

	digit, err := c.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}

	if digit < '0' || digit > '9' {
		return nil, fmt.Errorf("%w: header digit %q", ErrBlockFormat, digit)
	}

	headLen := int(digit - '0')

	head := make([]byte, headLen)
	if _, err := io.ReadFull(c.r, head); err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}

	payloadLen := 0
	for _, b := range head {
		if b < '0' || b > '9' {
			return nil, fmt.Errorf("%w: length field %q", ErrBlockFormat, head)
		}

		payloadLen = payloadLen*10 + int(b-'0')
	}

	raw := make([]byte, 2+headLen+payloadLen)
	raw[0] = '#'
	raw[1] = digit
	copy(raw[2:], head)

	if _, err := io.ReadFull(c.r, raw[2+headLen:]); err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}

	// Discard a buffered block terminator, if any.
	if c.r.Buffered() > 0 {
		if b, _ := c.r.Peek(1); len(b) == 1 && (b[0] == '\n' || b[0] == '\r') {
			_, _ = c.r.Discard(1)
		}
	}

	return raw, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
