package hambits

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tarm/serial"
)

// Port is the byte transport the driver drives. Read blocks for at most the
// configured per-read timeout; an expired timeout is reported as a zero-byte
// read (n == 0 with a nil or io.EOF error), matching tarm/serial's behavior
// with Config.ReadTimeout set.
type Port interface {
	io.ReadWriteCloser
	// Flush discards buffered input so the next reply read starts aligned.
	Flush() error
}

// openPort opens name with the r0tor's fixed framing. The read timeout is
// the per-attempt deadline of the transaction engine, not the total budget.
func openPort(name string) (Port, error) {
	c := &serial.Config{
		Name:        name,
		Baud:        Caps.Serial.Baud,
		Size:        byte(Caps.Serial.DataBits),
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: Caps.Timeout,
	}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", name, err)
	}
	return s, nil
}

// pipePort adapts a net.Conn (e.g. one end of the simulator's net.Pipe) to
// the Port interface, applying the driver's read timeout as a deadline so
// the retry policy behaves the same as over a real serial port.
type pipePort struct {
	net.Conn
}

// NewPipePort wraps conn for use as the driver's transport.
func NewPipePort(conn net.Conn) Port {
	return pipePort{conn}
}

func (p pipePort) Read(b []byte) (int, error) {
	if err := p.SetReadDeadline(time.Now().Add(Caps.Timeout)); err != nil {
		return 0, err
	}
	n, err := p.Conn.Read(b)
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return n, nil
	}
	return n, err
}

func (p pipePort) Flush() error { return nil }
