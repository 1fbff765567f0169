// Package serialport exposes USB CDC serial ports through the periph.io uart
// interfaces and finds iceFUN boards among them.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/uart"
)

// ErrTimeout is returned by Read when nothing arrived within the read
// timeout.
var ErrTimeout = errors.New("serialport: read timeout")

// openPort is replaced in tests.
var openPort = serial.Open

// Port is a serial device node, e.g. /dev/ttyACM0 or COM3.
type Port struct {
	name string

	mu    sync.Mutex
	limit physic.Frequency
	conn  *Conn
}

// NewPort returns an unconnected port.
func NewPort(name string) *Port {
	return &Port{name: name}
}

func (p *Port) String() string { return p.name }

// LimitSpeed implements uart.PortCloser.
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f < physic.Hertz {
		return fmt.Errorf("serialport: invalid speed %s", f)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limit = f
	return nil
}

// Connect opens the device with the given line settings. The returned
// conn.Conn is a *Conn. Only uart.NoFlow is supported.
func (p *Port) Connect(f physic.Frequency, stopBit uart.Stop, parity uart.Parity, flow uart.Flow, bits int) (conn.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return nil, fmt.Errorf("serialport: %s already connected", p.name)
	}
	if p.limit != 0 && p.limit < f {
		f = p.limit
	}
	mode, err := lineMode(f, stopBit, parity, flow, bits)
	if err != nil {
		return nil, fmt.Errorf("serialport: %s: %w", p.name, err)
	}
	sp, err := openPort(p.name, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", p.name, err)
	}
	p.conn = &Conn{name: p.name, port: sp, freq: f, owner: p}
	return p.conn, nil
}

// Close closes the device if it was connected.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.port.Close()
	p.conn = nil
	return err
}

func lineMode(f physic.Frequency, stopBit uart.Stop, parity uart.Parity, flow uart.Flow, bits int) (*serial.Mode, error) {
	if flow != uart.NoFlow {
		return nil, fmt.Errorf("unsupported flow control %#x", uint32(flow))
	}
	if bits < 5 || bits > 8 {
		return nil, fmt.Errorf("unsupported character size %d", bits)
	}
	baud := int(f / physic.Hertz)
	if baud <= 0 {
		return nil, fmt.Errorf("invalid speed %s", f)
	}
	m := &serial.Mode{BaudRate: baud, DataBits: bits}
	switch stopBit {
	case uart.One:
		m.StopBits = serial.OneStopBit
	case uart.OneHalf:
		m.StopBits = serial.OnePointFiveStopBits
	case uart.Two:
		m.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", stopBit)
	}
	switch parity {
	case uart.NoParity:
		m.Parity = serial.NoParity
	case uart.Odd:
		m.Parity = serial.OddParity
	case uart.Even:
		m.Parity = serial.EvenParity
	case uart.Mark:
		m.Parity = serial.MarkParity
	case uart.Space:
		m.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", byte(parity))
	}
	return m, nil
}

// Conn is a connected serial line. It is both a conn.Conn and an
// io.ReadWriteCloser.
type Conn struct {
	name  string
	port  serial.Port
	freq  physic.Frequency
	owner *Port
}

func (c *Conn) String() string { return fmt.Sprintf("%s@%s", c.name, c.freq) }

// Duplex implements conn.Conn. Tx writes first and reads afterwards.
func (c *Conn) Duplex() conn.Duplex { return conn.Half }

// Tx writes w, then reads exactly len(r) bytes.
func (c *Conn) Tx(w, r []byte) error {
	if len(w) > 0 {
		if _, err := c.Write(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		if _, err := io.ReadFull(c, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) Write(b []byte) (int, error) {
	return c.port.Write(b)
}

// Read blocks until at least one byte arrives or the read timeout expires.
func (c *Conn) Read(b []byte) (int, error) {
	n, err := c.port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, fmt.Errorf("%s: %w", c.name, ErrTimeout)
	}
	return n, err
}

// SetReadTimeout sets how long Read waits for the first byte.
func (c *Conn) SetReadTimeout(d time.Duration) error {
	return c.port.SetReadTimeout(d)
}

// Reset drops anything pending in the OS buffers.
func (c *Conn) Reset() error {
	return errors.Join(c.port.ResetInputBuffer(), c.port.ResetOutputBuffer())
}

// Close closes the underlying device. It is the same as closing the Port
// that created the Conn.
func (c *Conn) Close() error {
	return c.owner.Close()
}

var (
	_ uart.PortCloser    = &Port{}
	_ conn.Conn          = &Conn{}
	_ io.ReadWriteCloser = &Conn{}
)
