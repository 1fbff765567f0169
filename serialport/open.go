package serialport

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/uart"
	"periph.io/x/conn/v3/uart/uartreg"
	"periph.io/x/host/v3"
)

// Line settings of the iceFUN programmer.
const (
	DefaultBaud        = 9600 * physic.Hertz
	DefaultReadTimeout = 10 * time.Second
)

// ErrNoBoard is returned by Open when no port name is given and no iceFUN
// board is connected.
var ErrNoBoard = errors.New("serialport: no iceFUN board found")

type openOptions struct {
	baud    physic.Frequency
	timeout time.Duration
}

// Option configures Open.
type Option func(*openOptions)

// WithBaud overrides DefaultBaud.
func WithBaud(f physic.Frequency) Option {
	return func(o *openOptions) { o.baud = f }
}

// WithReadTimeout overrides DefaultReadTimeout.
func WithReadTimeout(d time.Duration) Option {
	return func(o *openOptions) { o.timeout = d }
}

// Init loads the periph host drivers, which registers the serial ports of
// the host in uartreg. It is safe to call more than once.
func Init() error {
	state, err := host.Init()
	if err != nil {
		return fmt.Errorf("host initialization failed: %w", err)
	}
	for _, f := range state.Failed {
		if f.D.String() == driverName {
			return fmt.Errorf("%s: %w", driverName, f.Err)
		}
	}
	return nil
}

// Open connects to the port called name, which can be a device path, a
// uartreg alias such as BoardAlias, or a port number. An empty name selects
// the first iceFUN board. The line is 8N1 without flow control.
func Open(name string, opts ...Option) (*Conn, error) {
	o := &openOptions{baud: DefaultBaud, timeout: DefaultReadTimeout}
	for _, opt := range opts {
		opt(o)
	}

	if err := Init(); err != nil {
		return nil, err
	}
	pc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return connect(pc, o)
}

// connect sets up the line and drops whatever the board sent before the
// first request, e.g. the tail of a reply to an interrupted run.
func connect(pc uart.PortCloser, o *openOptions) (*Conn, error) {
	c, err := pc.Connect(o.baud, uart.One, uart.NoParity, uart.NoFlow, 8)
	if err != nil {
		pc.Close()
		return nil, err
	}
	conn, ok := c.(*Conn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("serialport: %s is not a serial device port", pc)
	}
	if err := conn.SetReadTimeout(o.timeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("serialport: %s: set read timeout: %w", pc, err)
	}
	if err := conn.Reset(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("serialport: %s: flush: %w", pc, err)
	}
	return conn, nil
}

func lookup(name string) (uart.PortCloser, error) {
	if name == "" {
		if len(Boards()) == 0 {
			return nil, ErrNoBoard
		}
		return uartreg.Open("")
	}
	pc, err := uartreg.Open(name)
	if err != nil {
		// ports the enumerator does not report, e.g. ptys, are opened by path
		return NewPort(name), nil
	}
	return pc, nil
}

// PortInfo is a registered serial port.
type PortInfo struct {
	*uartreg.Ref
	Board bool // an iceFUN board; Number is its index
}

// Ports returns every registered serial port by name, boards marked.
func Ports() []PortInfo {
	refs := uartreg.All()
	out := make([]PortInfo, 0, len(refs))
	for _, r := range refs {
		out = append(out, PortInfo{Ref: r, Board: r.Number >= 0})
	}
	slices.SortFunc(out, func(a, b PortInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Boards returns the registered iceFUN boards, first board first.
func Boards() []*uartreg.Ref {
	var out []*uartreg.Ref
	for _, r := range uartreg.All() {
		if r.Number >= 0 {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b *uartreg.Ref) int { return a.Number - b.Number })
	return out
}
