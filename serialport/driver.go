package serialport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/uart"
	"periph.io/x/conn/v3/uart/uartreg"
)

// iceFUN programmer USB identifiers (PIC16LF1459 running the Devantech
// firmware).
const (
	VendorID  = 0x04D8 // Microchip
	ProductID = 0xFFEE
)

// BoardAlias is the uartreg alias of the first iceFUN board. Further boards
// are "icefun1", "icefun2", ...
const BoardAlias = "icefun"

const driverName = "icefun-serial"

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// driverSerial registers every serial port of the host in uartreg. iceFUN
// boards are numbered from 0 in enumeration order; other ports get -1.
type driverSerial struct{}

func (d *driverSerial) String() string          { return driverName }
func (d *driverSerial) Prerequisites() []string { return nil }
func (d *driverSerial) After() []string         { return nil }

func (d *driverSerial) Init() (bool, error) {
	ports, err := listPorts()
	if err != nil {
		return true, fmt.Errorf("enumerate serial ports: %w", err)
	}
	if len(ports) == 0 {
		return false, errors.New("no serial port found")
	}
	return true, register(ports)
}

func register(ports []*enumerator.PortDetails) error {
	var errs []error
	board := 0
	for _, p := range ports {
		number := -1
		var aliases []string
		if IsBoard(p) {
			number = board
			aliases = []string{boardAlias(board)}
			board++
		}
		name := p.Name
		err := uartreg.Register(name, aliases, number, func() (uart.PortCloser, error) {
			return NewPort(name), nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func boardAlias(i int) string {
	if i == 0 {
		return BoardAlias
	}
	return BoardAlias + strconv.Itoa(i)
}

// IsBoard reports whether p is the USB CDC interface of an iceFUN board.
func IsBoard(p *enumerator.PortDetails) bool {
	return p.IsUSB && matchID(p.VID, VendorID) && matchID(p.PID, ProductID)
}

// matchID compares a hex USB ID as reported by the enumerator ("04d8" on
// Linux, "04D8" on Windows).
func matchID(s string, id uint16) bool {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	return err == nil && uint16(v) == id
}

func init() {
	driverreg.MustRegister(&drv)
}

var drv driverSerial
