package icefun

import (
	"fmt"
	"io"
	"log/slog"
)

// Device is an iceFUN board in normal operation. Only GetVersion and
// ResetAndIdentify are accepted; a successful reset hands the stream over to
// a DeviceInReset and the Device can no longer be used.
type Device struct {
	ch       *Channel
	opts     *options
	consumed bool
}

// NewDevice wraps an open serial stream to the board.
func NewDevice(rw io.ReadWriter, opts ...Option) *Device {
	o := newOptions(opts)
	return &Device{
		ch:   NewChannel(rw, o.logger),
		opts: o,
	}
}

func (d *Device) check(op Opcode) error {
	if d.consumed {
		return fmt.Errorf("%w: %s on a device already held in reset", ErrState, op)
	}
	return nil
}

// Version returns the programmer firmware version.
func (d *Device) Version() (Version, error) {
	if err := d.check(OpGetVersion); err != nil {
		return 0, err
	}
	return Send(d.ch, CmdGetVersion, struct{}{})
}

// Reset holds the FPGA in reset and reads the flash ID.
func (d *Device) Reset() (*DeviceInReset, error) {
	if err := d.check(OpResetAndIdentify); err != nil {
		return nil, err
	}
	id, err := Send(d.ch, CmdReset, struct{}{})
	if err != nil {
		return nil, err
	}
	d.consumed = true
	return &DeviceInReset{dev: d, id: id, log: d.opts.logger}, nil
}

// Prepare checks the firmware version and resets the FPGA so that its flash
// can be accessed.
func (d *Device) Prepare() (*DeviceInReset, error) {
	ver, err := d.Version()
	if err != nil {
		return nil, err
	}
	d.opts.logger.Info(fmt.Sprintf("iceFUN v%d", ver))

	fpga, err := d.Reset()
	if err != nil {
		return nil, err
	}
	if name, ok := fpga.id.Name(); ok {
		d.opts.logger.Info("Flash ID "+fpga.id.String(), "chip", name)
	} else {
		d.opts.logger.Info("Flash ID " + fpga.id.String())
	}
	return fpga, nil
}

// Run prepares the device, calls fn and releases the FPGA afterwards, also
// when fn fails or panics. A release failure is logged only.
func (d *Device) Run(fn func(*DeviceInReset) error) error {
	fpga, err := d.Prepare()
	if err != nil {
		return err
	}
	defer fpga.Close()
	return fn(fpga)
}

// DeviceInReset is a board whose FPGA is held in reset. Close releases it.
type DeviceInReset struct {
	dev      *Device
	id       FlashID
	log      *slog.Logger
	released bool
}

// FlashID returns the ID read during reset.
func (d *DeviceInReset) FlashID() FlashID { return d.id }

func (d *DeviceInReset) check(op Opcode) error {
	if d.released {
		return fmt.Errorf("%w: %s on a released device", ErrState, op)
	}
	return nil
}

// Erase64K erases the 64KB sector starting at sector<<16.
func (d *DeviceInReset) Erase64K(sector uint8) error {
	if err := d.check(OpErase64K); err != nil {
		return err
	}
	_, err := Send(d.dev.ch, CmdErase64K, sector)
	return err
}

// ProgramPage writes one page at addr. data is zero-padded or truncated to
// PageSize.
func (d *DeviceInReset) ProgramPage(addr int, data []byte) error {
	return d.progCmd(CmdProgramPage, addr, data)
}

// VerifyPage compares one page at addr with data. A difference is reported
// as a *MismatchError.
func (d *DeviceInReset) VerifyPage(addr int, data []byte) error {
	return d.progCmd(CmdVerifyPage, addr, data)
}

func (d *DeviceInReset) progCmd(cmd Command[ProgData, struct{}], addr int, data []byte) error {
	if err := d.check(cmd.Op); err != nil {
		return err
	}
	if addr < 0 || addr > maxAddr {
		return &RangeError{Addr: addr, Len: min(len(data), PageSize), Limit: maxAddr + 1}
	}
	_, err := Send(d.dev.ch, cmd, ProgData{Addr: addr, Data: data})
	return err
}

// ReadPage reads n bytes at addr and writes them to w. The request must fit
// in one page and in the flash; this is checked before anything is sent.
func (d *DeviceInReset) ReadPage(addr, n int, w io.Writer) error {
	if err := d.check(OpReadPage); err != nil {
		return err
	}
	if n < 0 || n > PageSize {
		return &RangeError{Addr: addr, Len: n, Limit: PageSize}
	}
	if addr < 0 || addr > FlashSize-n {
		return &RangeError{Addr: addr, Len: n, Limit: FlashSize}
	}
	page, err := Send(d.dev.ch, CmdReadPage, ReadData{Addr: addr})
	if err != nil {
		return err
	}
	_, err = w.Write(page[:n])
	return err
}

// Close sends ReleaseDevice. It is sent at most once; later calls are no-ops.
func (d *DeviceInReset) Close() error {
	if d.released {
		return nil
	}
	d.released = true
	if _, err := Send(d.dev.ch, CmdRelease, struct{}{}); err != nil {
		d.log.Warn("Release failed", "err", err)
		return err
	}
	return nil
}
