package icefun

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol matches every *ProtocolError.
	ErrProtocol = errors.New("protocol error")
	// ErrRange matches every *RangeError.
	ErrRange = errors.New("address out of range")
	// ErrState is returned when a command is issued on a handle that is not
	// in the right lifecycle state: an Idle device that was already reset, or
	// an InReset device that was already released.
	ErrState = errors.New("invalid device state")
)

// ProtocolError reports a reply that does not follow the wire format.
type ProtocolError struct {
	Op     Opcode
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// MismatchError is the failure reported by ProgramPage and VerifyPage.
// Offset is relative to the start of the page.
type MismatchError struct {
	Op       Opcode
	Status   byte
	Offset   byte
	Expected byte
	Actual   byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s failed (status 0x%02x) at page offset 0x%02x: expected 0x%02x, read 0x%02x",
		e.Op, e.Status, e.Offset, e.Expected, e.Actual)
}

// RangeError reports a request outside of the addressable flash.
type RangeError struct {
	Addr  int
	Len   int
	Limit int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range 0x%X+%d exceeds limit 0x%X", e.Addr, e.Len, e.Limit)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }
