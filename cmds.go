package icefun

import (
	"fmt"
	"io"
)

// Opcode is the first byte of every request sent to the board.
type Opcode byte

// iceFUN programmer commands [iceFUN|Programming protocol]
const (
	OpGetVersion       Opcode = 0xB1
	OpResetAndIdentify Opcode = 0xB2 // hold the FPGA in reset, return the flash JEDEC ID
	OpErase64K         Opcode = 0xB4
	OpProgramPage      Opcode = 0xB5
	OpReadPage         Opcode = 0xB6
	OpVerifyPage       Opcode = 0xB7
	OpReleaseDevice    Opcode = 0xB9 // release the FPGA from reset
)

func (o Opcode) String() string {
	switch o {
	case OpGetVersion:
		return "GetVersion"
	case OpResetAndIdentify:
		return "ResetAndIdentify"
	case OpErase64K:
		return "Erase64K"
	case OpProgramPage:
		return "ProgramPage"
	case OpReadPage:
		return "ReadPage"
	case OpVerifyPage:
		return "VerifyPage"
	case OpReleaseDevice:
		return "ReleaseDevice"
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(o))
}

const (
	versionHeader = 0x26 // first byte of a GetVersion reply
	addrBytes     = 3
	maxAddr       = 1<<24 - 1
)

// Command pairs an opcode with the encoding of its arguments and the decoding
// of its reply. Commands hold no state and can be reused.
type Command[A, R any] struct {
	Op     Opcode
	encode func(A) []byte
	decode func(Opcode, io.Reader) (R, error)
}

// Encode returns the argument bytes that follow the opcode on the wire.
func (c Command[A, R]) Encode(args A) []byte { return c.encode(args) }

// Decode reads exactly one reply from r.
func (c Command[A, R]) Decode(r io.Reader) (R, error) { return c.decode(c.Op, r) }

// Version is the firmware version reported by GetVersion.
type Version byte

// Status is a one-byte reply whose value carries no meaning.
type Status byte

// Page is the payload of a ReadPage reply.
type Page [PageSize]byte

// ProgData is the argument of ProgramPage and VerifyPage. On the wire it is
// always the 24-bit address followed by exactly one page: Data is truncated
// or zero-padded to PageSize.
type ProgData struct {
	Addr int
	Data []byte
}

// ReadData is the argument of ReadPage.
type ReadData struct {
	Addr int
}

var (
	CmdGetVersion  = Command[struct{}, Version]{OpGetVersion, encodeNone, decodeVersion}
	CmdReset       = Command[struct{}, FlashID]{OpResetAndIdentify, encodeNone, decodeFlashID}
	CmdErase64K    = Command[uint8, Status]{OpErase64K, encodeSector, decodeStatus}
	CmdProgramPage = Command[ProgData, struct{}]{OpProgramPage, encodeProgData, decodeProgResult}
	CmdReadPage    = Command[ReadData, Page]{OpReadPage, encodeReadData, decodePage}
	CmdVerifyPage  = Command[ProgData, struct{}]{OpVerifyPage, encodeProgData, decodeProgResult}
	CmdRelease     = Command[struct{}, Status]{OpReleaseDevice, encodeNone, decodeStatus}
)

func putAddr(b []byte, addr int) {
	b[0] = byte(addr >> 16)
	b[1] = byte(addr >> 8)
	b[2] = byte(addr)
}

func encodeNone(struct{}) []byte { return nil }

func encodeSector(sector uint8) []byte { return []byte{sector} }

func encodeProgData(p ProgData) []byte {
	buf := make([]byte, addrBytes+PageSize)
	putAddr(buf, p.Addr)
	copy(buf[addrBytes:], p.Data)
	return buf
}

func encodeReadData(r ReadData) []byte {
	buf := make([]byte, addrBytes)
	putAddr(buf, r.Addr)
	return buf
}

func readReply(op Opcode, r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%s: read reply: %w", op, err)
	}
	return buf, nil
}

func decodeStatus(op Opcode, r io.Reader) (Status, error) {
	b, err := readReply(op, r, 1)
	if err != nil {
		return 0, err
	}
	return Status(b[0]), nil
}

func decodeVersion(op Opcode, r io.Reader) (Version, error) {
	b, err := readReply(op, r, 2)
	if err != nil {
		return 0, err
	}
	if b[0] != versionHeader {
		return 0, &ProtocolError{Op: op, Reason: fmt.Sprintf("unexpected version-reply header 0x%02x", b[0])}
	}
	return Version(b[1]), nil
}

func decodeFlashID(op Opcode, r io.Reader) (FlashID, error) {
	b, err := readReply(op, r, 3)
	if err != nil {
		return FlashID{}, err
	}
	return FlashID(b), nil
}

func decodeProgResult(op Opcode, r io.Reader) (struct{}, error) {
	b, err := readReply(op, r, 1)
	if err != nil {
		return struct{}{}, err
	}
	if b[0] == 0 {
		return struct{}{}, nil
	}
	diag, err := readReply(op, r, 3)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, &MismatchError{
		Op:       op,
		Status:   b[0],
		Offset:   diag[0],
		Expected: diag[1],
		Actual:   diag[2],
	}
}

func decodePage(op Opcode, r io.Reader) (Page, error) {
	var p Page
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return p, fmt.Errorf("%s: read reply: %w", op, err)
	}
	return p, nil
}
