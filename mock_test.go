package icefun

import (
	"bytes"
	"errors"
	"io"
)

// mockPort answers every write with the next scripted reply. Replies only
// become readable once the matching request has been written, as on the
// real board.
type mockPort struct {
	replies [][]byte
	pending bytes.Buffer
	written bytes.Buffer
	frames  [][]byte

	writeErr error
}

func newMockPort(replies ...[]byte) *mockPort {
	return &mockPort{replies: replies}
}

func (m *mockPort) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.written.Write(p)
	m.frames = append(m.frames, bytes.Clone(p))
	if len(m.replies) > 0 {
		m.pending.Write(m.replies[0])
		m.replies = m.replies[1:]
	}
	return len(p), nil
}

func (m *mockPort) Read(p []byte) (int, error) {
	if m.pending.Len() == 0 {
		return 0, io.EOF
	}
	return m.pending.Read(p)
}

// opcodes returns the first byte of every request written so far.
func (m *mockPort) opcodes() []Opcode {
	ops := make([]Opcode, 0, len(m.frames))
	for _, f := range m.frames {
		ops = append(ops, Opcode(f[0]))
	}
	return ops
}

var errMockWrite = errors.New("mock write failure")

// fakeFlash records bulk operations without going through the wire.
type fakeFlash struct {
	mem     [FlashSize]byte
	erased  []uint8
	calls   []string
	failAt  int // fail the n-th page operation (1-based), 0 disables
	failErr error
	ops     int
}

func newFakeFlash() *fakeFlash {
	f := &fakeFlash{}
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	return f
}

func (f *fakeFlash) fail() error {
	f.ops++
	if f.failAt != 0 && f.ops == f.failAt {
		return f.failErr
	}
	return nil
}

func (f *fakeFlash) Erase64K(sector uint8) error {
	f.erased = append(f.erased, sector)
	base := int(sector) << SectorShift
	for i := base; i < base+SectorSize && i < FlashSize; i++ {
		f.mem[i] = 0xFF
	}
	return nil
}

func (f *fakeFlash) ProgramPage(addr int, data []byte) error {
	f.calls = append(f.calls, "program")
	if err := f.fail(); err != nil {
		return err
	}
	copy(f.mem[addr:addr+PageSize], pad(data))
	return nil
}

func (f *fakeFlash) VerifyPage(addr int, data []byte) error {
	f.calls = append(f.calls, "verify")
	if err := f.fail(); err != nil {
		return err
	}
	want := pad(data)
	for i, b := range want {
		if got := f.mem[addr+i]; got != b {
			return &MismatchError{Op: OpVerifyPage, Status: 1, Offset: byte(i), Expected: b, Actual: got}
		}
	}
	return nil
}

func (f *fakeFlash) ReadPage(addr, n int, w io.Writer) error {
	f.calls = append(f.calls, "read")
	if err := f.fail(); err != nil {
		return err
	}
	_, err := w.Write(f.mem[addr : addr+n])
	return err
}

func pad(data []byte) []byte {
	buf := make([]byte, PageSize)
	copy(buf, data)
	return buf
}
