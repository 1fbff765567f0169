package icefun

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func image(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func quiet() []Option {
	return []Option{WithLogger(discardLogger()), WithProgress(func(string, int) {})}
}

func TestProgramAndVerify(t *testing.T) {
	img := image(3*PageSize + 17)
	const offset = 0x20000

	flash := newFakeFlash()
	p := NewProgrammer(bytes.NewReader(img), offset, len(img), quiet()...)
	ctx := context.Background()

	require.NoError(t, p.Erase(ctx, flash))
	assert.Equal(t, []uint8{2}, flash.erased)

	require.NoError(t, p.Program(ctx, flash))
	assert.Equal(t, img, flash.mem[offset:offset+len(img)])
	assert.Equal(t, byte(0), flash.mem[offset+len(img)], "last page is zero-padded")

	require.NoError(t, p.Verify(ctx, flash))
	assert.Equal(t, []string{
		"program", "program", "program", "program",
		"verify", "verify", "verify", "verify",
	}, flash.calls)
}

func TestVerifyMismatch(t *testing.T) {
	img := image(2 * PageSize)
	flash := newFakeFlash()
	p := NewProgrammer(bytes.NewReader(img), 0, len(img), quiet()...)
	require.NoError(t, p.Program(context.Background(), flash))

	flash.mem[PageSize+5] ^= 0xFF
	err := p.Verify(context.Background(), flash)
	var merr *MismatchError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, byte(5), merr.Offset)
	assert.Equal(t, img[PageSize+5], merr.Expected)
	assert.Contains(t, err.Error(), "verify page 0x000100")
}

func TestProgramAbortsOnFirstError(t *testing.T) {
	flash := newFakeFlash()
	flash.failAt = 2
	flash.failErr = io.ErrUnexpectedEOF

	img := image(5 * PageSize)
	p := NewProgrammer(bytes.NewReader(img), 0, len(img), quiet()...)
	err := p.Program(context.Background(), flash)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Len(t, flash.calls, 2)
}

func TestProgramShortSource(t *testing.T) {
	flash := newFakeFlash()
	img := image(100)
	p := NewProgrammer(bytes.NewReader(img), 0, 2*PageSize, quiet()...)
	err := p.Program(context.Background(), flash)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Empty(t, flash.calls)
}

func TestProgramRewinds(t *testing.T) {
	img := image(PageSize)
	src := bytes.NewReader(img)
	_, err := src.Seek(100, io.SeekStart)
	require.NoError(t, err)

	flash := newFakeFlash()
	p := NewProgrammer(src, 0, len(img), quiet()...)
	require.NoError(t, p.Program(context.Background(), flash))
	assert.Equal(t, img, flash.mem[:PageSize])
}

func TestProgramCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flash := newFakeFlash()
	img := image(PageSize)
	p := NewProgrammer(bytes.NewReader(img), 0, len(img), quiet()...)
	assert.ErrorIs(t, p.Program(ctx, flash), context.Canceled)
	assert.ErrorIs(t, p.Erase(ctx, flash), context.Canceled)
	assert.Empty(t, flash.calls)
	assert.Empty(t, flash.erased)
}

func TestEraseRange(t *testing.T) {
	flash := newFakeFlash()
	require.NoError(t, EraseRange(context.Background(), flash, Range{0x18000, 0x10000}, quiet()...))
	assert.Equal(t, []uint8{1, 2}, flash.erased)

	err := EraseRange(context.Background(), flash, Range{0xFFFFFF, 2}, quiet()...)
	assert.ErrorIs(t, err, ErrRange)
}

func TestEmptyImage(t *testing.T) {
	flash := newFakeFlash()
	p := NewProgrammer(bytes.NewReader(nil), 0, 0, quiet()...)
	require.NoError(t, p.Program(context.Background(), flash))
	require.NoError(t, p.Verify(context.Background(), flash))
	assert.Empty(t, flash.calls)
}

func TestDump(t *testing.T) {
	flash := newFakeFlash()
	copy(flash.mem[0x100:], image(1000))

	var out bytes.Buffer
	d, err := NewDumper(&out, 0x100, 600, quiet()...)
	require.NoError(t, err)
	require.NoError(t, d.Dump(context.Background(), flash))
	assert.Equal(t, image(600), out.Bytes())
	assert.Equal(t, []string{"read", "read", "read"}, flash.calls)
}

func TestDumpToEndOfFlash(t *testing.T) {
	d, err := NewDumper(io.Discard, FlashSize-PageSize-1, 0, quiet()...)
	require.NoError(t, err)
	assert.Equal(t, Range{FlashSize - PageSize - 1, PageSize + 1}, d.Range())

	flash := newFakeFlash()
	require.NoError(t, d.Dump(context.Background(), flash))
	assert.Len(t, flash.calls, 2)
}

func TestDumpRange(t *testing.T) {
	for _, tt := range []struct{ offset, size int }{
		{0, FlashSize + 1},
		{FlashSize, 1},
		{-1, 10},
		{FlashSize + 1, 0},
		{1, math.MaxInt},
		{math.MaxInt, 1},
	} {
		_, err := NewDumper(io.Discard, tt.offset, tt.size)
		assert.ErrorIs(t, err, ErrRange, "%+v", tt)
	}
}

func TestDumpPropagatesReadError(t *testing.T) {
	flash := newFakeFlash()
	flash.failAt = 1
	flash.failErr = errors.New("link down")

	d, err := NewDumper(io.Discard, 0, 1024, quiet()...)
	require.NoError(t, err)
	err = d.Dump(context.Background(), flash)
	assert.ErrorIs(t, err, flash.failErr)
	assert.Len(t, flash.calls, 1)
}

func TestProgrammerFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	img := image(PageSize + 1)
	require.NoError(t, os.WriteFile(path, img, 0o644))

	p, err := OpenProgrammer(path, 64<<10, quiet()...)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, Range{64 << 10, PageSize + 1}, p.Range())

	flash := newFakeFlash()
	require.NoError(t, p.Program(context.Background(), flash))
	assert.Equal(t, img, flash.mem[64<<10:64<<10+len(img)])

	_, err = OpenProgrammer(filepath.Join(dir, "missing.bin"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDumperToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.bin")

	flash := newFakeFlash()
	copy(flash.mem[:], image(PageSize))
	d, err := CreateDumper(path, 0, 100, quiet()...)
	require.NoError(t, err)
	require.NoError(t, d.Dump(context.Background(), flash))
	require.NoError(t, d.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image(100), got)

	_, err = CreateDumper(filepath.Join(dir, "bad.bin"), FlashSize, 1)
	assert.ErrorIs(t, err, ErrRange)
	assert.NoFileExists(t, filepath.Join(dir, "bad.bin"))
}

// The whole path through the wire: bulk operations driving a DeviceInReset
// over a scripted port.
func TestProgramOverWire(t *testing.T) {
	img := image(PageSize + 10)
	port, fpga := prepared(t, replyOK, replyOK, replyOK, replyOK, replyOK)

	p := NewProgrammer(bytes.NewReader(img), 0x10000, len(img), quiet()...)
	ctx := context.Background()
	require.NoError(t, p.Erase(ctx, fpga))
	require.NoError(t, p.Program(ctx, fpga))
	require.NoError(t, fpga.Close())

	assert.Equal(t, []Opcode{OpErase64K, OpProgramPage, OpProgramPage, OpReleaseDevice}, port.opcodes())
	assert.Equal(t, []byte{0xB4, 0x01}, port.frames[0])
	assert.Equal(t, []byte{0xB5, 0x01, 0x00, 0x00}, port.frames[1][:4])
	assert.Equal(t, []byte{0xB5, 0x01, 0x01, 0x00}, port.frames[2][:4])
	assert.Equal(t, img[PageSize:], port.frames[2][4:4+10])
	assert.Equal(t, make([]byte, PageSize-10), port.frames[2][4+10:])
}
