package icefun

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Erasable is the part of DeviceInReset used to erase sectors.
type Erasable interface {
	Erase64K(sector uint8) error
}

// Programmable is the part of DeviceInReset used to write an image.
type Programmable interface {
	Erasable
	ProgramPage(addr int, data []byte) error
	VerifyPage(addr int, data []byte) error
}

// Dumpable is the part of DeviceInReset used to read flash.
type Dumpable interface {
	ReadPage(addr, n int, w io.Writer) error
}

// Programmer writes a raw image to flash. Image byte N goes to flash address
// offset+N.
type Programmer struct {
	src  io.ReadSeeker
	rng  Range
	opts *options
}

// NewProgrammer programs size bytes of src at offset.
func NewProgrammer(src io.ReadSeeker, offset, size int, opts ...Option) *Programmer {
	return &Programmer{
		src:  src,
		rng:  Range{Start: offset, Len: size},
		opts: newOptions(opts),
	}
}

// OpenProgrammer opens the image file at path. The whole file is programmed
// at offset. Close releases the file.
func OpenProgrammer(path string, offset int, opts ...Option) (*Programmer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return NewProgrammer(f, offset, int(fi.Size()), opts...), nil
}

// Range returns the flash region covered by the image.
func (p *Programmer) Range() Range { return p.rng }

// Close closes the source if it is an io.Closer.
func (p *Programmer) Close() error {
	if c, ok := p.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Erase erases every 64KB sector touched by the image.
func (p *Programmer) Erase(ctx context.Context, fpga Programmable) error {
	return eraseRange(ctx, fpga, p.rng, p.opts)
}

// EraseRange erases every 64KB sector touched by r.
func EraseRange(ctx context.Context, fpga Erasable, r Range, opts ...Option) error {
	return eraseRange(ctx, fpga, r, newOptions(opts))
}

func eraseRange(ctx context.Context, fpga Erasable, r Range, o *options) error {
	sectors, err := r.Sectors()
	if err != nil {
		return err
	}
	for s := range sectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.logger.Info(fmt.Sprintf("Erasing sector 0x%02x0000", s))
		if err := fpga.Erase64K(s); err != nil {
			return fmt.Errorf("erase sector 0x%02x: %w", s, err)
		}
	}
	return nil
}

// Program writes the image page by page.
func (p *Programmer) Program(ctx context.Context, fpga Programmable) error {
	return p.eachPage(ctx, "Programming", func(addr int, data []byte) error {
		if err := fpga.ProgramPage(addr, data); err != nil {
			return fmt.Errorf("program page 0x%06x: %w", addr, err)
		}
		return nil
	})
}

// Verify compares flash with the image page by page. The first difference
// is returned as a *MismatchError.
func (p *Programmer) Verify(ctx context.Context, fpga Programmable) error {
	return p.eachPage(ctx, "Verifying", func(addr int, data []byte) error {
		if err := fpga.VerifyPage(addr, data); err != nil {
			return fmt.Errorf("verify page 0x%06x: %w", addr, err)
		}
		return nil
	})
}

func (p *Programmer) eachPage(ctx context.Context, action string, fn func(addr int, data []byte) error) error {
	if _, err := p.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind image: %w", err)
	}

	buf := make([]byte, PageSize)
	pages := tracked(p.rng.Pages(PageSize), p.opts.reporter(action, p.rng.Count(PageSize)))
	for w := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := buf[:w.Len]
		if _, err := io.ReadFull(p.src, data); err != nil {
			return fmt.Errorf("read image at 0x%06x: %w", w.Start-p.rng.Start, err)
		}
		if err := fn(w.Start, data); err != nil {
			return err
		}
	}
	return nil
}

// Dumper reads a region of flash into a writer.
type Dumper struct {
	dst  io.Writer
	rng  Range
	opts *options
}

// NewDumper reads size bytes at offset into dst. A zero size means up to
// the end of flash.
func NewDumper(dst io.Writer, offset, size int, opts ...Option) (*Dumper, error) {
	rng, err := dumpRange(offset, size)
	if err != nil {
		return nil, err
	}
	return &Dumper{
		dst:  dst,
		rng:  rng,
		opts: newOptions(opts),
	}, nil
}

// CreateDumper creates or truncates the file at path. Close releases it.
func CreateDumper(path string, offset, size int, opts ...Option) (*Dumper, error) {
	if _, err := dumpRange(offset, size); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewDumper(f, offset, size, opts...)
}

func dumpRange(offset, size int) (Range, error) {
	if offset < 0 || offset > FlashSize {
		return Range{}, &RangeError{Addr: offset, Len: size, Limit: FlashSize}
	}
	if size == 0 {
		size = FlashSize - offset
	}
	if size < 0 || size > FlashSize-offset {
		return Range{}, &RangeError{Addr: offset, Len: size, Limit: FlashSize}
	}
	return Range{Start: offset, Len: size}, nil
}

// Range returns the flash region to read.
func (d *Dumper) Range() Range { return d.rng }

// Close closes the destination if it is an io.Closer.
func (d *Dumper) Close() error {
	if c, ok := d.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Dump reads the region page by page and appends it to the destination.
func (d *Dumper) Dump(ctx context.Context, fpga Dumpable) error {
	pages := tracked(d.rng.Pages(PageSize), d.opts.reporter("Dumping", d.rng.Count(PageSize)))
	for w := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fpga.ReadPage(w.Start, w.Len, d.dst); err != nil {
			return fmt.Errorf("read page 0x%06x: %w", w.Start, err)
		}
	}
	return nil
}
