package icefun

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectors(t *testing.T) {
	tests := []struct {
		name string
		rng  Range
		want []uint8
	}{
		{"single", Range{0, 100}, []uint8{0}},
		{"empty", Range{0x20000, 0}, []uint8{2}},
		{"ends on boundary", Range{0, 0x10000}, []uint8{0, 1}},
		{"spans", Range{0x1FFFF, 0x20002}, []uint8{1, 2, 3, 4}},
		{"last sector", Range{0xFF0000, 0xFFFF}, []uint8{0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := tt.rng.Sectors()
			require.NoError(t, err)
			assert.Equal(t, tt.want, slices.Collect(seq))
		})
	}
}

func TestSectorsOutOfRange(t *testing.T) {
	for _, r := range []Range{{0xFF0000, 0x10000}, {0x1000000, 1}, {-1, 10}, {0, -1}, {1, math.MaxInt}} {
		_, err := r.Sectors()
		assert.ErrorIs(t, err, ErrRange, "%+v", r)
	}
}

func TestPages(t *testing.T) {
	tests := []struct {
		name string
		rng  Range
		n    int
	}{
		{"empty", Range{0x100, 0}, 256},
		{"one byte", Range{0x100, 1}, 256},
		{"exact", Range{0, 512}, 256},
		{"remainder", Range{0x10, 1000}, 256},
		{"small windows", Range{7, 23}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := slices.Collect(tt.rng.Pages(tt.n))
			require.Len(t, windows, tt.rng.Count(tt.n))

			next := tt.rng.Start
			for i, w := range windows {
				assert.Equal(t, next, w.Start, "window %d", i)
				assert.Equal(t, tt.rng.Start+i*tt.n, w.Start)
				assert.Positive(t, w.Len)
				assert.LessOrEqual(t, w.Len, tt.n)
				next = w.End()
			}
			if len(windows) > 0 {
				assert.Equal(t, tt.rng.End(), next)
				last := tt.rng.Len % tt.n
				if last == 0 {
					last = tt.n
				}
				assert.Equal(t, last, windows[len(windows)-1].Len)
			}
		})
	}
}

func TestPagesCount(t *testing.T) {
	assert.Equal(t, 0, Range{0, 0}.Count(PageSize))
	assert.Equal(t, 1, Range{0, 1}.Count(PageSize))
	assert.Equal(t, 1, Range{0, 256}.Count(PageSize))
	assert.Equal(t, 2, Range{0, 257}.Count(PageSize))
	assert.Equal(t, 4096, Range{0, FlashSize}.Count(PageSize))
}

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

type report struct {
	action  string
	percent int
}

func TestProgressThrottled(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 300 * time.Millisecond}
	var got []report
	o := newOptions([]Option{
		WithClock(clock.now),
		WithProgress(func(a string, p int) { got = append(got, report{a, p}) }),
	})

	n := 0
	for range tracked(Range{0, 10 * PageSize}.Pages(PageSize), o.reporter("Programming", 10)) {
		n++
	}
	assert.Equal(t, 10, n)

	// One tick per item, 300ms apart: a report every fourth item plus the last.
	assert.Equal(t, []report{
		{"Programming", 40},
		{"Programming", 80},
		{"Programming", 100},
	}, got)
}

func TestProgressFinalAlwaysReported(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var got []report
	o := newOptions([]Option{
		WithClock(clock.now),
		WithProgress(func(a string, p int) { got = append(got, report{a, p}) }),
	})
	for range tracked(Range{0, 3}.Pages(1), o.reporter("Dumping", 3)) {
	}
	assert.Equal(t, []report{{"Dumping", 100}}, got)
}

func TestProgressStopsOnBreak(t *testing.T) {
	var got []report
	o := newOptions([]Option{
		WithReportPeriod(0),
		WithProgress(func(a string, p int) { got = append(got, report{a, p}) }),
	})
	for w := range tracked(Range{0, 4}.Pages(1), o.reporter("Verifying", 4)) {
		if w.Start == 2 {
			break
		}
	}
	assert.Equal(t, []report{{"Verifying", 25}, {"Verifying", 50}}, got)
}
