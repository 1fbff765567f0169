package icefun

import (
	"iter"
	"math"
	"time"
)

// ReportPeriod is the default minimum interval between progress reports.
const ReportPeriod = time.Second

// Range is a contiguous region of flash.
type Range struct {
	Start int
	Len   int
}

// End returns the first address past the range.
func (r Range) End() int { return r.Start + r.Len }

// Sectors returns the 64KB sector indices from Start>>16 through End>>16
// inclusive.
func (r Range) Sectors() (iter.Seq[uint8], error) {
	const limit = (math.MaxUint8 + 1) << SectorShift
	if r.Start < 0 || r.Len < 0 || r.Len >= limit-r.Start {
		return nil, &RangeError{Addr: r.Start, Len: r.Len, Limit: limit}
	}
	first := r.Start >> SectorShift
	last := r.End() >> SectorShift
	return func(yield func(uint8) bool) {
		for s := first; s <= last; s++ {
			if !yield(uint8(s)) {
				return
			}
		}
	}, nil
}

// Pages splits the range into windows of n bytes. The last window holds the
// remainder. An empty range has no windows. n must be positive.
func (r Range) Pages(n int) iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for start := r.Start; start < r.End(); start += n {
			if !yield(Range{Start: start, Len: min(n, r.End()-start)}) {
				return
			}
		}
	}
}

// Count returns the number of n-byte windows in the range.
func (r Range) Count(n int) int {
	if r.Len <= 0 {
		return 0
	}
	return 1 + (r.Len-1)/n
}

// reporter throttles progress reports to one per period. The final step is
// always reported.
type reporter struct {
	action string
	total  int
	period time.Duration
	now    func() time.Time
	sink   Progress
	last   time.Time
}

func (o *options) reporter(action string, total int) *reporter {
	return &reporter{
		action: action,
		total:  total,
		period: o.period,
		now:    o.now,
		sink:   o.progress,
		last:   o.now(),
	}
}

// step reports completion of the done-th item, counting from 1.
func (p *reporter) step(done int) {
	t := p.now()
	if done < p.total && t.Sub(p.last) < p.period {
		return
	}
	p.last = t
	p.sink(p.action, 100*done/p.total)
}

// tracked wraps seq so that progress is reported after each item.
func tracked[T any](seq iter.Seq[T], p *reporter) iter.Seq[T] {
	return func(yield func(T) bool) {
		done := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			done++
			p.step(done)
		}
	}
}
