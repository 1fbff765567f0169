package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// barPeriod is how often the bar is redrawn.
const barPeriod = 100 * time.Millisecond

// progressBar draws one bar per action ("Programming", "Verifying", ...).
type progressBar struct {
	w      io.Writer
	action string
	bar    *progressbar.ProgressBar
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

func (p *progressBar) report(action string, percent int) {
	if p.bar == nil || action != p.action {
		p.finish()
		p.action = action
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(fmt.Sprintf("%-11s", action)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(barPeriod),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = p.bar.Set(percent)
}

// finish completes the current bar, if any.
func (p *progressBar) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.w)
	p.bar = nil
}
