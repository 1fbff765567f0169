package icefun

import (
	"fmt"
	"log/slog"
	"time"
)

// LevelTrace is used for raw wire dumps. It sits below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// Progress receives completion percentages of bulk operations. Action is
// "Programming", "Verifying" or "Dumping".
type Progress func(action string, percent int)

type options struct {
	logger   *slog.Logger
	progress Progress
	period   time.Duration
	now      func() time.Time
}

// Option configures a Device, Programmer or Dumper.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		period: ReportPeriod,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.progress == nil {
		o.progress = logProgress(o.logger)
	}
	return o
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress sets the progress sink. By default progress is logged at
// info level.
func WithProgress(p Progress) Option {
	return func(o *options) { o.progress = p }
}

// WithReportPeriod sets the minimum interval between two progress reports.
func WithReportPeriod(d time.Duration) Option {
	return func(o *options) { o.period = d }
}

// WithClock replaces time.Now for progress throttling.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func logProgress(l *slog.Logger) Progress {
	return func(action string, percent int) {
		l.Info(fmt.Sprintf("%s %d%%", action, percent))
	}
}
