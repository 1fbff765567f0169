package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/gentam/icefun"
	"github.com/gentam/icefun/serialport"
	"github.com/spf13/pflag"
	"periph.io/x/conn/v3/physic"
)

// openBoard connects to the board selected by --port.
func openBoard() (*serialport.Conn, error) {
	port, err := serialport.Open(flagPort,
		serialport.WithBaud(physic.Frequency(flagBaud)*physic.Hertz),
		serialport.WithReadTimeout(flagTimeout),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("Connected", "port", port.String())
	return port, nil
}

// withDevice holds the FPGA in reset while fn runs and releases it
// afterwards, also when fn fails or ctx is cancelled.
func withDevice(ctx context.Context, fn func(ctx context.Context, fpga *icefun.DeviceInReset) error) error {
	port, err := openBoard()
	if err != nil {
		return err
	}
	defer port.Close()

	dev := icefun.NewDevice(port, icefun.WithLogger(logger))
	return dev.Run(func(fpga *icefun.DeviceInReset) error {
		return fn(ctx, fpga)
	})
}

// bulkOptions returns the options for Programmer and Dumper. The returned
// func finishes the progress bar.
func bulkOptions(w io.Writer) ([]icefun.Option, func()) {
	opts := []icefun.Option{icefun.WithLogger(logger)}
	if !flagProgress || !logger.Enabled(context.Background(), slog.LevelInfo) {
		return opts, func() {}
	}
	bar := newProgressBar(w)
	opts = append(opts,
		icefun.WithProgress(bar.report),
		icefun.WithReportPeriod(barPeriod),
	)
	return opts, bar.finish
}

// addrValue is a pflag.Value for flash offsets and sizes with K and M
// suffixes.
type addrValue int

func (a *addrValue) String() string {
	return "0x" + strconv.FormatInt(int64(*a), 16)
}

func (a *addrValue) Set(s string) error {
	v, err := icefun.ParseAddr(s)
	if err != nil {
		return err
	}
	*a = addrValue(v)
	return nil
}

func (a *addrValue) Type() string { return "addr" }

var _ pflag.Value = (*addrValue)(nil)

func describe(id icefun.FlashID) string {
	if name, ok := id.Name(); ok {
		return fmt.Sprintf("%s (%s)", id, name)
	}
	return fmt.Sprintf("%s (unknown)", id)
}
