// Command icefun programs and reads the SPI flash of iceFUN FPGA boards.
//
// Usage:
//
//	icefun prog [-o offset] [-v] image.bin
//	icefun verify [-o offset] image.bin
//	icefun erase [-o offset] -s size
//	icefun dump [-o offset] [-s size] out.bin
//	icefun info
//	icefun list
//	icefun config [-f] [path]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gentam/icefun/config"
	"github.com/gentam/icefun/serialport"
	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"
)

var (
	rootCmd = &cobra.Command{
		Use:               "icefun",
		Short:             "Program the SPI flash of iceFUN FPGA boards.",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

var (
	flagPort     string
	flagLogLevel string
	flagConfig   string
	flagBaud     int
	flagTimeout  time.Duration
	flagProgress bool
)

// logger is installed by setup.
var logger *slog.Logger

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagPort, "port", "p", "", "serial port, alias or number (default: first iceFUN board)")
	pf.StringVarP(&flagLogLevel, "log-level", "l", "info", "off, error, warn, info, debug or trace")
	pf.StringVarP(&flagConfig, "config", "c", "", "config file (default: ./"+config.DefaultPath+" if present)")
	pf.IntVar(&flagBaud, "baud", int(serialport.DefaultBaud/physic.Hertz), "baud rate")
	pf.DurationVar(&flagTimeout, "timeout", serialport.DefaultReadTimeout, "serial read timeout")
	pf.BoolVar(&flagProgress, "progress", true, "show a progress bar on stderr")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
}

// usageError makes the process exit with status 2.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// exactArgs is cobra.ExactArgs reporting a usageError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// setup merges the config file into the flags that were not given and
// installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	if err := applyConfig(cmd, cfg); err != nil {
		return err
	}

	level, err := config.ParseLevel(flagLogLevel)
	if err != nil {
		return usageError{err}
	}
	logger = newLogger(os.Stderr, level)
	slog.SetDefault(logger)
	return nil
}

func loadConfig(path string) (*config.Schema, error) {
	if path == "" {
		s, err := config.ReadSchema(config.DefaultPath)
		if errors.Is(err, os.ErrNotExist) {
			return new(config.Schema), nil
		}
		return s, err
	}
	return config.ReadSchema(path)
}

func applyConfig(cmd *cobra.Command, cfg *config.Schema) error {
	flags := cmd.Flags()
	if !flags.Changed("port") && cfg.Port != "" {
		flagPort = cfg.Port
	}
	if !flags.Changed("log-level") && cfg.LogLevel != "" {
		flagLogLevel = cfg.LogLevel
	}
	if !flags.Changed("baud") && cfg.Baud != 0 {
		flagBaud = cfg.Baud
	}
	if !flags.Changed("timeout") {
		d, err := cfg.ReadTimeout()
		if err != nil {
			return err
		}
		if d != 0 {
			flagTimeout = d
		}
	}
	if f := flags.Lookup("offset"); f != nil && !f.Changed && cfg.Offset != "" {
		if err := f.Value.Set(cfg.Offset); err != nil {
			return fmt.Errorf("config offset: %w", err)
		}
	}
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(console.NewHandler(w, &console.HandlerOptions{
		AddSource: level < slog.LevelDebug,
		Level:     level,
	}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'icefun --help' for usage.\n")
		os.Exit(2)
	}
	if logger != nil && logger.Enabled(ctx, slog.LevelError) {
		logger.Error(err.Error())
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}
