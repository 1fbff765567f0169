package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gentam/icefun"
	"github.com/spf13/cobra"
)

var (
	cmdDump = &cobra.Command{
		Use:   "dump [flags] OUTPUT",
		Short: "Read flash into a file",
		Args:  exactArgs(1),
		RunE:  runDump,
	}
	cmdErase = &cobra.Command{
		Use:   "erase [flags]",
		Short: "Erase the 64KB sectors covering a range",
		Args:  exactArgs(0),
		RunE:  runErase,
	}
)

var flagSize addrValue

func init() {
	rootCmd.AddCommand(cmdDump)
	cmdDump.Flags().VarP(&flagOffset, "offset", "o", "flash start offset (K and M suffixes allowed)")
	cmdDump.Flags().VarP(&flagSize, "size", "s", "number of bytes to read (default: up to the end of flash)")

	rootCmd.AddCommand(cmdErase)
	cmdErase.Flags().VarP(&flagOffset, "offset", "o", "flash start offset (K and M suffixes allowed)")
	cmdErase.Flags().VarP(&flagSize, "size", "s", "number of bytes to erase")
	_ = cmdErase.MarkFlagRequired("size")
}

func runDump(cmd *cobra.Command, args []string) error {
	opts, done := bulkOptions(os.Stderr)
	defer done()

	d, err := icefun.CreateDumper(args[0], int(flagOffset), int(flagSize), opts...)
	if err != nil {
		return err
	}
	defer d.Close()

	return withDevice(cmd.Context(), func(ctx context.Context, fpga *icefun.DeviceInReset) error {
		return d.Dump(ctx, fpga)
	})
}

func runErase(cmd *cobra.Command, _ []string) error {
	rng, err := eraseRange(int(flagOffset), int(flagSize))
	if err != nil {
		return err
	}
	return withDevice(cmd.Context(), func(ctx context.Context, fpga *icefun.DeviceInReset) error {
		return icefun.EraseRange(ctx, fpga, rng, icefun.WithLogger(logger))
	})
}

// eraseRange checks the range before the board is touched. Sectors are
// erased up to and including the one holding offset+size, so an empty
// range would still wipe a sector.
func eraseRange(offset, size int) (icefun.Range, error) {
	if size <= 0 {
		return icefun.Range{}, usageError{fmt.Errorf("erase: size must be positive, got %d", size)}
	}
	rng := icefun.Range{Start: offset, Len: size}
	if _, err := rng.Sectors(); err != nil {
		return icefun.Range{}, err
	}
	return rng, nil
}
