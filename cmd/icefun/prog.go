package main

import (
	"context"
	"os"

	"github.com/gentam/icefun"
	"github.com/spf13/cobra"
)

var (
	cmdProg = &cobra.Command{
		Use:   "prog [flags] INPUT",
		Short: "Erase, program and verify flash with a raw image",
		Args:  exactArgs(1),
		RunE:  runProg,
	}
	cmdVerify = &cobra.Command{
		Use:   "verify [flags] INPUT",
		Short: "Compare flash with a raw image",
		Args:  exactArgs(1),
		RunE:  runVerify,
	}
)

var (
	flagOffset     addrValue
	flagSkipVerify bool
)

func init() {
	rootCmd.AddCommand(cmdProg)
	cmdProg.Flags().VarP(&flagOffset, "offset", "o", "flash start offset (K and M suffixes allowed)")
	cmdProg.Flags().BoolVarP(&flagSkipVerify, "skip-verification", "v", false, "do not verify after programming")

	rootCmd.AddCommand(cmdVerify)
	cmdVerify.Flags().VarP(&flagOffset, "offset", "o", "flash start offset (K and M suffixes allowed)")
}

func runProg(cmd *cobra.Command, args []string) error {
	opts, done := bulkOptions(os.Stderr)
	defer done()

	p, err := icefun.OpenProgrammer(args[0], int(flagOffset), opts...)
	if err != nil {
		return err
	}
	defer p.Close()
	logger.Debug("Image", "file", args[0], "offset", p.Range().Start, "size", p.Range().Len)

	return withDevice(cmd.Context(), func(ctx context.Context, fpga *icefun.DeviceInReset) error {
		if err := p.Erase(ctx, fpga); err != nil {
			return err
		}
		if err := p.Program(ctx, fpga); err != nil {
			return err
		}
		if flagSkipVerify {
			return nil
		}
		return p.Verify(ctx, fpga)
	})
}

func runVerify(cmd *cobra.Command, args []string) error {
	opts, done := bulkOptions(os.Stderr)
	defer done()

	p, err := icefun.OpenProgrammer(args[0], int(flagOffset), opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	return withDevice(cmd.Context(), func(ctx context.Context, fpga *icefun.DeviceInReset) error {
		return p.Verify(ctx, fpga)
	})
}
