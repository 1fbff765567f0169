package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gentam/icefun"
	"github.com/gentam/icefun/serialport"
	"github.com/spf13/cobra"
)

var (
	cmdInfo = &cobra.Command{
		Use:   "info",
		Short: "Print programmer firmware version and flash ID",
		Args:  exactArgs(0),
		RunE:  runInfo,
	}
	cmdList = &cobra.Command{
		Use:   "list",
		Short: "List serial ports and iceFUN boards",
		Args:  exactArgs(0),
		RunE:  runList,
	}
)

func init() {
	rootCmd.AddCommand(cmdInfo)
	rootCmd.AddCommand(cmdList)
}

func runInfo(_ *cobra.Command, _ []string) error {
	port, err := openBoard()
	if err != nil {
		return err
	}
	defer port.Close()

	dev := icefun.NewDevice(port, icefun.WithLogger(logger))
	ver, err := dev.Version()
	if err != nil {
		return err
	}
	fpga, err := dev.Reset()
	if err != nil {
		return err
	}
	defer fpga.Close()

	fmt.Printf("Port:      %s\n", port)
	fmt.Printf("Firmware:  v%d\n", ver)
	fmt.Printf("Flash ID:  %s\n", describe(fpga.FlashID()))
	return nil
}

func runList(_ *cobra.Command, _ []string) error {
	if err := serialport.Init(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PORT\tALIAS\tBOARD")
	for _, r := range serialport.Ports() {
		board := ""
		if r.Board {
			board = fmt.Sprintf("iceFUN #%d", r.Number)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, strings.Join(r.Aliases, ","), board)
	}
	return w.Flush()
}
