package main

import (
	"fmt"
	"os"

	"github.com/gentam/icefun/config"
	"github.com/spf13/cobra"
)

var cmdConfig = &cobra.Command{
	Use:   "config [flags] [PATH]",
	Short: "Write the current settings to a config file",
	Long: "Write the port, baud, timeout and log level in effect, after merging\n" +
		"flags with any existing config file, to PATH (default ./" + config.DefaultPath + ").",
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	},
	RunE: runConfig,
}

var flagForce bool

func init() {
	rootCmd.AddCommand(cmdConfig)
	cmdConfig.Flags().BoolVarP(&flagForce, "force", "f", false, "overwrite an existing file")
}

func runConfig(_ *cobra.Command, args []string) error {
	path := config.DefaultPath
	if len(args) == 1 {
		path = args[0]
	}
	if err := writeConfig(path, currentSchema(), flagForce); err != nil {
		return err
	}
	logger.Info("Wrote " + path)
	return nil
}

func currentSchema() *config.Schema {
	return &config.Schema{
		Port:     flagPort,
		Baud:     flagBaud,
		Timeout:  flagTimeout.String(),
		LogLevel: flagLogLevel,
	}
}

func writeConfig(path string, s *config.Schema, force bool) error {
	if err := s.Validate(); err != nil {
		return err
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if _, err := f.Write(s.Encode()); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}
