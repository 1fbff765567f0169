// Package config reads the icefun configuration file.
//
//	port      = "icefun"
//	baud      = 9600
//	timeout   = "10s"
//	log_level = "info"
//	offset    = "0"
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gentam/icefun"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// DefaultPath is the file read when no --config flag is given. A missing
// file is not an error.
const DefaultPath = "icefun.hcl"

type Schema struct {
	Port     string `hcl:"port,optional"`
	Baud     int    `hcl:"baud,optional"`
	Timeout  string `hcl:"timeout,optional"`
	LogLevel string `hcl:"log_level,optional"`
	Offset   string `hcl:"offset,optional"`
}

func ReadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s := new(Schema)
	return s, s.Decode(data)
}

func (s *Schema) Decode(data []byte) error {
	file, diag := hclsyntax.ParseConfig(data, "", hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	diag = gohcl.DecodeBody(file.Body, nil, s)
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	return s.Validate()
}

func (s *Schema) Encode() []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(s, f.Body())
	return f.Bytes()
}

// Validate checks every value that is set.
func (s *Schema) Validate() error {
	if s.Baud < 0 {
		return fmt.Errorf("baud: invalid value %d", s.Baud)
	}
	if _, err := s.ReadTimeout(); err != nil {
		return err
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	if _, err := s.ByteOffset(); err != nil {
		return err
	}
	return nil
}

// ReadTimeout returns the timeout, or 0 when unset.
func (s *Schema) ReadTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout: must be positive, got %s", d)
	}
	return d, nil
}

// ByteOffset returns the flash offset, or 0 when unset.
func (s *Schema) ByteOffset() (int, error) {
	if s.Offset == "" {
		return 0, nil
	}
	off, err := icefun.ParseAddr(s.Offset)
	if err != nil {
		return 0, fmt.Errorf("offset: %w", err)
	}
	return off, nil
}

// LevelOff disables logging.
const LevelOff = slog.LevelError + 4

// Level returns the log level, slog.LevelInfo when unset.
func (s *Schema) Level() (slog.Level, error) {
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	return ParseLevel(s.LogLevel)
}

// ParseLevel accepts off, error, warn, info, debug and trace, in any case.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "off":
		return LevelOff, nil
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return icefun.LevelTrace, nil
	}
	return 0, fmt.Errorf("log_level: unknown level %q", name)
}
