package rvvm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

// Flag names, matching SPEC_FULL.md §6.4's CLI surface table.
const (
	BootromFlagName = "bootrom"
	DTBFlagName     = "dtb"
	ImageFlagName   = "image"
	MemFlagName     = "mem"
	SMPFlagName     = "smp"
	RV64FlagName    = "rv64"
	VerboseFlagName = "verbose"
	PProfFlagName   = "pprof.cpu"
)

var (
	BootromFlag = &cli.PathFlag{
		Name:  BootromFlagName,
		Usage: "bootrom image to load at the base of RAM (or give it positionally)",
	}
	DTBFlag = &cli.PathFlag{
		Name:  DTBFlagName,
		Usage: "device-tree blob to load alongside the bootrom",
	}
	ImageFlag = &cli.PathFlag{
		Name:  ImageFlagName,
		Usage: "kernel/disk image to load",
	}
	MemFlag = &cli.StringFlag{
		Name:  MemFlagName,
		Usage: "RAM size, with optional K/M/G suffix",
		Value: "256M",
	}
	SMPFlag = &cli.IntFlag{
		Name:  SMPFlagName,
		Usage: "number of harts, <= 1024",
		Value: 1,
	}
	RV64Flag = &cli.BoolFlag{
		Name:  RV64FlagName,
		Usage: "run harts with XLEN=64 instead of 32",
	}
	VerboseFlag = &cli.BoolFlag{
		Name:  VerboseFlagName,
		Usage: "enable debug-level logging",
	}
	PProfFlag = &cli.BoolFlag{
		Name:  PProfFlagName,
		Usage: "profile CPU usage for the run's duration",
	}
)

// ParseMemSize parses SPEC_FULL.md §6.4's "size with K/M/G suffix"
// syntax, e.g. "256M", "4G", "1024" (bytes, no suffix).
func ParseMemSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("rvvm: empty mem size")
	}
	mult := uint64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'K', 'k':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'G', 'g':
		mult = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rvvm: invalid mem size %q: %w", s, err)
	}
	return n * mult, nil
}
