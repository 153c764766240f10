package rvvm

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/ninja-bond/RVVM/internal/machine"
)

// App builds the urfave/cli application, grounded on rvgo/main.go's
// cli.NewApp() wiring, generalized from a two-subcommand witness tool
// to a single `run` bring-up command per SPEC_FULL.md §6.4.
func App() *cli.App {
	app := cli.NewApp()
	app.Name = "rvvm"
	app.Usage = "RISC-V system emulator"
	app.Flags = []cli.Flag{
		BootromFlag, DTBFlag, ImageFlag, MemFlag, SMPFlag, RV64Flag, VerboseFlag, PProfFlag,
	}
	app.Action = Run
	return app
}

// Run is the CLI action: build the Machine per the flags, load the
// bootrom (and optional image/dtb), and run every hart until the
// process is cancelled. Exit codes per SPEC_FULL.md §6.4: the caller
// (main.go) maps a non-nil error here to exit code 1.
func Run(ctx *cli.Context) error {
	if ctx.Bool(PProfFlagName) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	lvl := slog.LevelInfo
	if ctx.Bool(VerboseFlagName) {
		lvl = slog.LevelDebug
	}
	l := Logger(os.Stderr, lvl)

	memSize, err := ParseMemSize(ctx.String(MemFlagName))
	if err != nil {
		return err
	}

	cfg := machine.Config{
		MemSize: memSize,
		SMP:     ctx.Int(SMPFlagName),
		RV64:    ctx.Bool(RV64FlagName),
	}
	m, err := machine.New(cfg)
	if err != nil {
		return fmt.Errorf("rvvm: failed to create machine: %w", err)
	}
	l.Info("machine created", "id", m.ID, "mem", memSize, "smp", cfg.SMP, "rv64", cfg.RV64)

	bootrom := ctx.Path(BootromFlagName)
	if bootrom == "" && ctx.Args().Len() > 0 {
		bootrom = ctx.Args().First()
	}
	if err := loadFileInto(m, bootrom, machine.DefaultRAMBase); err != nil {
		return fmt.Errorf("rvvm: failed to load bootrom %q: %w", bootrom, err)
	}
	l.Info("bootrom loaded", "path", bootrom)

	if img := ctx.Path(ImageFlagName); img != "" {
		const imageOffset = 0x0020_0000
		if err := loadFileInto(m, img, machine.DefaultRAMBase+imageOffset); err != nil {
			return fmt.Errorf("rvvm: failed to load image %q: %w", img, err)
		}
		l.Info("image loaded", "path", img, "addr", HexU64(machine.DefaultRAMBase+imageOffset))
	}

	if dtb := ctx.Path(DTBFlagName); dtb != "" {
		const dtbOffset = 0x0010_0000
		if err := loadFileInto(m, dtb, machine.DefaultRAMBase+dtbOffset); err != nil {
			return fmt.Errorf("rvvm: failed to load dtb %q: %w", dtb, err)
		}
		l.Info("dtb loaded", "path", dtb, "addr", HexU64(machine.DefaultRAMBase+dtbOffset))
	}

	runCtx := ctx.Context
	for _, h := range m.Harts() {
		h := h
		go h.Run(runCtx)
	}
	<-runCtx.Done()
	m.Shutdown()
	return nil
}

func loadFileInto(m *machine.Machine, path string, base uint64) error {
	if path == "" {
		return fmt.Errorf("no path given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !m.WriteRAM(base, data) {
		return fmt.Errorf("image of %d bytes does not fit RAM at 0x%x", len(data), base)
	}
	return nil
}
