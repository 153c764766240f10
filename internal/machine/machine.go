// Package machine wires the hart core to physical memory and the MMIO
// bus: the "owning machine" spec.md §3 says every Hart holds a pointer
// to, providing the global timer and physical RAM (§6).
package machine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ninja-bond/RVVM/internal/hart"
	"github.com/ninja-bond/RVVM/internal/jit"
)

// Config configures a Machine, populated by cmd/rvvm's urfave/cli
// flags per SPEC_FULL.md §7's "Configuration" ambient-stack note.
type Config struct {
	MemSize uint64 // bytes
	SMP     int    // hart count, <= 1024 per SPEC_FULL.md §6.4
	RV64    bool
	JIT     bool // enable the JIT code heap; disabled falls back to pure interpretation
	JITSize int  // code heap size in bytes, ignored if !JIT
}

// Machine owns physical RAM, the MMIO bus, every hart, and the shared
// JIT code heap (spec.md §5: "The JIT heap, block registry, and link
// registry are shared" across harts).
type Machine struct {
	ID uuid.UUID

	ram   *RAM
	bus   Bus
	jit   *jit.Heap
	harts []*hart.Hart

	start time.Time
}

// New builds a Machine per cfg: allocates the RAM window at
// memmap.DefaultRAMBase, optionally allocates the JIT code heap
// (falling back to interpreter-only on allocation failure, per
// spec.md §7's "JIT allocation failure... interpreter proceeds without
// JIT"), and creates cfg.SMP harts in their post-reset state.
func New(cfg Config) (*Machine, error) {
	if cfg.SMP < 1 || cfg.SMP > 1024 {
		return nil, fmt.Errorf("machine: smp must be in [1, 1024], got %d", cfg.SMP)
	}

	m := &Machine{
		ID:    uuid.New(),
		ram:   NewRAM(DefaultRAMBase, cfg.MemSize),
		start: time.Now(),
	}

	if cfg.JIT {
		size := cfg.JITSize
		if size == 0 {
			size = 16 * 1024 * 1024
		}
		port := jit.NewUnixPort(false)
		heap, err := jit.New(port, size, nil)
		if err != nil {
			// Boot proceeds interpreter-only; this is a host-side
			// resource failure, not a guest-observable one, per
			// spec.md §7.
			m.jit = nil
		} else {
			m.jit = heap
		}
	}

	maxXLEN := uint(32)
	if cfg.RV64 {
		maxXLEN = 64
	}
	isaExt := uint64(hart.DefaultISA)
	for i := 0; i < cfg.SMP; i++ {
		m.harts = append(m.harts, hart.New(uint64(i), m, isaExt, maxXLEN, m.jit))
	}

	return m, nil
}

// Harts returns the machine's hart slice, index == hart ID.
func (m *Machine) Harts() []*hart.Hart { return m.harts }

// RAM exposes the physical memory window, e.g. for ELF/bootrom loading.
func (m *Machine) RAM() *RAM { return m.ram }

// MapDevice registers an MMIO device's callback over a physical address
// range, per spec.md §6's MMIO dispatch contract.
func (m *Machine) MapDevice(base, size uint64, dev MMIODevice) {
	m.bus.MapDevice(base, size, dev)
}

// Now implements hart.Host: a monotonic counter for the time/timeh
// CSRs, in core clock ticks (here: nanoseconds since machine creation,
// which is monotonic and good enough absent a modeled core frequency —
// spec.md's Non-goals exclude performance counters beyond this).
func (m *Machine) Now() uint64 {
	return uint64(time.Since(m.start).Nanoseconds())
}

// ReadRAM / WriteRAM implement spec.md §6's bounded physical-memory
// access for device models, distinct from ReadPhys/WritePhys (which
// also serve the MMU walker and additionally dispatch to the MMIO bus
// for addresses outside the RAM window).
func (m *Machine) ReadRAM(pa uint64, buf []byte) bool  { return m.ram.ReadPhys(pa, buf) }
func (m *Machine) WriteRAM(pa uint64, buf []byte) bool {
	if !m.ram.WritePhys(pa, buf) {
		return false
	}
	if m.jit != nil {
		m.jit.MarkDirtyMem(pa, uint64(len(buf)))
	}
	return true
}

// ReadPhys implements mmu.Host: RAM first, falling back to the MMIO
// bus for unmapped-in-RAM addresses, per spec.md §6.
func (m *Machine) ReadPhys(pa uint64, buf []byte) bool {
	if m.ram.contains(pa, uint64(len(buf))) {
		return m.ram.ReadPhys(pa, buf)
	}
	ok, _ := m.bus.Read(pa, buf)
	return ok
}

// WritePhys implements mmu.Host, mirroring ReadPhys, and marks the
// written RAM page dirty for the JIT (spec.md §6: "Writes invoke
// mark_dirty_mem").
func (m *Machine) WritePhys(pa uint64, buf []byte) bool {
	if m.ram.contains(pa, uint64(len(buf))) {
		return m.WriteRAM(pa, buf)
	}
	ok, _ := m.bus.Write(pa, buf)
	return ok
}

// HostPointer implements mmu.Host: only RAM addresses have a direct
// host pointer; MMIO always takes the slow ReadPhys/WritePhys path.
func (m *Machine) HostPointer(pa uint64) ([]byte, bool) {
	return m.ram.HostPointer(pa)
}

// Interrupt implements spec.md §6's interrupt(hart, cause) at the
// machine level: set the ip bit on the addressed hart and wake it.
// Causes: SSIP(1), MSIP(3), STIP(5), MTIP(7), SEIP(9), MEIP(11).
func (m *Machine) Interrupt(hartID uint64, cause uint) error {
	if hartID >= uint64(len(m.harts)) {
		return fmt.Errorf("machine: no hart %d", hartID)
	}
	m.harts[hartID].Interrupt(cause)
	return nil
}

// Shutdown releases the JIT heap, invalidating every cached entry
// point, per spec.md §3's lifecycle note ("the JIT heap is released,
// invalidating all cached entries").
func (m *Machine) Shutdown() {
	for _, h := range m.harts {
		h.RequestStop()
	}
	if m.jit != nil {
		m.jit.Release()
	}
}
