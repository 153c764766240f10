// Package hart implements the per-hart state machine: integer register
// file, privilege mode, the owned CSR bank and TLB, and the
// fetch-decode-execute hot loop, per spec.md §3-§4.5.
package hart

import (
	"math/rand"

	"github.com/ninja-bond/RVVM/internal/csr"
	"github.com/ninja-bond/RVVM/internal/jit"
	"github.com/ninja-bond/RVVM/internal/mmu"
	"github.com/ninja-bond/RVVM/internal/rvbits"
)

// Host is what a Hart needs from the owning machine: physical memory
// access (for the page walker and direct fetch/load/store) and the
// monotonic timer backing the time/timeh CSRs.
type Host interface {
	mmu.Host
	Now() uint64
}

// ISA extension bits, positioned as MISA encodes them (bit = letter -
// 'A'), per spec.md §3's CSR bank "isa (MISA)" field.
const (
	IsaExtA = 1 << ('A' - 'A')
	IsaExtC = 1 << ('C' - 'A')
	IsaExtD = 1 << ('D' - 'A')
	IsaExtF = 1 << ('F' - 'A')
	IsaExtI = 1 << ('I' - 'A')
	IsaExtM = 1 << ('M' - 'A')
	IsaExtS = 1 << ('S' - 'A')
	IsaExtU = 1 << ('U' - 'A')

	// DefaultISA is the extension set a freshly-created Machine grants
	// its harts absent more specific configuration: the base integer
	// ISA plus the commonly-bundled M/A/C extensions.
	DefaultISA = IsaExtI | IsaExtM | IsaExtA | IsaExtC | IsaExtU | IsaExtS
)

// Hart is one hardware thread's architectural state.
type Hart struct {
	ID uint64

	regs [32]uint64
	pc   uint64

	xlen        uint // current register width, 32 or 64
	maxXLEN     uint // build ceiling; MISA can never request above this
	pendingXLEN uint // staged by the MISA custom handler, applied at the next retirement boundary; 0 = none pending

	priv csr.Privilege

	csrBank *csr.Bank
	tlb     mmu.TLB

	loadReservation    uint64
	hasLoadReservation bool

	waitEvent rvbits.AtomicBool // true while the hot loop should keep running

	wfi  bool         // set by the WFI instruction; parks hotLoop until woken
	wake chan struct{} // buffered 1; signaled by Interrupt/RequestStop to unpark

	host Host
	jit  *jit.Heap // nil when the JIT is disabled for this run

	isaExt uint64
}

// New builds a Hart in its post-reset state: MACHINE privilege, MMU
// bare, TLB empty, per spec.md §3's Lifecycle note.
func New(id uint64, host Host, isaExt uint64, maxXLEN uint, jitHeap *jit.Heap) *Hart {
	h := &Hart{
		ID:      id,
		xlen:    maxXLEN,
		maxXLEN: maxXLEN,
		priv:    csr.Machine,
		host:    host,
		jit:     jitHeap,
		isaExt:  isaExt,
		wake:    make(chan struct{}, 1),
	}
	h.csrBank = csr.NewBank(id, isaExt, csr.Hooks{
		Privilege:             func() csr.Privilege { return h.priv },
		XLEN:                  func() uint { return h.xlen },
		SetXLEN:               func(w uint) { h.pendingXLEN = w },
		FlushTLB:              func() { h.tlb.FlushAll() },
		RecheckInterrupts:     h.checkInterrupts,
		Now:                   host.Now,
		FPUEnabled:            func() bool { return isaExt&(IsaExtF|IsaExtD) != 0 },
		PreciseFS:             func() bool { return false },
		HostFPExceptions:      func() uint32 { return 0 },
		ClearHostFPExceptions: func() {},
		SetHostRoundingMode:   func(uint32) {},
		RandomU16:             func() uint16 { return uint16(rand.Uint32()) },
		CounterEnabled:        h.counterEnabled,
	})
	return h
}

// CSR exposes the bank for machine-level wiring (e.g. seeding mhartid
// reads) and for internal/hart's own execution files.
func (h *Hart) CSR() *csr.Bank { return h.csrBank }

// PC returns the hart's current program counter.
func (h *Hart) PC() uint64 { return h.pc }

// Reg reads integer register i; register 0 always reads as zero,
// per spec.md §3's first invariant.
func (h *Hart) Reg(i uint32) uint64 {
	if i == 0 {
		return 0
	}
	return h.signExtendIfNeeded(h.regs[i])
}

// SetReg writes register i; writes to register 0 are discarded.
func (h *Hart) SetReg(i uint32, v uint64) {
	if i == 0 {
		return
	}
	h.regs[i] = v
}

func (h *Hart) signExtendIfNeeded(v uint64) uint64 {
	if h.xlen == 32 {
		if v&0x80000000 != 0 {
			return v | 0xFFFFFFFF00000000
		}
		return v & 0xFFFFFFFF
	}
	return v
}

// Privilege returns the hart's current privilege mode.
func (h *Hart) Privilege() csr.Privilege { return h.priv }

// XLEN returns the hart's current register width.
func (h *Hart) XLEN() uint { return h.xlen }

func (h *Hart) counterEnabled() bool {
	// Unconditional at MACHINE; gated by the per-privilege counteren
	// chain below it, which isn't modeled in detail here since the
	// core returns a synthetic monotonic value regardless (spec.md §1
	// Non-goals: "Performance counters beyond returning a monotonic
	// time").
	return true
}

// Interrupt implements spec.md §6's interrupt(hart, cause): it sets
// the ip bit and wakes the hart. Callers may be other harts or the
// timer goroutine, so the ip mutation and wakeup must both be safe for
// concurrent use; csr.Bank.SetIPBit itself is a plain OR, so the
// happens-before guarantee comes from clearing waitEvent after it,
// observed by the hart's own hot loop via the atomic load in Run.
func (h *Hart) Interrupt(cause uint) {
	h.csrBank.SetIPBit(cause)
	h.checkInterrupts()
	h.notifyWake()
}

// RequestStop implements spec.md §5's cancellation: clearing wait_event
// from any thread makes the hot loop exit at the next instruction
// boundary.
func (h *Hart) RequestStop() {
	h.waitEvent.Store(false, rvbits.Release)
	h.notifyWake()
}

// notifyWake unparks a hart sitting in WFI's park loop. Non-blocking:
// the channel only needs to carry "something happened", never a count.
func (h *Hart) notifyWake() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}
