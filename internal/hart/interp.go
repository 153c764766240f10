package hart

import (
	"context"
	"encoding/binary"

	"github.com/ninja-bond/RVVM/internal/mmu"
	"github.com/ninja-bond/RVVM/internal/rvbits"
)

// Run implements spec.md §4.5's run(hart): the outer loop that repeatedly
// drives the hot loop until it exits on a trap, then computes the new
// PC from the target privilege's trap vector. Run returns when ctx is
// cancelled, spec.md §5's "external break" suspension point.
func (h *Hart) Run(ctx context.Context) {
	for ctx.Err() == nil {
		h.waitEvent.Store(true, rvbits.Relaxed)
		h.hotLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		view := h.csrBank.Trap(h.priv)
		h.pc = vectoredPC(view.TVec(), view.Cause())
	}
}

// hotLoop implements spec.md §4.5 steps 1-4, looking up the JIT block
// registry first per spec.md §2's control-flow summary. No Backend is
// wired in this build (spec.md §1's Non-goal on codegen backends), so
// BlockLookup never returns a nonzero entry point and every fetch falls
// through to interpretation; the lookup is still performed so dirty-page
// eviction bookkeeping in internal/jit stays exercised end to end.
func (h *Hart) hotLoop(ctx context.Context) {
	for h.waitEvent.Load(rvbits.Relaxed) {
		if ctx.Err() != nil {
			h.waitEvent.Store(false, rvbits.Relaxed)
			return
		}

		if h.wfi {
			select {
			case <-ctx.Done():
				h.waitEvent.Store(false, rvbits.Relaxed)
				return
			case <-h.wake:
				h.wfi = false
			}
			continue
		}

		if h.jit != nil {
			if entry := h.jit.BlockLookup(h.pc); entry != 0 {
				// A real port would transfer control into compiled
				// code here; this build never populates entries
				// without a Backend, so this branch is unreachable.
				continue
			}
		}

		var buf [4]byte
		if !h.fetch(h.pc, buf[:]) {
			continue // fetch() already delivered the fault trap
		}

		raw := binary.LittleEndian.Uint32(buf[:])
		if raw&3 == 3 {
			h.Execute(raw, false)
		} else {
			instr16 := uint16(raw)
			instr32, ok := decompress(instr16)
			if !ok {
				h.Trap(CauseIllegalInstruction, uint64(instr16))
				continue
			}
			h.Execute(instr32, true)
		}
	}
}

// fetch implements spec.md §4.5 steps 2-3: TLB fast path, falling back
// to the page walker on miss, raising an instruction-access/page fault
// on failure. buf must be 4 bytes; reads straddling a page boundary go
// through the walker twice (spec.md §8's cross-page scenario), 2 bytes
// at a time, since a single walk only ever resolves one page.
func (h *Hart) fetch(pc uint64, buf []byte) bool {
	if mmu.BlockInsidePage(pc, uint64(len(buf))) {
		if page, off, ok := h.tlb.Check(pc, mmu.Exec, uint8(h.priv)); ok {
			copy(buf, page[off:off+uint64(len(buf))])
			return true
		}
		if fault := mmu.Walk(h.host, &h.tlb, h.csrBank.Satp(), pc, mmu.Exec, h.priv, false, false); fault != nil {
			if fault.Kind == mmu.FaultAccess {
				h.Trap(CauseInstrAccessFault, pc)
			} else {
				h.Trap(CauseInstrPageFault, pc)
			}
			return false
		}
		page, off, ok := h.tlb.Check(pc, mmu.Exec, uint8(h.priv))
		if !ok {
			h.Trap(CauseInstrAccessFault, pc)
			return false
		}
		copy(buf, page[off:off+uint64(len(buf))])
		return true
	}
	half := len(buf) / 2
	if !h.fetch(pc, buf[:half]) {
		return false
	}
	return h.fetch(pc+uint64(half), buf[half:])
}

// readMem/writeMem are the load/store primitives exec.go's opcode
// switch uses; they share fetch's TLB/walker fallback structure but
// additionally invoke MarkDirtyMem on every write, per spec.md §6.
func (h *Hart) readMem(addr uint64, buf []byte) bool {
	if !mmu.BlockInsidePage(addr, uint64(len(buf))) {
		half := len(buf) / 2
		if !h.readMem(addr, buf[:half]) {
			return false
		}
		return h.readMem(addr+uint64(half), buf[half:])
	}
	if page, off, ok := h.tlb.Check(addr, mmu.Read, uint8(h.priv)); ok {
		copy(buf, page[off:off+uint64(len(buf))])
		return true
	}
	if fault := mmu.Walk(h.host, &h.tlb, h.csrBank.Satp(), addr, mmu.Read, h.priv, h.sumBit(), h.mxrBit()); fault != nil {
		if fault.Kind == mmu.FaultAccess {
			h.Trap(CauseLoadAccessFault, addr)
		} else {
			h.Trap(CauseLoadPageFault, addr)
		}
		return false
	}
	page, off, ok := h.tlb.Check(addr, mmu.Read, uint8(h.priv))
	if !ok {
		h.Trap(CauseLoadAccessFault, addr)
		return false
	}
	copy(buf, page[off:off+uint64(len(buf))])
	return true
}

func (h *Hart) writeMem(addr uint64, buf []byte) bool {
	if !mmu.BlockInsidePage(addr, uint64(len(buf))) {
		half := len(buf) / 2
		if !h.writeMem(addr, buf[:half]) {
			return false
		}
		return h.writeMem(addr+uint64(half), buf[half:])
	}
	if page, off, ok := h.tlb.Check(addr, mmu.Write, uint8(h.priv)); ok {
		copy(page[off:off+uint64(len(buf))], buf)
		h.markDirty(addr, uint64(len(buf)))
		return true
	}
	if fault := mmu.Walk(h.host, &h.tlb, h.csrBank.Satp(), addr, mmu.Write, h.priv, h.sumBit(), h.mxrBit()); fault != nil {
		if fault.Kind == mmu.FaultAccess {
			h.Trap(CauseStoreAccessFault, addr)
		} else {
			h.Trap(CauseStorePageFault, addr)
		}
		return false
	}
	page, off, ok := h.tlb.Check(addr, mmu.Write, uint8(h.priv))
	if !ok {
		h.Trap(CauseStoreAccessFault, addr)
		return false
	}
	copy(page[off:off+uint64(len(buf))], buf)
	h.markDirty(addr, uint64(len(buf)))
	return true
}

func (h *Hart) markDirty(addr, size uint64) {
	if h.jit != nil {
		h.jit.MarkDirtyMem(addr, size)
	}
}

const (
	statusSUMBit = 1 << 18
	statusMXRBit = 1 << 19
)

func (h *Hart) sumBit() bool { return h.csrBank.Status()&statusSUMBit != 0 }
func (h *Hart) mxrBit() bool { return h.csrBank.Status()&statusMXRBit != 0 }
