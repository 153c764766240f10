package hart

import (
	"github.com/ninja-bond/RVVM/internal/csr"
	"github.com/ninja-bond/RVVM/internal/rvbits"
)

// interruptMask is the high bit of `cause` that distinguishes
// interrupts from synchronous exceptions, per spec.md §4.6.
const interruptMask = uint64(1) << 63

// Exception causes used by the interpreter and MMU fault translation.
const (
	CauseInstrAddrMisaligned = 0
	CauseInstrAccessFault    = 1
	CauseIllegalInstruction  = 2
	CauseBreakpoint          = 3
	CauseLoadAddrMisaligned  = 4
	CauseLoadAccessFault     = 5
	CauseStoreAddrMisaligned = 6
	CauseStoreAccessFault    = 7
	CauseECallFromU          = 8
	CauseECallFromS          = 9
	CauseECallFromM          = 11
	CauseInstrPageFault      = 12
	CauseLoadPageFault       = 13
	CauseStorePageFault      = 15
)

// Trap implements spec.md §4.6's trap(hart, cause, tval): delegation
// walk, register capture, status update, privilege switch, and the
// wait_event clear that ends the hot loop.
func (h *Hart) Trap(cause uint64, tval uint64) {
	target := h.delegationTarget(cause)

	view := h.csrBank.Trap(target)
	view.SetEPC(h.pc)
	view.SetCause(cause)
	view.SetTval(tval)

	h.csrBank.SetXPP(target, h.priv)
	h.csrBank.MovePIE(target)

	h.priv = target
	h.waitEvent.Store(false, rvbits.Release)
}

// delegationTarget implements spec.md §4.6 step 1: "Starting at
// MACHINE, walk down to the current privilege level; for each
// privilege p > current, if bit cause of edeleg[p] (or ideleg for
// interrupts) is clear, stop". The bank carries a single edeleg/ideleg
// register pair (medeleg/mideleg — there is no sedeleg in this
// privileged-architecture subset, per spec.md §3's CSR bank field
// list), so the walk has exactly one step: Machine can delegate to
// Supervisor, and delegation never reaches below the trap's own
// current privilege.
func (h *Hart) delegationTarget(cause uint64) csr.Privilege {
	isInterrupt := cause&interruptMask != 0
	bit := cause &^ interruptMask

	target := csr.Machine
	if h.priv < csr.Machine {
		var deleg uint64
		if isInterrupt {
			deleg = h.csrBank.Ideleg()
		} else {
			deleg = h.csrBank.Edeleg()
		}
		if deleg&(1<<bit) != 0 {
			target = csr.Supervisor
		}
	}
	if target < h.priv {
		target = h.priv
	}
	return target
}

// vectoredPC implements spec.md §4.5's outer-loop vector computation,
// run by the interpreter after Trap clears waitEvent.
func vectoredPC(tvec uint64, cause uint64) uint64 {
	base := tvec &^ 3
	vectored := tvec&1 != 0
	if cause&interruptMask != 0 && vectored {
		return base + 4*(cause&^interruptMask)
	}
	return base
}

// checkInterrupts implements spec.md §4.6's check_interrupts(): if any
// pending-and-enabled interrupt is deliverable at the current
// privilege, synthesize a trap with cause|INTERRUPT_MASK.
func (h *Hart) checkInterrupts() {
	pending := h.csrBank.IP() & h.csrBank.IE()
	if pending == 0 {
		return
	}
	// First match in this fixed order wins: MEIP > MSIP > MTIP > SEIP >
	// SSIP > STIP, the privileged spec's interrupt priority (not the
	// numeric order of the cause bits).
	order := []uint{csr.CauseMEIP, csr.CauseMSIP, csr.CauseMTIP, csr.CauseSEIP, csr.CauseSSIP, csr.CauseSTIP}
	for _, bit := range order {
		if pending&(1<<bit) == 0 {
			continue
		}
		if !h.interruptDeliverable(bit) {
			continue
		}
		h.Trap(interruptMask|uint64(bit), 0)
		return
	}
}

// interruptDeliverable applies the privileged spec's enable rule: an
// interrupt targeting privilege p fires if p > current privilege, or
// p == current privilege and that privilege's global IE bit is set.
func (h *Hart) interruptDeliverable(bit uint) bool {
	target := csr.Machine
	switch bit {
	case csr.CauseSSIP, csr.CauseSTIP, csr.CauseSEIP:
		target = csr.Supervisor
	}
	if target > h.priv {
		return true
	}
	if target < h.priv {
		return false
	}
	return h.csrBank.IEEnabled(target)
}
