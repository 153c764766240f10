package csr

import "fmt"

// trapRegs groups the per-privilege trap bookkeeping registers named in
// spec.md §3: trap vector base, scratch, exception PC, cause, trap
// value, counter-enable mask, env-config. Indexed by Privilege.
type trapRegs struct {
	tvec      uint64
	scratch   uint64
	epc       uint64
	cause     uint64
	tval      uint64
	counteren uint64
	envcfg    uint64
}

// Bank is the per-hart CSR register file.
type Bank struct {
	hooks Hooks

	trap [4]trapRegs // indexed by Privilege (User and the reserved level 2 unused but kept for uniform indexing)

	status  uint64 // mstatus (sstatus is a masked view of this)
	isaExt  uint64 // MISA extension bits, excluding the MXL field
	ie      uint64
	ip      uint64
	edeleg  uint64
	ideleg  uint64
	mseccfg uint64
	hartID  uint64
	fcsr    uint32

	stimecmp uint64
	satpRaw  uint64
	satp     SatpState

	direct map[uint32]uint64 // backing store for KindDirect/KindMasked CSRs
}

// NewBank builds a CSR bank for one hart. hartID is this hart's index
// within the machine; isaExt is the OR of supported extension letter
// bits (bit 0 = 'A', bit 2 = 'C', ... matching MISA's layout).
func NewBank(hartID uint64, isaExt uint64, hooks Hooks) *Bank {
	b := &Bank{
		hooks:   hooks,
		isaExt:  isaExt,
		hartID:  hartID,
		direct:  make(map[uint32]uint64),
		mseccfg: 0,
	}
	return b
}

// Op implements spec.md §4.3's csr_op entry point: it performs the
// access checks, dispatches to the custom handler or the static table,
// and returns the value of the CSR immediately before the operation —
// irrespective of success, per spec.md §8 property 2.
//
// On failure the CSR is left entirely unmodified (spec.md §7): writes
// are staged on a local copy and only committed once every check has
// passed.
func (b *Bank) Op(id uint32, value uint64, op Op) (old uint64, ok bool) {
	old = b.read(id)
	if op == OpSwap && !readOnly(id) {
		// fallthrough: a plain read never needs the write-intent check
	}
	// Access check 1: read-only CSR, non-zero write attempted.
	writes := opWrites(op, old, value)
	if readOnly(id) && writes != 0 {
		return old, false
	}
	// Access check 2: privilege encoded in the CSR id exceeds current.
	if csrPriv(id) > b.hooks.Privilege() {
		return old, false
	}

	newVal := applyOp(op, old, value)

	if custom, ok2 := b.customHandlers()[id]; ok2 {
		committed, success := custom.write(b, newVal, old)
		if !success {
			return old, false
		}
		_ = committed
		return old, true
	}

	e, found := dispatch[id]
	if !found {
		return old, false
	}
	switch e.kind {
	case KindZero, KindConst:
		// writes silently discarded
	case KindMasked:
		b.direct[id] = (b.direct[id] &^ e.mask) | (newVal & e.mask)
	case KindDirect:
		if b.hooks.XLEN() == 32 {
			newVal &= 0xFFFFFFFF
		}
		b.direct[id] = newVal
	default:
		return old, false
	}
	return old, true
}

// read returns the current value of id without performing any access
// check — used both by Op (to compute "old") and internally.
func (b *Bank) read(id uint32) uint64 {
	if custom, ok := b.customHandlers()[id]; ok {
		return signExtendIfNeeded(b, custom.read(b))
	}
	e, found := dispatch[id]
	if !found {
		return 0
	}
	switch e.kind {
	case KindZero:
		return 0
	case KindConst:
		return e.constVal
	case KindMasked, KindDirect:
		return signExtendIfNeeded(b, b.direct[id])
	default:
		return 0
	}
}

func signExtendIfNeeded(b *Bank, v uint64) uint64 {
	if b.hooks.XLEN() == 32 {
		if v&0x80000000 != 0 {
			return v | 0xFFFFFFFF00000000
		}
		return v & 0xFFFFFFFF
	}
	return v
}

func opWrites(op Op, old, value uint64) uint64 {
	switch op {
	case OpSwap:
		return value
	case OpSetBits:
		return value &^ old // bits that would newly turn on
	case OpClearBits:
		return value & old // bits that would newly turn off
	default:
		panic(fmt.Errorf("unknown csr op: %d", op))
	}
}

func applyOp(op Op, old, value uint64) uint64 {
	switch op {
	case OpSwap:
		return value
	case OpSetBits:
		return old | value
	case OpClearBits:
		return old &^ value
	default:
		panic(fmt.Errorf("unknown csr op: %d", op))
	}
}

// Trap returns the trap-handling register block for privilege p, for
// direct use by internal/hart's trap delivery (spec.md §4.6 steps
// 2-3 write epc/cause/tval/status directly, bypassing the access
// checks that gate guest CSR instructions).
func (b *Bank) Trap(p Privilege) *TrapView {
	return &TrapView{b: b, p: p}
}

// TrapView exposes one privilege level's trap registers for
// hart.Trap to populate without going through the CSR access-check
// machinery (trap delivery is never subject to privilege checks).
type TrapView struct {
	b *Bank
	p Privilege
}

func (t *TrapView) SetEPC(v uint64)   { t.b.trap[t.p].epc = v }
func (t *TrapView) SetCause(v uint64) { t.b.trap[t.p].cause = v }
func (t *TrapView) SetTval(v uint64)  { t.b.trap[t.p].tval = v }
func (t *TrapView) TVec() uint64      { return t.b.trap[t.p].tvec }
func (t *TrapView) EPC() uint64       { return t.b.trap[t.p].epc }
func (t *TrapView) Cause() uint64     { return t.b.trap[t.p].cause }

// Edeleg/Ideleg expose the delegation masks for the trap-delegation walk
// in hart.Trap (spec.md §4.6 step 1).
func (b *Bank) Edeleg() uint64 { return b.edeleg }
func (b *Bank) Ideleg() uint64 { return b.ideleg }

// IP/IE expose the raw interrupt pending/enable words for
// hart.CheckInterrupts, bypassing the CSR access-check machinery the
// same way trap delivery does.
func (b *Bank) IP() uint64 { return b.ip }
func (b *Bank) IE() uint64 { return b.ie }

// SetIPBit atomically ORs a single interrupt-pending bit in, for use
// by machine.Machine.Interrupt from any hart or the timer goroutine.
// This mutates b.ip directly; callers needing true cross-goroutine
// atomicity should route through hart.Hart.Interrupt, which wraps this
// with the appropriate atomic RMW (see internal/hart/trap.go).
func (b *Bank) SetIPBit(bit uint) {
	b.ip |= 1 << bit
}

func (b *Bank) ClearIPBit(bit uint) {
	b.ip &^= 1 << bit
}

// Status returns the raw mstatus word (sstatus is a masked view
// computed in mstatus.go).
func (b *Bank) Status() uint64 { return b.status }

// MPP/SPP accessors used by hart.Trap to write xPP on trap entry
// (spec.md §4.6 step 3) and by the xRET handling in hart's execSystem,
// which restores privilege on trap return.
const (
	mstatusMPPShift = 11
	mstatusMPPMask  = 0x3 << mstatusMPPShift
	mstatusSPPShift = 8
	mstatusSPPMask  = 0x1 << mstatusSPPShift
	mstatusMIEBit   = 1 << 3
	mstatusSIEBit   = 1 << 1
	mstatusMPIEBit  = 1 << 7
	mstatusSPIEBit  = 1 << 5
)

func (b *Bank) SetXPP(target Privilege, cur Privilege) {
	switch target {
	case Machine:
		b.status = (b.status &^ uint64(mstatusMPPMask)) | (uint64(cur) << mstatusMPPShift)
	case Supervisor:
		spp := uint64(0)
		if cur == Supervisor {
			spp = 1
		}
		b.status = (b.status &^ uint64(mstatusSPPMask)) | (spp << mstatusSPPShift)
	}
}

// MovePIE moves xIE into xPIE and clears xIE, per spec.md §4.6 step 3.
func (b *Bank) MovePIE(target Privilege) {
	switch target {
	case Machine:
		mie := b.status&mstatusMIEBit != 0
		b.status &^= mstatusMPIEBit
		if mie {
			b.status |= mstatusMPIEBit
		}
		b.status &^= mstatusMIEBit
	case Supervisor:
		sie := b.status&mstatusSIEBit != 0
		b.status &^= mstatusSPIEBit
		if sie {
			b.status |= mstatusSPIEBit
		}
		b.status &^= mstatusSIEBit
	}
}

// XPP returns the xPP field captured at the last trap entry for
// privilege target, used when an xRET instruction restores privilege.
func (b *Bank) XPP(target Privilege) Privilege {
	switch target {
	case Machine:
		return Privilege((b.status & mstatusMPPMask) >> mstatusMPPShift)
	case Supervisor:
		if b.status&mstatusSPPMask != 0 {
			return Supervisor
		}
		return User
	default:
		return User
	}
}

// IEEnabled reports whether the global interrupt-enable bit for
// privilege p is set, used by hart.checkInterrupts to decide whether a
// same-privilege interrupt is currently deliverable.
func (b *Bank) IEEnabled(p Privilege) bool {
	switch p {
	case Machine:
		return b.status&mstatusMIEBit != 0
	case Supervisor:
		return b.status&mstatusSIEBit != 0
	default:
		return true
	}
}

// RestorePIE moves xPIE back into xIE and sets xPIE=1, the mirror image
// of MovePIE, performed by xRET.
func (b *Bank) RestorePIE(target Privilege) {
	switch target {
	case Machine:
		if b.status&mstatusMPIEBit != 0 {
			b.status |= mstatusMIEBit
		} else {
			b.status &^= mstatusMIEBit
		}
		b.status |= mstatusMPIEBit
	case Supervisor:
		if b.status&mstatusSPIEBit != 0 {
			b.status |= mstatusSIEBit
		} else {
			b.status &^= mstatusSIEBit
		}
		b.status |= mstatusSPIEBit
	}
}
