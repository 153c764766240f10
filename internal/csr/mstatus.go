package csr

// mstatus/sstatus field layout (subset relevant to the rules below).
const (
	statusSIEBit  = 1 << 1
	statusMIEBit  = 1 << 3
	statusFSShift = 13
	statusFSMask  = 0x3 << statusFSShift
	statusVSShift = 9
	statusVSMask  = 0x3 << statusVSShift
	statusXSShift = 15
	statusXSMask  = 0x3 << statusXSShift
	statusSUMBit  = 1 << 18
	statusMXRBit  = 1 << 19
	statusTVMBit  = 1 << 20
	statusUXLShift = 32
	statusUXLMask  = uint64(0x3) << statusUXLShift
	statusSXLShift = 34
	statusSXLMask  = uint64(0x3) << statusSXLShift
	statusSDBit    = uint64(1) << 63

	fsOff   = 0
	fsDirty = 3
	vsOff   = 0
)

func init() {
	registerCustom(MSTATUS, customEntry{
		read: readMstatus,
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			return writeMstatus(b, newVal, old, ^uint64(0))
		},
	})
	registerCustom(SSTATUS, customEntry{
		read: func(b *Bank) uint64 { return readMstatus(b) & sstatusMask() },
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			masked := (old &^ sstatusMask()) | (newVal & sstatusMask())
			return writeMstatus(b, masked, old, sstatusMask())
		},
	})
}

func sstatusMask() uint64 {
	return statusSIEBit | 1<<5 /*SPIE*/ | 1<<8 /*SPP*/ | statusFSMask | statusVSMask |
		statusXSMask | statusSUMBit | statusMXRBit | statusUXLMask | statusSDBit
}

// readMstatus returns the live status word with SD computed from the
// value as last committed. Per spec.md §11 Open Question 3 /
// SPEC_FULL.md §11.3: SD is derived from the *old* value's XS on write
// (see writeMstatus), not recomputed live on every read; this matches
// spec.md's explicit instruction to not silently diverge from the
// (possibly non-compliant) original behavior.
func readMstatus(b *Bank) uint64 {
	return b.status
}

// writeMstatus validates and commits a new mstatus/sstatus value,
// implementing every bullet of spec.md §4.3's "mstatus / sstatus"
// contract. writableMask restricts which bits this particular CSR
// instruction (mstatus vs. sstatus) is allowed to touch; bits outside
// it retain their old value before the validation rules below run.
func writeMstatus(b *Bank, newVal, old uint64, writableMask uint64) (uint64, bool) {
	v := (old &^ writableMask) | (newVal & writableMask)

	xlen := b.hooks.XLEN()
	if xlen == 64 {
		uxl := (v & statusUXLMask) >> statusUXLShift
		if uxl != 1 && uxl != 2 {
			v = (v &^ statusUXLMask) | (uint64(2) << statusUXLShift)
		}
		sxl := (v & statusSXLMask) >> statusSXLShift
		if sxl != 1 && sxl != 2 {
			v = (v &^ statusSXLMask) | (uint64(2) << statusSXLShift)
		}
	}

	mpp := (v & mstatusMPPMask) >> mstatusMPPShift
	if mpp == 2 {
		// Open Question 1 (SPEC_FULL.md §11.1): only MPP==2 is clamped;
		// MPP==1 is left as-is even on S-mode-absent builds.
		v &^= uint64(mstatusMPPMask)
	}

	fs := (v & statusFSMask) >> statusFSShift
	if !b.hooks.FPUEnabled() {
		v &^= statusFSMask // forced OFF
	} else if fs != fsOff && !b.hooks.PreciseFS() {
		v = (v &^ statusFSMask) | (uint64(fsDirty) << statusFSShift)
	}

	v &^= statusVSMask // VS forced OFF: no vector extension state (Non-goal)

	newFS := (v & statusFSMask) >> statusFSShift
	newVS := (v & statusVSMask) >> statusVSShift
	xs := newFS
	if newVS > xs {
		xs = newVS
	}
	v = (v &^ statusXSMask) | (xs << statusXSShift)

	oldXS := (old & statusXSMask) >> statusXSShift
	if oldXS == 3 {
		v |= statusSDBit
	} else {
		v &^= statusSDBit
	}

	oldLow4 := old & 0xF
	newLow4 := v & 0xF
	if newLow4&^oldLow4 != 0 {
		// at least one of the bottom four IE bits transitioned 0->1
		b.status = v
		b.hooks.RecheckInterrupts()
		return v, true
	}

	b.status = v
	return v, true
}
