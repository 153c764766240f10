package csr

// SatpMode identifies the paging mode selected by SATP.
type SatpMode uint8

const (
	Bare SatpMode = 0
	Sv32 SatpMode = 1
	Sv39 SatpMode = 8
	Sv48 SatpMode = 9
	Sv57 SatpMode = 10
)

// SatpState is the decoded form of SATP that internal/mmu consumes.
type SatpState struct {
	Mode     SatpMode
	RootPPN  uint64 // physical page-table root address, already page-shifted
	pagingOn bool
}

func (s SatpState) PagingEnabled() bool { return s.pagingOn }

// supportedModes lists the SV modes this build recognizes, per
// spec.md's "Mode must be BARE or one of the SV modes recognised by
// the build" clause.
var supportedModes = map[SatpMode]bool{Sv32: true, Sv39: true, Sv48: true, Sv57: true}

const pageShift = 12

func init() {
	registerCustom(SATP, customEntry{
		read: func(b *Bank) uint64 { return b.satpRaw },
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			if b.status&statusTVMBit != 0 {
				return old, false
			}
			next := decodeSatp(newVal, b.hooks.XLEN())
			wasPaging := b.satp.PagingEnabled()
			b.satpRaw = encodeSatp(next, b.hooks.XLEN())
			b.satp = next
			if wasPaging != next.PagingEnabled() {
				b.hooks.FlushTLB()
			}
			return b.satpRaw, true
		},
	})
}

func decodeSatp(v uint64, xlen uint) SatpState {
	if xlen == 32 {
		mode := SatpMode(0)
		if v&(1<<31) != 0 {
			mode = Sv32
		}
		ppn := v & 0x3FFFFF // bits 0..21
		if mode != Bare && !supportedModes[mode] {
			mode = Bare
		}
		return SatpState{Mode: mode, RootPPN: ppn << pageShift, pagingOn: mode != Bare}
	}
	mode := SatpMode((v >> 60) & 0xF)
	ppn := v & 0xFFFFFFFFFFF // bits 0..43
	if mode != Bare && !supportedModes[mode] {
		mode = Bare
	}
	return SatpState{Mode: mode, RootPPN: ppn << pageShift, pagingOn: mode != Bare}
}

func encodeSatp(s SatpState, xlen uint) uint64 {
	ppn := s.RootPPN >> pageShift
	if xlen == 32 {
		v := ppn & 0x3FFFFF
		if s.Mode != Bare {
			v |= 1 << 31
		}
		return v
	}
	return (uint64(s.Mode) << 60) | (ppn & 0xFFFFFFFFFFF)
}

// Satp returns the decoded SATP state for internal/mmu's page walker.
func (b *Bank) Satp() SatpState { return b.satp }
