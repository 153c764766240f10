package mmu

// entryCount is the number of TLB slots; must stay a power of two so
// the hash-to-slot mapping in slotFor is a plain mask. Grounded on
// tinyrange-cc__mmu.go (other_examples)'s 512-entry direct-mapped TLB.
const entryCount = 256

// entry is one direct-mapped TLB slot. tag packs the virtual page
// number with the permission bits the entry was installed with, per
// spec.md §3's "tag (virtual page + permission bits encoded)".
type entry struct {
	valid bool
	vpn   uint64
	perm  uint8 // bit0=R bit1=W bit2=X, ANDed with the requested Access
	page  []byte
	priv  uint8
}

const (
	permR = 1 << 0
	permW = 1 << 1
	permX = 1 << 2
)

// TLB is the per-hart translation cache described in spec.md §4.4.
type TLB struct {
	entries [entryCount]entry
}

func slotFor(vpn uint64) uint64 {
	return vpn & (entryCount - 1)
}

// Check implements tlb_check: it succeeds iff the tag matches the
// virtual page and the entry's permission bits cover access.
func (t *TLB) Check(vaddr uint64, access Access, priv uint8) (page []byte, pageOff uint64, ok bool) {
	vpn := vaddr >> PageShift
	e := &t.entries[slotFor(vpn)]
	if !e.valid || e.vpn != vpn || e.priv != priv {
		return nil, 0, false
	}
	if !permCovers(e.perm, access) {
		return nil, 0, false
	}
	return e.page, vaddr & PageMask, true
}

func permCovers(perm uint8, access Access) bool {
	switch access {
	case Read:
		return perm&permR != 0
	case Write:
		return perm&permW != 0
	case Exec:
		return perm&permX != 0
	default:
		return false
	}
}

// Install caches a successful translation. perm is the set of accesses
// permitted by the walked PTE intersected with the current privilege —
// spec.md §3's invariant that "the permission bits are a subset of
// those granted by the current SATP-walked PTE and the current
// privilege mode" holds because the walker is the only caller and
// already performs that intersection before calling Install.
func (t *TLB) Install(vaddr uint64, page []byte, perm uint8, priv uint8) {
	vpn := vaddr >> PageShift
	t.entries[slotFor(vpn)] = entry{valid: true, vpn: vpn, perm: perm, page: page, priv: priv}
}

// FlushAll marks every entry invalid. Invoked on SATP writes that turn
// paging on or off, on an XLEN switch, and on SFENCE.VMA with rs1=x0.
// Privilege transitions and root-only SATP changes do not flush; entries
// are tagged with the privilege they were installed under, so Check
// misses after a privilege change.
func (t *TLB) FlushAll() {
	for i := range t.entries {
		t.entries[i].valid = false
	}
}

// FlushVA invalidates only the entry for one virtual address, the
// SFENCE.VMA(rs1!=x0) supplement from SPEC_FULL.md §9.
func (t *TLB) FlushVA(vaddr uint64) {
	vpn := vaddr >> PageShift
	e := &t.entries[slotFor(vpn)]
	if e.valid && e.vpn == vpn {
		e.valid = false
	}
}

// BlockInsidePage reports whether an access of size bytes at addr stays
// within one page, per spec.md §4.5's block_inside_page invariant.
func BlockInsidePage(addr uint64, size uint64) bool {
	return addr&PageMask+size <= PageSize
}
