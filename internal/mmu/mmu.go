// Package mmu implements the direct-mapped TLB and the software page
// walker that backs it, per spec.md §4.4.
package mmu

import "github.com/ninja-bond/RVVM/internal/csr"

// Access mirrors csr.Access for the three kinds of memory access the
// walker and TLB distinguish.
type Access = csr.Access

const (
	Read  = csr.AccessRead
	Write = csr.AccessWrite
	Exec  = csr.AccessExec
)

const (
	PageShift = 12
	PageSize  = 1 << PageShift
	PageMask  = PageSize - 1
)

// FaultKind identifies which of the three page-fault/access-fault traps
// a failed translation should raise.
type FaultKind uint8

const (
	FaultNone FaultKind = iota
	FaultPage           // translation failure: page fault
	FaultAccess         // unmapped/permission-denied physical access
)

// Fault is returned by Walk on translation failure; the caller (the
// hart's hot loop) turns it into the matching instruction/load/store
// trap with TVal set to the faulting virtual address.
type Fault struct {
	Kind    FaultKind
	Access  Access
	VAddr   uint64
}

func (f *Fault) Error() string {
	return "mmu fault"
}

// Host is the port the walker needs from the owning machine: read and
// write raw physical-memory bytes (for the page-table walk itself, and
// for setting the accessed/dirty bits).
type Host interface {
	ReadPhys(pa uint64, buf []byte) bool
	WritePhys(pa uint64, buf []byte) bool
	// HostPointer returns a direct, page-sized slice into the backing
	// store for pa's containing page, for TLB fast-path installation.
	// ok is false if pa is outside RAM (e.g. MMIO) and no such slice
	// exists — those accesses always go through the slow path.
	HostPointer(pa uint64) (page []byte, ok bool)
}
