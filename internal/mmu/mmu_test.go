package mmu

import (
	"testing"

	"github.com/ninja-bond/RVVM/internal/csr"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mem map[uint64][]byte // page-aligned base -> PageSize bytes
}

func newFakeHost() *fakeHost { return &fakeHost{mem: make(map[uint64][]byte)} }

func (h *fakeHost) page(pa uint64) []byte {
	base := pa &^ PageMask
	p, ok := h.mem[base]
	if !ok {
		p = make([]byte, PageSize)
		h.mem[base] = p
	}
	return p
}

func (h *fakeHost) ReadPhys(pa uint64, buf []byte) bool {
	p := h.page(pa)
	copy(buf, p[pa&PageMask:])
	return true
}

func (h *fakeHost) WritePhys(pa uint64, buf []byte) bool {
	p := h.page(pa)
	copy(p[pa&PageMask:], buf)
	return true
}

func (h *fakeHost) HostPointer(pa uint64) ([]byte, bool) {
	return h.page(pa), true
}

func TestTLBMissThenHit(t *testing.T) {
	var tlb TLB
	host := newFakeHost()
	satp := csr.SatpState{} // bare mode: identity map

	f := Walk(host, &tlb, satp, 0x1000, Read, csr.Supervisor, false, false)
	require.Nil(t, f)

	page, off, ok := tlb.Check(0x1000, Read, uint8(csr.Supervisor))
	require.True(t, ok)
	require.Equal(t, uint64(0), off)
	require.NotNil(t, page)
}

func TestTLBFlushAllInvalidatesEverything(t *testing.T) {
	var tlb TLB
	host := newFakeHost()
	satp := csr.SatpState{}
	require.Nil(t, Walk(host, &tlb, satp, 0x2000, Write, csr.Machine, false, false))
	_, _, ok := tlb.Check(0x2000, Write, uint8(csr.Machine))
	require.True(t, ok)

	tlb.FlushAll()
	_, _, ok = tlb.Check(0x2000, Write, uint8(csr.Machine))
	require.False(t, ok)
}

func TestBlockInsidePage(t *testing.T) {
	require.True(t, BlockInsidePage(0x1000, 4))
	require.False(t, BlockInsidePage(0xFFC, 4))
}
