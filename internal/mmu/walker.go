package mmu

import "github.com/ninja-bond/RVVM/internal/csr"

// PTE flag bits, standard RISC-V Sv32/39/48/57 encoding.
const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7
)

type levelSpec struct {
	levels   int
	ptesize  int // bytes per PTE: 4 for Sv32, 8 for Sv39/48/57
	vpnBits  int
	ppnBits  int
}

var specFor = map[csr.SatpMode]levelSpec{
	csr.Sv32: {levels: 2, ptesize: 4, vpnBits: 10, ppnBits: 22},
	csr.Sv39: {levels: 3, ptesize: 8, vpnBits: 9, ppnBits: 44},
	csr.Sv48: {levels: 4, ptesize: 8, vpnBits: 9, ppnBits: 44},
	csr.Sv57: {levels: 5, ptesize: 8, vpnBits: 9, ppnBits: 44},
}

// Walk performs the software page-table walk described in spec.md
// §4.4's "Miss path / walk" and installs a TLB entry on success.
//
// sum/mxr mirror mstatus.SUM/MXR; priv is the effective translating
// privilege (which may differ from the hart's current privilege under
// MPRV, though this core does not implement MPRV-based S-mode-from-M
// access).
func Walk(host Host, tlb *TLB, satp csr.SatpState, vaddr uint64, access Access, priv csr.Privilege, sum, mxr bool) *Fault {
	if !satp.PagingEnabled() {
		return installIdentity(host, tlb, vaddr, access, priv)
	}

	spec := specFor[satp.Mode]
	vpn := vaddr >> PageShift
	ppnMask := uint64(1)<<spec.ppnBits - 1

	ptAddr := satp.RootPPN
	var pte uint64
	var leafAddr uint64
	level := spec.levels - 1
	for {
		vpnBits := spec.vpnBits
		shift := level * vpnBits
		idx := (vpn >> shift) & (1<<vpnBits - 1)
		entryAddr := ptAddr + idx*uint64(spec.ptesize)

		var buf [8]byte
		if !host.ReadPhys(entryAddr, buf[:spec.ptesize]) {
			return &Fault{Kind: FaultAccess, Access: access, VAddr: vaddr}
		}
		pte = leToU64(buf[:spec.ptesize])

		if pte&pteV == 0 || (pte&pteR == 0 && pte&pteW != 0) {
			return &Fault{Kind: FaultPage, Access: access, VAddr: vaddr}
		}
		if pte&(pteR|pteW|pteX) != 0 {
			leafAddr = entryAddr
			break // leaf PTE
		}
		if level == 0 {
			return &Fault{Kind: FaultPage, Access: access, VAddr: vaddr}
		}
		ptn := (pte >> 10) & ppnMask
		ptAddr = ptn << PageShift
		level--
	}

	// superpage alignment: lower-level PPN bits must be zero.
	if level > 0 {
		lowMask := uint64(1)<<(uint(level)*uint(spec.vpnBits)) - 1
		if (pte>>10)&lowMask != 0 {
			return &Fault{Kind: FaultPage, Access: access, VAddr: vaddr}
		}
	}

	if !checkPerm(pte, access, priv, sum, mxr) {
		return &Fault{Kind: FaultPage, Access: access, VAddr: vaddr}
	}

	// accessed/dirty maintenance
	need := pte | pteA
	if access == Write {
		need |= pteD
	}
	if need != pte {
		var buf [8]byte
		putU64LE(buf[:spec.ptesize], need)
		if !host.WritePhys(leafAddr, buf[:spec.ptesize]) {
			return &Fault{Kind: FaultAccess, Access: access, VAddr: vaddr}
		}
		pte = need
	}

	ppn := (pte >> 10) & ppnMask
	superShift := uint(level) * uint(spec.vpnBits)
	lowVPN := vpn & (1<<superShift - 1)
	physPage := ((ppn >> superShift) << superShift) | lowVPN
	pa := (physPage << PageShift) | (vaddr & PageMask)

	page, ok := host.HostPointer(pa &^ PageMask)
	if !ok {
		return &Fault{Kind: FaultAccess, Access: access, VAddr: vaddr}
	}
	perm := permBitsFromPTE(pte)
	tlb.Install(vaddr, page, perm, uint8(priv))
	return nil
}

func installIdentity(host Host, tlb *TLB, vaddr uint64, access Access, priv csr.Privilege) *Fault {
	page, ok := host.HostPointer(vaddr &^ PageMask)
	if !ok {
		return &Fault{Kind: FaultAccess, Access: access, VAddr: vaddr}
	}
	tlb.Install(vaddr, page, permR|permW|permX, uint8(priv))
	return nil
}

func checkPerm(pte uint64, access Access, priv csr.Privilege, sum, mxr bool) bool {
	if priv == csr.User && pte&pteU == 0 {
		return false
	}
	if priv != csr.User && pte&pteU != 0 && !sum {
		return false
	}
	switch access {
	case Read:
		if pte&pteR != 0 {
			return true
		}
		return mxr && pte&pteX != 0
	case Write:
		return pte&pteW != 0
	case Exec:
		return pte&pteX != 0
	default:
		return false
	}
}

func permBitsFromPTE(pte uint64) uint8 {
	var p uint8
	if pte&pteR != 0 {
		p |= permR
	}
	if pte&pteW != 0 {
		p |= permW
	}
	if pte&pteX != 0 {
		p |= permX
	}
	return p
}

func leToU64(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putU64LE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}
