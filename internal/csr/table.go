package csr

// CSR addresses, named per the RISC-V privileged spec. Grounded on
// RuiCat-circuit/utils/vm/consts.go's CSR address block, extended with
// the supervisor-level CSRs that an M-mode-only core doesn't need.
const (
	// Floating point
	FFLAGS = 0x001
	FRM    = 0x002
	FCSR   = 0x003

	// Supervisor
	SSTATUS    = 0x100
	SIE        = 0x104
	STVEC      = 0x105
	SCOUNTEREN = 0x106
	SENVCFG    = 0x10A
	SSCRATCH   = 0x140
	SEPC       = 0x141
	SCAUSE     = 0x142
	STVAL      = 0x143
	SIP        = 0x144
	STIMECMP   = 0x14D
	STIMECMPH  = 0x15D
	SATP       = 0x180

	// Machine
	MSTATUS    = 0x300
	MISA       = 0x301
	MEDELEG    = 0x302
	MIDELEG    = 0x303
	MIE        = 0x304
	MTVEC      = 0x305
	MCOUNTEREN = 0x306
	MENVCFG    = 0x30A
	MCOUNTINHIBIT = 0x320
	MSTATUSH   = 0x310
	MENVCFGH   = 0x31A
	MSCRATCH   = 0x340
	MEPC       = 0x341
	MCAUSE     = 0x342
	MTVAL      = 0x343
	MIP        = 0x344
	MSECCFG    = 0x747
	MSECCFGH   = 0x757
	MHARTID    = 0xF14
	MVENDORID  = 0xF11
	MARCHID    = 0xF12
	MIMPID     = 0xF13

	// Unprivileged counters
	TIME  = 0xC01
	TIMEH = 0xC81

	// Entropy source (Zkr)
	SEED = 0x015

	// PMP (read-only-zero per spec.md's Non-goals)
	PMPCFG0  = 0x3A0
	PMPADDR0 = 0x3B0

	// Performance counters (read-as-zero, unimplemented per spec.md)
	MCYCLE   = 0xB00
	MCYCLEH  = 0xB80
	MINSTRET = 0xB02
	MINSTRETH = 0xB82
)

// Kind is the dispatch category of a CSR, per spec.md §4.3.
type Kind uint8

const (
	KindDirect Kind = iota // raw word, masked for RV32
	KindMasked             // fixed bitmask selects writable bits
	KindZero               // read-as-zero, writes ignored
	KindConst              // fixed implementation-defined value
	KindCustom             // mstatus/misa/satp/fflags/frm/fcsr/sip/sie/stimecmp/...
)

// entry describes one CSR's dispatch behavior.
type entry struct {
	kind     Kind
	writable uint8 // minimum privilege (encoded value) required to write; read uses csrPriv()
	mask     uint64
	constVal uint64
}

// csrPriv returns (csr_id>>8)&3, the privilege level encoded in a CSR's
// own address, per spec.md §4.3's access-check #2.
func csrPriv(id uint32) Privilege {
	return Privilege((id >> 8) & 3)
}

// readOnly reports whether the top two bits of the CSR id mark it
// read-only, per spec.md §4.3's access-check #1.
func readOnly(id uint32) bool {
	return (id>>10)&3 == 3
}

// dispatch is the static table of non-custom CSRs. Custom CSRs are
// handled directly in bank.go's Op before consulting this table.
var dispatch = map[uint32]entry{
	MVENDORID: {kind: KindConst, constVal: 0},
	MARCHID:   {kind: KindConst, constVal: 0},
	MIMPID:    {kind: KindConst, constVal: 0},
	MHARTID:   {kind: KindCustom}, // read-only, value comes from the hart

	// MEDELEG/MIDELEG and the per-privilege trap registers (tvec,
	// scratch, epc, cause, tval, counteren, envcfg) are KindCustom,
	// registered in trapregs.go against Bank.edeleg/ideleg and
	// Bank.trap directly — the same storage hart.Trap's delegation walk
	// and trap-vector computation read, so a guest CSR read always sees
	// what trap delivery actually wrote.
	MCOUNTINHIBIT: {kind: KindMasked, mask: 0x7},
	MENVCFGH:      {kind: KindZero},
	MSTATUSH:      {kind: KindZero},
	MSECCFG:       {kind: KindZero},
	MSECCFGH:      {kind: KindZero},

	PMPCFG0:  {kind: KindZero},
	PMPADDR0: {kind: KindZero},

	MCYCLE:    {kind: KindZero},
	MCYCLEH:   {kind: KindZero},
	MINSTRET:  {kind: KindZero},
	MINSTRETH: {kind: KindZero},
}

func init() {
	// PMP has 16 cfg regs (4 per cfgN on rv64, 8 on rv32 — we just
	// reserve the full window) and 64 addr regs; all read-as-zero.
	for i := uint32(0); i < 16; i++ {
		dispatch[PMPCFG0+i] = entry{kind: KindZero}
	}
	for i := uint32(0); i < 64; i++ {
		dispatch[PMPADDR0+i] = entry{kind: KindZero}
	}
}
