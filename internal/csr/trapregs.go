package csr

// Custom handlers for the per-privilege trap bookkeeping CSRs
// (tvec/scratch/epc/cause/tval/counteren/envcfg for both MACHINE and
// SUPERVISOR) and the delegation masks. These back onto Bank.trap and
// Bank.edeleg/ideleg directly rather than the generic b.direct map, so
// that a guest CSR read of e.g. sepc sees exactly what Trap() wrote on
// trap entry — the two must be the same storage, per spec.md §4.6.
func init() {
	registerTrapReg(MTVEC, Machine, func(t *trapRegs) *uint64 { return &t.tvec })
	registerTrapReg(MSCRATCH, Machine, func(t *trapRegs) *uint64 { return &t.scratch })
	registerTrapReg(MEPC, Machine, func(t *trapRegs) *uint64 { return &t.epc })
	registerTrapReg(MCAUSE, Machine, func(t *trapRegs) *uint64 { return &t.cause })
	registerTrapReg(MTVAL, Machine, func(t *trapRegs) *uint64 { return &t.tval })

	registerTrapReg(STVEC, Supervisor, func(t *trapRegs) *uint64 { return &t.tvec })
	registerTrapReg(SSCRATCH, Supervisor, func(t *trapRegs) *uint64 { return &t.scratch })
	registerTrapReg(SEPC, Supervisor, func(t *trapRegs) *uint64 { return &t.epc })
	registerTrapReg(SCAUSE, Supervisor, func(t *trapRegs) *uint64 { return &t.cause })
	registerTrapReg(STVAL, Supervisor, func(t *trapRegs) *uint64 { return &t.tval })

	registerMaskedTrapReg(MCOUNTEREN, Machine, 0x7, func(t *trapRegs) *uint64 { return &t.counteren })
	registerMaskedTrapReg(MENVCFG, Machine, 0x1, func(t *trapRegs) *uint64 { return &t.envcfg })
	registerMaskedTrapReg(SCOUNTEREN, Supervisor, 0x7, func(t *trapRegs) *uint64 { return &t.counteren })
	registerMaskedTrapReg(SENVCFG, Supervisor, 0x1, func(t *trapRegs) *uint64 { return &t.envcfg })

	registerCustom(MEDELEG, customEntry{
		read: func(b *Bank) uint64 { return b.edeleg },
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			b.edeleg = (b.edeleg &^ 0xFFFF) | (newVal & 0xFFFF)
			return b.edeleg, true
		},
	})
	registerCustom(MIDELEG, customEntry{
		read: func(b *Bank) uint64 { return b.ideleg },
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			b.ideleg = (b.ideleg &^ 0xFFFF) | (newVal & 0xFFFF)
			return b.ideleg, true
		},
	})
}

func registerTrapReg(id uint32, p Privilege, field func(*trapRegs) *uint64) {
	registerCustom(id, customEntry{
		read: func(b *Bank) uint64 { return *field(&b.trap[p]) },
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			*field(&b.trap[p]) = newVal
			return newVal, true
		},
	})
}

func registerMaskedTrapReg(id uint32, p Privilege, mask uint64, field func(*trapRegs) *uint64) {
	registerCustom(id, customEntry{
		read: func(b *Bank) uint64 { return *field(&b.trap[p]) },
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			f := field(&b.trap[p])
			*f = (*f &^ mask) | (newVal & mask)
			return *f, true
		},
	})
}
