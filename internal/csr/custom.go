package csr

// customEntry backs the KindCustom CSRs: mstatus, misa, satp, the FP
// CSRs, the interrupt CSRs, stimecmp, time/timeh, and seed. Each is a
// plain function taking the bank explicitly rather than a bound
// method, so the table below is an immutable const-like map built once
// at init — the "tagged dispatch via a const table" pattern spec.md §9
// recommends in place of the C source's mutable global function-pointer
// table.
type customEntry struct {
	read  func(b *Bank) uint64
	write func(b *Bank, newVal, old uint64) (committed uint64, ok bool)
}

var customTable = map[uint32]customEntry{}

func (b *Bank) customHandlers() map[uint32]customEntry { return customTable }

func registerCustom(id uint32, e customEntry) {
	customTable[id] = e
}

func init() {
	registerCustom(MHARTID, customEntry{
		read: func(b *Bank) uint64 { return b.hartID },
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			return old, newVal == old // read-only; access check 1 already
			// rejects nonzero writes since MHARTID's top bits mark it RO.
		},
	})

	registerCustom(TIME, customEntry{
		read: func(b *Bank) uint64 {
			if !b.hooks.CounterEnabled() {
				return 0
			}
			return b.hooks.Now()
		},
		write: func(b *Bank, newVal, old uint64) (uint64, bool) { return old, b.hooks.CounterEnabled() },
	})
	registerCustom(TIMEH, customEntry{
		read: func(b *Bank) uint64 {
			if !b.hooks.CounterEnabled() {
				return 0
			}
			return b.hooks.Now() >> 32
		},
		write: func(b *Bank, newVal, old uint64) (uint64, bool) { return old, b.hooks.CounterEnabled() },
	})

	registerCustom(SEED, customEntry{
		read: func(b *Bank) uint64 {
			if b.hooks.RandomU16 == nil {
				return 0
			}
			// bits 31:30 = OPST, set to the "ES16" ready state (0b10 << 30),
			// per the Zkr entropy-source spec; value in the low 16 bits.
			return uint64(1<<31) | uint64(b.hooks.RandomU16())
		},
		write: func(b *Bank, newVal, old uint64) (uint64, bool) { return old, true },
	})
}
