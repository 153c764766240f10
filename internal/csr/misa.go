package csr

const (
	misaMXLShift32 = 30
	misaMXLShift64 = 62
)

func init() {
	registerCustom(MISA, customEntry{
		read: func(b *Bank) uint64 {
			mxl := uint64(1)
			shift := uint(misaMXLShift32)
			if b.hooks.XLEN() == 64 {
				mxl = 2
				shift = misaMXLShift64
			}
			return (mxl << shift) | b.isaExt
		},
		write: func(b *Bank, newVal, old uint64) (uint64, bool) {
			// Only the MXL field is writable, and only to request a
			// width this build supports; extension bits are fixed at
			// boot. Per spec.md §4.3: the switch is deferred to the
			// next retirement boundary, so it is staged via SetXLEN
			// rather than applied to b.status here.
			cur := b.hooks.XLEN()
			reqMXL32 := newVal>>misaMXLShift32&0x3 == 1
			reqMXL64 := newVal>>misaMXLShift64&0x3 == 2
			switch {
			case cur == 64 && reqMXL32 && !reqMXL64:
				b.hooks.SetXLEN(32)
			case cur == 32 && reqMXL64:
				b.hooks.SetXLEN(64)
			default:
				// Conflicting or unsupported request: no-op, per
				// spec.md §8's boundary case.
			}
			return old, true
		},
	})
}
