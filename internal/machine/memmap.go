package machine

// Reserved physical address windows for the peripherals spec.md §1 and
// §6.2 name as out-of-scope external collaborators: UART, PLIC, CLINT,
// ATA, framebuffer, PS/2, Ethernet. Only the windows are reserved here
// so the MMU's access-fault path (and tests of it) have somewhere
// concrete to point at; no device behavior is implemented, per
// SPEC_FULL.md §6.2.
//
// Layout follows the conventional SiFive/QEMU `virt` placement the
// example pack's tinyrange-cc__clint.go and tinyrange-cc__plic.go
// targets assume, so a bootrom built against that convention needs no
// remapping to run here.
const (
	CLINTBase = 0x0200_0000
	CLINTSize = 0x0001_0000

	PLICBase = 0x0c00_0000
	PLICSize = 0x0040_0000

	UARTBase = 0x1000_0000
	UARTSize = 0x0000_0100

	PS2Base = 0x1000_1000
	PS2Size = 0x0000_0100

	EthernetBase = 0x1000_2000
	EthernetSize = 0x0000_1000

	ATABase = 0x1000_3000
	ATASize = 0x0000_0100

	FramebufferBase = 0x3000_0000
	FramebufferSize = 0x0100_0000

	// DefaultRAMBase is where spec.md §6's "RAM window [mem.begin,
	// mem.begin+mem.size)" starts; placed above the MMIO windows above,
	// matching the teacher's bring-up convention in rvgo/cmd/run.go
	// (RAM starts well above any fixed device address).
	DefaultRAMBase = 0x8000_0000
)
