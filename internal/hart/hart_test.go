package hart

import (
	"testing"

	"github.com/ninja-bond/RVVM/internal/csr"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mem map[uint64][]byte
	now uint64
}

func newFakeHost() *fakeHost { return &fakeHost{mem: make(map[uint64][]byte)} }

func (h *fakeHost) page(pa uint64) []byte {
	base := pa &^ 0xFFF
	p, ok := h.mem[base]
	if !ok {
		p = make([]byte, 4096)
		h.mem[base] = p
	}
	return p
}

func (h *fakeHost) ReadPhys(pa uint64, buf []byte) bool {
	p := h.page(pa)
	copy(buf, p[pa&0xFFF:])
	return true
}

func (h *fakeHost) WritePhys(pa uint64, buf []byte) bool {
	p := h.page(pa)
	copy(p[pa&0xFFF:], buf)
	return true
}

func (h *fakeHost) HostPointer(pa uint64) ([]byte, bool) { return h.page(pa), true }
func (h *fakeHost) Now() uint64                          { return h.now }

func newTestHart() *Hart {
	return New(0, newFakeHost(), IsaExtM|IsaExtA, 64, nil)
}

func TestRegisterZeroAlwaysReadsZero(t *testing.T) {
	h := newTestHart()
	h.SetReg(0, 0xdeadbeef)
	require.Equal(t, uint64(0), h.Reg(0))
}

func TestAddImmediateExecutesAndAdvancesPC(t *testing.T) {
	h := newTestHart()
	h.SetReg(5, 10)
	// ADDI x6, x5, 7
	instr := encodeI(0x13, 6, 0, 5, 7)
	h.Execute(instr, false)
	require.Equal(t, uint64(17), h.Reg(6))
	require.Equal(t, uint64(4), h.PC())
}

func TestCSRReadOnlyWriteFailsAndLeavesValueUnchanged(t *testing.T) {
	h := newTestHart()
	old, ok := h.csrBank.Op(csr.MHARTID, 5, csr.OpSwap)
	require.False(t, ok)
	require.Equal(t, uint64(0), old)
	again, _ := h.csrBank.Op(csr.MHARTID, 0, csr.OpSwap)
	require.Equal(t, uint64(0), again)
}

func TestECallFromMachineTrapsWithoutDelegation(t *testing.T) {
	h := newTestHart()
	h.pc = 0x1000
	h.Trap(CauseECallFromM, 0)
	require.Equal(t, csr.Machine, h.priv)
	require.Equal(t, uint64(0x1000), h.csrBank.Trap(csr.Machine).EPC())
	require.Equal(t, uint64(CauseECallFromM), h.csrBank.Trap(csr.Machine).Cause())
}

func TestTrapDelegatesToSupervisorWhenEdelegBitSet(t *testing.T) {
	h := newTestHart()
	h.pc = 0x2000
	// Delegate ECALL-from-U (cause 8) to supervisor. medeleg is a
	// machine-level CSR, so write it before dropping to User.
	h.csrBank.Op(csr.MEDELEG, 1<<CauseECallFromU, csr.OpSwap)
	h.priv = csr.User

	h.Trap(CauseECallFromU, 0)

	require.Equal(t, csr.Supervisor, h.priv)
	require.Equal(t, uint64(0x2000), h.csrBank.Trap(csr.Supervisor).EPC())
	require.Equal(t, uint64(CauseECallFromU), h.csrBank.Trap(csr.Supervisor).Cause())
}

func TestMPPClampsToZeroWhenSetToReservedValue(t *testing.T) {
	h := newTestHart()
	// mstatus.MPP lives at bits 11:12; set to the reserved value 2.
	h.csrBank.Op(csr.MSTATUS, 2<<11, csr.OpSwap)
	old, _ := h.csrBank.Op(csr.MSTATUS, 0, csr.OpSetBits)
	require.Equal(t, uint64(0), (old>>11)&0x3)
}

func TestMulhuComputesUpperHalfOfWideningMultiply(t *testing.T) {
	// 2^32 * 2^32 = 2^64, whose upper 64 bits are 1.
	got := execM64(3, 1<<32, 1<<32)
	require.Equal(t, uint64(1), got)
}

func TestDivByZeroReturnsAllOnes(t *testing.T) {
	require.Equal(t, ^uint64(0), execM64(4, 10, 0))
	require.Equal(t, ^uint64(0), execM64(5, 10, 0))
}

func TestDecompressCNopIsAddiX0X00(t *testing.T) {
	// C.NOP is the all-zero-immediate encoding of C.ADDI x0, x0, 0: 0x0001.
	instr, ok := decompress(0x0001)
	require.True(t, ok)
	require.Equal(t, uint32(0x13), opcodeOf(instr))
	require.Equal(t, uint32(0), rdOf(instr))
}

func TestAtomicAddStoresSumAndReturnsOld(t *testing.T) {
	h := newTestHart()
	h.SetReg(1, 0x1000) // address
	h.SetReg(2, 5)      // addend
	var buf [4]byte
	buf[0] = 10
	require.True(t, h.writeMem(0x1000, buf[:]))

	// AMOADD.W x3, x2, (x1): funct7 top5 bits = 0x00, funct3=2
	instr := encodeR(0x2F, 3, 2, 1, 2, 0x00)
	h.Execute(instr, false)
	require.Equal(t, uint64(10), h.Reg(3))

	var readBack [4]byte
	h.readMem(0x1000, readBack[:])
	require.Equal(t, uint64(15), signExtendLoad(readBack[:]))
}
