package machine

import (
	"testing"

	"github.com/ninja-bond/RVVM/internal/csr"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSMP(t *testing.T) {
	_, err := New(Config{MemSize: 1 << 20, SMP: 0})
	require.Error(t, err)

	_, err = New(Config{MemSize: 1 << 20, SMP: 1025})
	require.Error(t, err)
}

func TestNewCreatesHartsInResetState(t *testing.T) {
	m, err := New(Config{MemSize: 1 << 20, SMP: 2, RV64: true})
	require.NoError(t, err)
	require.Len(t, m.Harts(), 2)

	for _, h := range m.Harts() {
		require.Equal(t, csr.Machine, h.Privilege())
		require.EqualValues(t, 64, h.XLEN())
	}
}

func TestWriteRAMSucceedsWhenJITEnabled(t *testing.T) {
	m, err := New(Config{MemSize: 1 << 20, SMP: 1, JIT: true, JITSize: 1 << 16})
	require.NoError(t, err)
	defer m.Shutdown()

	require.True(t, m.WriteRAM(DefaultRAMBase, []byte{1, 2, 3, 4}))
	// MarkDirtyMem only matters once a block has been compiled there;
	// absent a codegen Backend (spec.md §1's Non-goal), this just
	// exercises that the write path doesn't panic when a JIT heap is
	// attached.
}

func TestInterruptUnknownHartErrors(t *testing.T) {
	m, err := New(Config{MemSize: 1 << 20, SMP: 1})
	require.NoError(t, err)

	require.NoError(t, m.Interrupt(0, csr.CauseMTIP))
	require.Error(t, m.Interrupt(5, csr.CauseMTIP))
}
