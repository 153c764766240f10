package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRAMReadWriteRoundTrip(t *testing.T) {
	r := NewRAM(0x8000_0000, 0x1000_0000)

	in := []byte{1, 2, 3, 4}
	require.True(t, r.WritePhys(0x8000_1000, in))

	out := make([]byte, 4)
	require.True(t, r.ReadPhys(0x8000_1000, out))
	require.Equal(t, in, out)
}

func TestRAMReadUnallocatedIsZero(t *testing.T) {
	r := NewRAM(0x8000_0000, 0x1000_0000)
	out := []byte{0xAA, 0xBB}
	require.True(t, r.ReadPhys(0x8000_2000, out))
	require.Equal(t, []byte{0, 0}, out)
}

func TestRAMOutOfBoundsFails(t *testing.T) {
	r := NewRAM(0x8000_0000, 0x1000)
	buf := make([]byte, 4)
	require.False(t, r.ReadPhys(0x7FFF_FFFF, buf))
	require.False(t, r.WritePhys(0x8000_1000, buf))
}

func TestRAMHostPointerSharesBacking(t *testing.T) {
	r := NewRAM(0x8000_0000, 0x1000_0000)
	page, ok := r.HostPointer(0x8000_0010)
	require.True(t, ok)
	page[0x10] = 0x42

	out := []byte{0}
	require.True(t, r.ReadPhys(0x8000_0010, out))
	require.Equal(t, byte(0x42), out[0])
}
