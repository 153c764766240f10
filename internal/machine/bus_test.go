package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	reads, writes []uint64
	reg           byte
}

func (d *fakeDevice) Read(buf []byte, offset uint64) error {
	d.reads = append(d.reads, offset)
	buf[0] = d.reg
	return nil
}

func (d *fakeDevice) Write(src []byte, offset uint64) error {
	d.writes = append(d.writes, offset)
	d.reg = src[0]
	return nil
}

func TestBusDispatchesWithinRange(t *testing.T) {
	var b Bus
	dev := &fakeDevice{}
	b.MapDevice(UARTBase, UARTSize, dev)

	ok, err := b.Write(UARTBase+4, []byte{0x7A})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []uint64{4}, dev.writes)

	buf := make([]byte, 1)
	ok, err = b.Read(UARTBase, buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte(0x7A), buf[0])
}

func TestBusMissOutsideRange(t *testing.T) {
	var b Bus
	b.MapDevice(UARTBase, UARTSize, &fakeDevice{})

	ok, err := b.Read(UARTBase+UARTSize, make([]byte, 1))
	require.NoError(t, err)
	require.False(t, ok)
}
