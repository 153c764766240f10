package rvbits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitCut(t *testing.T) {
	require.Equal(t, uint64(0xAB), BitCut(0x1234ABCD, 8, 8))
	require.Equal(t, uint64(0x1234ABCD), BitCut(0x1234ABCD, 0, 64))
}

func TestBitReplace(t *testing.T) {
	require.Equal(t, uint64(0x1234FFCD), BitReplace(0x1234ABCD, 8, 8, 0xFF))
	require.Equal(t, uint64(0xFF), BitReplace(0xAB, 0, 8, 0xFF))
}

func TestNextPow2(t *testing.T) {
	cases := map[uint64]uint64{
		0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1023: 1024, 1024: 1024, 1025: 2048,
	}
	for in, want := range cases {
		require.Equal(t, want, NextPow2(in), "NextPow2(%d)", in)
	}
}

func TestSpinlockMutualExclusion(t *testing.T) {
	var lock Spinlock
	counter := 0
	done := make(chan struct{})
	const n = 200
	for i := 0; i < n; i++ {
		go func() {
			lock.Lock()
			counter++
			lock.Unlock()
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	require.Equal(t, n, counter)
}
