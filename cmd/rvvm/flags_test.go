package rvvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMemSize(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"256M", 256 << 20},
		{"4G", 4 << 30},
		{"512K", 512 << 10},
		{"1024", 1024},
	}
	for _, c := range cases {
		got, err := ParseMemSize(c.in)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestParseMemSizeRejectsGarbage(t *testing.T) {
	_, err := ParseMemSize("")
	require.Error(t, err)

	_, err = ParseMemSize("not-a-size")
	require.Error(t, err)
}
