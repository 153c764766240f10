package blockio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileDeviceReadWriteAtIgnoresCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := Open(path, ReadWrite|Create|Truncate)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Truncate(4096))

	_, err = d.WriteAt([]byte("hello"), 100)
	require.NoError(t, err)

	_, err = d.Seek(0, os.SEEK_SET)
	require.NoError(t, err)

	buf := make([]byte, 5)
	n, err := d.ReadAt(buf, 100)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestFileDeviceTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := Open(path, ReadWrite|Create)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Truncate(1<<20))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 1<<20, info.Size())
}

func TestFileDeviceExclusiveFailsOnExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := Open(path, ReadWrite|Create)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = Open(path, ReadWrite|Create|Exclusive)
	require.Error(t, err)
}
