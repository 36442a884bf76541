package filesys

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemFileWriteReadRoundTrip(t *testing.T) {
	f := NewMemFile()
	require.NoError(t, f.WriteAt([]byte("hello"), 4))

	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(9), size)

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 4)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), buf)
}

func TestMemFileTruncateShrinksAndGrows(t *testing.T) {
	f := NewMemFile()
	require.NoError(t, f.WriteAt([]byte("abcdef"), 0))

	require.NoError(t, f.Truncate(3))
	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(3), size)

	require.NoError(t, f.Truncate(5))
	size, err = f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(5), size)
}

func TestSequentialReaderReadsRecordsInOrder(t *testing.T) {
	f := NewMemFile()
	require.NoError(t, f.WriteAt([]byte{0xFA, 0xF2, 1, 2, 3, 4, 5, 6}, 0))

	r := NewSequentialReader(f, 2)
	first, err := r.ReadExact(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, first)

	second, err := r.ReadExact(3)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5, 6}, second)
	require.Equal(t, int64(8), r.Offset())
}

func TestSequentialReaderCleanEOFAtRecordBoundary(t *testing.T) {
	f := NewMemFile()
	require.NoError(t, f.WriteAt([]byte{1, 2, 3}, 0))

	r := NewSequentialReader(f, 0)
	_, err := r.ReadExact(3)
	require.NoError(t, err)

	_, err = r.ReadExact(3)
	require.ErrorIs(t, err, io.EOF)
}

func TestSequentialReaderShortReadIsTruncatedRecord(t *testing.T) {
	f := NewMemFile()
	require.NoError(t, f.WriteAt([]byte{1, 2, 3, 4}, 0))

	r := NewSequentialReader(f, 0)
	_, err := r.ReadExact(3)
	require.NoError(t, err)

	partial, err := r.ReadExact(3)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Len(t, partial, 1)
}
