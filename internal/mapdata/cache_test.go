package mapdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMap(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "m50_50", FileName(TypeLand, 50, 50))
	assert.Equal(t, "l49_50", FileName(TypeLoc, 49, 50))
}

// TestCRCVectors is property 11: IEEE CRC32 with the reflected polynomial.
func TestCRCVectors(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, dir, "m1_1", []byte("123456789"))
	writeMap(t, dir, "m2_2", nil)

	c := NewCache(dir)
	assert.Equal(t, uint32(0xCBF43926), c.CRC(TypeLand, 1, 1))
	assert.Equal(t, uint32(0), c.CRC(TypeLand, 2, 2), "empty buffer")
	assert.Equal(t, uint32(0), c.CRC(TypeLand, 9, 9), "missing file reads as CRC 0")
}

func TestDataMemoized(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, dir, "l5_5", []byte{1, 2, 3})

	c := NewCache(dir)
	require.Equal(t, []byte{1, 2, 3}, c.Data(TypeLoc, 5, 5))

	// Remove the backing file; the memoized copy must survive.
	require.NoError(t, os.Remove(filepath.Join(dir, "l5_5")))
	assert.Equal(t, []byte{1, 2, 3}, c.Data(TypeLoc, 5, 5))

	assert.Nil(t, c.Data(TypeLoc, 6, 6))
}

func TestChunks(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 2500)
	for i := range data {
		data[i] = byte(i)
	}
	writeMap(t, dir, "m3_3", data)

	c := NewCache(dir)
	chunks := c.Chunks(TypeLand, 3, 3)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, ChunkSize, len(chunks[0].Data))
	assert.Equal(t, 1000, chunks[1].Offset)
	assert.Equal(t, 2000, chunks[2].Offset)
	assert.Equal(t, 500, len(chunks[2].Data))
	for _, ch := range chunks {
		assert.Equal(t, 2500, ch.Total)
	}

	assert.Nil(t, c.Chunks(TypeLand, 7, 7), "missing file yields no chunks")
}

func TestWindowDedup(t *testing.T) {
	// A mapsquare-centered anchor covers exactly four unique squares.
	squares := Window(3200, 3200)
	assert.ElementsMatch(t, [][2]int32{{50, 50}, {50, 49}, {49, 50}, {49, 49}}, squares)

	// Mid-square anchors can touch all nine.
	assert.Len(t, Window(3232, 3232), 9)
}
