// Package mapdata serves the on-disk map files the client streams during a
// region rebuild: m{x}_{z} (land) and l{x}_{z} (loc), opaque byte blobs the
// server only checksums and chunks.
package mapdata

import (
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"
)

// File types within a mapsquare.
const (
	TypeLand = 0
	TypeLoc  = 1
)

// ChunkSize is the payload size of one DATA_LAND/DATA_LOC packet.
const ChunkSize = 1000

// Cache lazily loads map files from a directory and memoizes contents and
// CRCs. Reads happen on the game goroutine only; no locking.
type Cache struct {
	dir   string
	files map[string][]byte
	crcs  map[string]uint32
}

// NewCache creates a cache over the given maps directory.
func NewCache(dir string) *Cache {
	return &Cache{
		dir:   dir,
		files: make(map[string][]byte),
		crcs:  make(map[string]uint32),
	}
}

// FileName returns the on-disk name for a mapsquare file.
func FileName(fileType int, fx, fz int32) string {
	prefix := "m"
	if fileType == TypeLoc {
		prefix = "l"
	}
	return fmt.Sprintf("%s%d_%d", prefix, fx, fz)
}

// Data returns the file contents, or nil when the file does not exist. The
// result is memoized; missing files are memoized as nil.
func (c *Cache) Data(fileType int, fx, fz int32) []byte {
	name := FileName(fileType, fx, fz)
	if data, ok := c.files[name]; ok {
		return data
	}
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("reading map file", "file", name, "error", err)
		}
		data = nil
	}
	c.files[name] = data
	return data
}

// CRC returns the IEEE CRC32 of the file, or 0 when it cannot be read; a
// zero CRC makes the client re-request the file if it holds a stale copy.
func (c *Cache) CRC(fileType int, fx, fz int32) uint32 {
	name := FileName(fileType, fx, fz)
	if crc, ok := c.crcs[name]; ok {
		return crc
	}
	data := c.Data(fileType, fx, fz)
	var crc uint32
	if data != nil {
		crc = crc32.ChecksumIEEE(data)
	}
	c.crcs[name] = crc
	return crc
}

// Chunk is one streaming slice of a map file.
type Chunk struct {
	Offset int
	Total  int
	Data   []byte
}

// Chunks splits a file into ChunkSize slices for streaming. A missing file
// yields no chunks; the caller still emits the DONE marker.
func (c *Cache) Chunks(fileType int, fx, fz int32) []Chunk {
	data := c.Data(fileType, fx, fz)
	if data == nil {
		return nil
	}
	chunks := make([]Chunk, 0, (len(data)+ChunkSize-1)/ChunkSize)
	for off := 0; off < len(data); off += ChunkSize {
		end := min(off+ChunkSize, len(data))
		chunks = append(chunks, Chunk{Offset: off, Total: len(data), Data: data[off:end]})
	}
	return chunks
}

// Window lists the unique mapsquares of the 3x3 zone window around an
// absolute tile: each corner offset by ±52 tiles before the mapsquare
// shift, duplicates eliminated by linear scan.
func Window(x, z int32) [][2]int32 {
	out := make([][2]int32, 0, 9)
	for _, dx := range [3]int32{-52, 0, 52} {
		for _, dz := range [3]int32{-52, 0, 52} {
			fx := (x + dx) >> 6
			fz := (z + dz) >> 6
			dup := false
			for _, e := range out {
				if e[0] == fx && e[1] == fz {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, [2]int32{fx, fz})
			}
		}
	}
	return out
}
