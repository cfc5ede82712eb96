package serverpackets

import (
	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/mapdata"
	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

// RebuildNormal announces the zone the client must anchor on and the CRCs of
// every mapsquare file in the surrounding window, so the client can request
// what it is missing.
type RebuildNormal struct {
	Pos  model.Position
	Maps *mapdata.Cache
}

func (p *RebuildNormal) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(64)
	b.BeginVarShort(protocol.OpRebuildNormal, cipher)
	b.WriteU16BE(uint16(model.Zone(p.Pos.X)))
	b.WriteU16BE(uint16(model.Zone(p.Pos.Z)))
	for _, sq := range mapdata.Window(p.Pos.X, p.Pos.Z) {
		fx, fz := sq[0], sq[1]
		b.WriteU8(uint8(fx))
		b.WriteU8(uint8(fz))
		b.WriteU32BE(p.Maps.CRC(mapdata.TypeLand, fx, fz))
		b.WriteU32BE(p.Maps.CRC(mapdata.TypeLoc, fx, fz))
	}
	b.EndVar()
	return b.Bytes()
}

// DataChunk streams one slice of a map file.
type DataChunk struct {
	FileType int // mapdata.TypeLand or mapdata.TypeLoc
	FX, FZ   int32
	Chunk    mapdata.Chunk
}

func (p *DataChunk) Write(cipher *crypto.Isaac) []byte {
	op := uint8(protocol.OpDataLand)
	if p.FileType == mapdata.TypeLoc {
		op = protocol.OpDataLoc
	}
	b := protocol.NewByteStream(16 + len(p.Chunk.Data))
	b.BeginVarShort(op, cipher)
	b.WriteU8(uint8(p.FX))
	b.WriteU8(uint8(p.FZ))
	b.WriteU16BE(uint16(p.Chunk.Offset))
	b.WriteU16BE(uint16(p.Chunk.Total))
	b.WriteBytes(p.Chunk.Data)
	b.EndVar()
	return b.Bytes()
}

// DataDone marks the end of one file's stream. Emitted even for files that
// could not be read, so the client never waits forever.
type DataDone struct {
	FileType int
	FX, FZ   int32
}

func (p *DataDone) Write(cipher *crypto.Isaac) []byte {
	op := uint8(protocol.OpDataLandDone)
	if p.FileType == mapdata.TypeLoc {
		op = protocol.OpDataLocDone
	}
	b := protocol.NewByteStream(4)
	b.BeginFixed(op, cipher)
	b.WriteU8(uint8(p.FX))
	b.WriteU8(uint8(p.FZ))
	b.EndFixed()
	return b.Bytes()
}
