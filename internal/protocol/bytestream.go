package protocol

import (
	"fmt"

	"github.com/andrewpaglusch/rs225go/internal/crypto"
)

// headerKind identifies the framing mode of the currently open packet header.
type headerKind int

const (
	headerNone headerKind = iota
	headerFixed
	headerVarByte
	headerVarShort
)

// ByteStream is a growable byte reservoir with a byte cursor and a bit
// cursor. It backs both packet building (writes, three header modes with
// back-patched length) and packet parsing (reads).
//
// Byte-mode and bit-mode never interleave: byte operations while bit access
// is open are programmer errors and panic, as do header misuse (finishing a
// header that was never opened, opening two at once) and out-of-range bit
// widths. Protocol-class problems (short reads) return errors instead.
type ByteStream struct {
	data []byte // high-water storage; len(data) is the written extent
	pos  int    // byte cursor

	bitMode bool
	bitPos  int // in bits, valid only while bitMode

	frame     headerKind
	lenOffset int // offset of the length placeholder for var headers
}

// NewByteStream creates an empty stream with the given initial capacity.
func NewByteStream(capacity int) *ByteStream {
	return &ByteStream{data: make([]byte, 0, capacity)}
}

// Wrap creates a stream reading from (and writing over) an existing slice.
func Wrap(data []byte) *ByteStream {
	return &ByteStream{data: data}
}

// Bytes returns the written extent of the stream.
func (b *ByteStream) Bytes() []byte { return b.data }

// Len returns the written extent in bytes.
func (b *ByteStream) Len() int { return len(b.data) }

// Pos returns the byte cursor.
func (b *ByteStream) Pos() int { return b.pos }

// SetPos moves the byte cursor. Panics in bit mode.
func (b *ByteStream) SetPos(pos int) {
	b.checkByteMode()
	b.pos = pos
}

// Remaining returns the number of unread bytes.
func (b *ByteStream) Remaining() int { return len(b.data) - b.pos }

// ensure grows the written extent to at least end bytes, doubling the
// capacity when needed. New bytes are zeroed so bit writes can OR into them.
func (b *ByteStream) ensure(end int) {
	if end <= len(b.data) {
		return
	}
	if end > cap(b.data) {
		newCap := max(cap(b.data)*2, end, 16)
		grown := make([]byte, end, newCap)
		copy(grown, b.data)
		b.data = grown
		return
	}
	b.data = b.data[:end]
}

func (b *ByteStream) checkByteMode() {
	if b.bitMode {
		panic("protocol: byte operation while bit access is open")
	}
}

// --- writes ---

// WriteU8 writes one byte at the cursor.
func (b *ByteStream) WriteU8(v uint8) {
	b.checkByteMode()
	b.ensure(b.pos + 1)
	b.data[b.pos] = v
	b.pos++
}

// WriteU16BE writes a big-endian uint16.
func (b *ByteStream) WriteU16BE(v uint16) {
	b.checkByteMode()
	b.ensure(b.pos + 2)
	b.data[b.pos] = byte(v >> 8)
	b.data[b.pos+1] = byte(v)
	b.pos += 2
}

// WriteU16LE writes a little-endian uint16.
func (b *ByteStream) WriteU16LE(v uint16) {
	b.checkByteMode()
	b.ensure(b.pos + 2)
	b.data[b.pos] = byte(v)
	b.data[b.pos+1] = byte(v >> 8)
	b.pos += 2
}

// WriteU32BE writes a big-endian uint32.
func (b *ByteStream) WriteU32BE(v uint32) {
	b.checkByteMode()
	b.ensure(b.pos + 4)
	b.data[b.pos] = byte(v >> 24)
	b.data[b.pos+1] = byte(v >> 16)
	b.data[b.pos+2] = byte(v >> 8)
	b.data[b.pos+3] = byte(v)
	b.pos += 4
}

// WriteU32LE writes a little-endian uint32.
func (b *ByteStream) WriteU32LE(v uint32) {
	b.checkByteMode()
	b.ensure(b.pos + 4)
	b.data[b.pos] = byte(v)
	b.data[b.pos+1] = byte(v >> 8)
	b.data[b.pos+2] = byte(v >> 16)
	b.data[b.pos+3] = byte(v >> 24)
	b.pos += 4
}

// WriteU64BE writes a big-endian uint64.
func (b *ByteStream) WriteU64BE(v uint64) {
	b.checkByteMode()
	b.ensure(b.pos + 8)
	for i := 0; i < 8; i++ {
		b.data[b.pos+i] = byte(v >> (56 - 8*i))
	}
	b.pos += 8
}

// WriteBytes writes a raw byte block.
func (b *ByteStream) WriteBytes(p []byte) {
	b.checkByteMode()
	b.ensure(b.pos + len(p))
	copy(b.data[b.pos:], p)
	b.pos += len(p)
}

// WriteStringNL writes s followed by the 0x0A terminator. No length prefix.
func (b *ByteStream) WriteStringNL(s string) {
	b.checkByteMode()
	b.ensure(b.pos + len(s) + 1)
	copy(b.data[b.pos:], s)
	b.data[b.pos+len(s)] = 0x0A
	b.pos += len(s) + 1
}

// --- reads ---

func (b *ByteStream) need(n int) error {
	if b.bitMode {
		panic("protocol: byte operation while bit access is open")
	}
	if b.pos+n > len(b.data) {
		return fmt.Errorf("protocol: need %d bytes at %d, have %d", n, b.pos, len(b.data)-b.pos)
	}
	return nil
}

// ReadU8 reads one byte.
func (b *ByteStream) ReadU8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// ReadU16BE reads a big-endian uint16.
func (b *ByteStream) ReadU16BE() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := uint16(b.data[b.pos])<<8 | uint16(b.data[b.pos+1])
	b.pos += 2
	return v, nil
}

// ReadU16LE reads a little-endian uint16.
func (b *ByteStream) ReadU16LE() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := uint16(b.data[b.pos]) | uint16(b.data[b.pos+1])<<8
	b.pos += 2
	return v, nil
}

// ReadI16BE reads a big-endian uint16 sign-extended to int16.
func (b *ByteStream) ReadI16BE() (int16, error) {
	v, err := b.ReadU16BE()
	return int16(v), err
}

// ReadU32BE reads a big-endian uint32.
func (b *ByteStream) ReadU32BE() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := uint32(b.data[b.pos])<<24 | uint32(b.data[b.pos+1])<<16 |
		uint32(b.data[b.pos+2])<<8 | uint32(b.data[b.pos+3])
	b.pos += 4
	return v, nil
}

// ReadU64BE reads a big-endian uint64.
func (b *ByteStream) ReadU64BE() (uint64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b.data[b.pos+i])
	}
	b.pos += 8
	return v, nil
}

// ReadBytes reads n bytes. The returned slice aliases the stream.
func (b *ByteStream) ReadBytes(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	p := b.data[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}

// ReadStringNL reads bytes up to the 0x0A terminator, capped at maxLen
// payload bytes. The terminator is consumed and not returned.
func (b *ByteStream) ReadStringNL(maxLen int) (string, error) {
	b.checkByteMode()
	start := b.pos
	for i := 0; i <= maxLen && start+i < len(b.data); i++ {
		if b.data[start+i] == 0x0A {
			s := string(b.data[start : start+i])
			b.pos = start + i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("protocol: unterminated string at %d (cap %d)", start, maxLen)
}

// --- bit access ---

// StartBitAccess switches the stream to bit mode at the byte cursor.
func (b *ByteStream) StartBitAccess() {
	if b.bitMode {
		panic("protocol: bit access already open")
	}
	b.bitMode = true
	b.bitPos = b.pos * 8
}

// FinishBitAccess closes bit mode, rounding the byte cursor up to the next
// whole byte.
func (b *ByteStream) FinishBitAccess() {
	if !b.bitMode {
		panic("protocol: bit access not open")
	}
	b.bitMode = false
	b.pos = (b.bitPos + 7) / 8
	b.ensure(b.pos)
}

// WriteBits writes the low n bits of v, MSB-first within each byte.
func (b *ByteStream) WriteBits(n int, v uint32) {
	if !b.bitMode {
		panic("protocol: WriteBits outside bit access")
	}
	if n < 1 || n > 32 {
		panic(fmt.Sprintf("protocol: bit width %d out of range", n))
	}

	bitOffset := 8 - (b.bitPos & 7)
	for n > bitOffset {
		idx := b.bitPos >> 3
		b.ensure(idx + 1)
		mask := byte(1<<bitOffset) - 1
		b.data[idx] = b.data[idx]&^mask | byte(v>>(n-bitOffset))&mask
		b.bitPos += bitOffset
		n -= bitOffset
		bitOffset = 8
	}

	idx := b.bitPos >> 3
	b.ensure(idx + 1)
	shift := bitOffset - n
	mask := byte((1<<n)-1) << shift
	b.data[idx] = b.data[idx]&^mask | byte(v<<shift)&mask
	b.bitPos += n
}

// ReadBits reads n bits MSB-first from the bit cursor.
func (b *ByteStream) ReadBits(n int) uint32 {
	if !b.bitMode {
		panic("protocol: ReadBits outside bit access")
	}
	if n < 1 || n > 32 {
		panic(fmt.Sprintf("protocol: bit width %d out of range", n))
	}

	var v uint32
	bitOffset := 8 - (b.bitPos & 7)
	for n > bitOffset {
		idx := b.bitPos >> 3
		mask := uint32(1<<bitOffset) - 1
		v = v<<bitOffset | uint32(b.data[idx])&mask
		b.bitPos += bitOffset
		n -= bitOffset
		bitOffset = 8
	}

	idx := b.bitPos >> 3
	shift := bitOffset - n
	v = v<<n | (uint32(b.data[idx])>>shift)&(uint32(1<<n)-1)
	b.bitPos += n
	return v
}

// --- packet headers ---

// writeOpcode writes op, masked with the cipher keystream when one is
// attached (post-login frames).
func (b *ByteStream) writeOpcode(op uint8, cipher *crypto.Isaac) {
	if cipher != nil {
		b.WriteU8(uint8(uint32(op) + cipher.Next()))
		return
	}
	b.WriteU8(op)
}

func (b *ByteStream) openFrame(kind headerKind) {
	if b.frame != headerNone {
		panic("protocol: packet header already open")
	}
	b.frame = kind
}

// BeginFixed opens a fixed-length frame: masked opcode only.
func (b *ByteStream) BeginFixed(op uint8, cipher *crypto.Isaac) {
	b.openFrame(headerFixed)
	b.writeOpcode(op, cipher)
}

// BeginVarByte opens a frame whose one-byte length is back-patched by
// EndVar.
func (b *ByteStream) BeginVarByte(op uint8, cipher *crypto.Isaac) {
	b.openFrame(headerVarByte)
	b.writeOpcode(op, cipher)
	b.lenOffset = b.pos
	b.WriteU8(0)
}

// BeginVarShort opens a frame whose two-byte big-endian length is
// back-patched by EndVar.
func (b *ByteStream) BeginVarShort(op uint8, cipher *crypto.Isaac) {
	b.openFrame(headerVarShort)
	b.writeOpcode(op, cipher)
	b.lenOffset = b.pos
	b.WriteU16BE(0)
}

// EndFixed closes a fixed frame. Present for symmetry and invariant checks.
func (b *ByteStream) EndFixed() {
	if b.frame != headerFixed {
		panic("protocol: EndFixed without matching BeginFixed")
	}
	b.frame = headerNone
}

// EndVar back-patches the payload length of the open variable frame.
func (b *ByteStream) EndVar() {
	b.checkByteMode()
	switch b.frame {
	case headerVarByte:
		length := b.pos - b.lenOffset - 1
		if length > 0xFF {
			panic(fmt.Sprintf("protocol: var-byte payload %d overflows", length))
		}
		b.data[b.lenOffset] = byte(length)
	case headerVarShort:
		length := b.pos - b.lenOffset - 2
		if length > 0xFFFF {
			panic(fmt.Sprintf("protocol: var-short payload %d overflows", length))
		}
		b.data[b.lenOffset] = byte(length >> 8)
		b.data[b.lenOffset+1] = byte(length)
	default:
		panic("protocol: EndVar without matching BeginVar")
	}
	b.frame = headerNone
}
