// Package serverpackets contains one builder per server-to-client opcode.
// Each builder frames its payload with the opcode's fixed framing mode and
// masks the opcode byte with the connection's outbound cipher when one is
// attached.
package serverpackets

import (
	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

// IfSetTab assigns an interface to a sidebar tab slot.
type IfSetTab struct {
	Interface uint16
	Tab       uint8
}

// Write serializes the packet, masking the opcode with cipher when non-nil.
func (p *IfSetTab) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(8)
	b.BeginFixed(protocol.OpIfSetTab, cipher)
	b.WriteU16BE(p.Interface)
	b.WriteU8(p.Tab)
	b.EndFixed()
	return b.Bytes()
}

// IfSetText replaces the text of an interface component.
type IfSetText struct {
	Interface uint16
	Text      string
}

func (p *IfSetText) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(32)
	b.BeginVarShort(protocol.OpIfSetText, cipher)
	b.WriteU16BE(p.Interface)
	b.WriteStringNL(p.Text)
	b.EndVar()
	return b.Bytes()
}

// IfSetHide toggles visibility of an interface component.
type IfSetHide struct {
	Interface uint16
	Hidden    bool
}

func (p *IfSetHide) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(8)
	b.BeginFixed(protocol.OpIfSetHide, cipher)
	b.WriteU16BE(p.Interface)
	if p.Hidden {
		b.WriteU8(1)
	} else {
		b.WriteU8(0)
	}
	b.EndFixed()
	return b.Bytes()
}

// IfOpenTop opens a top-level interface.
type IfOpenTop struct {
	Interface uint16
}

func (p *IfOpenTop) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(4)
	b.BeginFixed(protocol.OpIfOpenTop, cipher)
	b.WriteU16BE(p.Interface)
	b.EndFixed()
	return b.Bytes()
}

// IfClose closes the open modal interface.
type IfClose struct{}

func (p *IfClose) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(2)
	b.BeginFixed(protocol.OpIfClose, cipher)
	b.EndFixed()
	return b.Bytes()
}
