package serverpackets

import (
	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

// MessageGame prints a line in the chatbox.
type MessageGame struct {
	Message string
}

func (p *MessageGame) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(len(p.Message) + 4)
	b.BeginVarByte(protocol.OpMessageGame, cipher)
	b.WriteStringNL(p.Message)
	b.EndVar()
	return b.Bytes()
}

// UpdateStat pushes one skill's experience and current level.
type UpdateStat struct {
	Skill      uint8
	Experience int32
	Level      uint8
}

func (p *UpdateStat) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(8)
	b.BeginFixed(protocol.OpUpdateStat, cipher)
	b.WriteU8(p.Skill)
	b.WriteU32BE(uint32(p.Experience))
	b.WriteU8(p.Level)
	b.EndFixed()
	return b.Bytes()
}

// UpdateRunEnergy pushes run energy as whole percent [0, 100].
type UpdateRunEnergy struct {
	Energy int32 // centi-percent
}

func (p *UpdateRunEnergy) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(4)
	b.BeginFixed(protocol.OpUpdateRunEnergy, cipher)
	b.WriteU8(uint8(p.Energy / 100))
	b.EndFixed()
	return b.Bytes()
}

// UpdateRunMode reflects the effective running state back to the client.
type UpdateRunMode struct {
	Running bool
}

func (p *UpdateRunMode) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(4)
	b.BeginFixed(protocol.OpUpdateRunMode, cipher)
	if p.Running {
		b.WriteU8(1)
	} else {
		b.WriteU8(0)
	}
	b.EndFixed()
	return b.Bytes()
}

// VarpSmall sets a client variable to a byte value.
type VarpSmall struct {
	ID    uint16
	Value uint8
}

func (p *VarpSmall) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(8)
	b.BeginFixed(protocol.OpVarpSmall, cipher)
	b.WriteU16BE(p.ID)
	b.WriteU8(p.Value)
	b.EndFixed()
	return b.Bytes()
}

// VarpLarge sets a client variable to a 32-bit value.
type VarpLarge struct {
	ID    uint16
	Value uint32
}

func (p *VarpLarge) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(8)
	b.BeginFixed(protocol.OpVarpLarge, cipher)
	b.WriteU16BE(p.ID)
	b.WriteU32BE(p.Value)
	b.EndFixed()
	return b.Bytes()
}

// CamReset resets all camera effects.
type CamReset struct{}

func (p *CamReset) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(2)
	b.BeginFixed(protocol.OpCamReset, cipher)
	b.EndFixed()
	return b.Bytes()
}

// Logout tells the client the session has ended.
type Logout struct{}

func (p *Logout) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(2)
	b.BeginFixed(protocol.OpLogout, cipher)
	b.EndFixed()
	return b.Bytes()
}

// InvItem is one stack in a full inventory update.
type InvItem struct {
	ID    uint16
	Count uint32
}

// UpdateInvFull replaces the contents of an inventory interface. Counts
// above 254 escape to a 32-bit field.
type UpdateInvFull struct {
	Interface uint16
	Items     []InvItem
}

func (p *UpdateInvFull) Write(cipher *crypto.Isaac) []byte {
	b := protocol.NewByteStream(16 + len(p.Items)*4)
	b.BeginVarShort(protocol.OpUpdateInvFull, cipher)
	b.WriteU16BE(p.Interface)
	b.WriteU8(uint8(len(p.Items)))
	for _, item := range p.Items {
		b.WriteU16BE(item.ID)
		if item.Count >= 255 {
			b.WriteU8(255)
			b.WriteU32BE(item.Count)
		} else {
			b.WriteU8(uint8(item.Count))
		}
	}
	b.EndVar()
	return b.Bytes()
}

// SkillVolley builds the full 19-skill volley sent on seating.
func SkillVolley(p *model.Player, cipher *crypto.Isaac) [][]byte {
	out := make([][]byte, 0, model.SkillCount)
	for i := 0; i < model.SkillCount; i++ {
		pkt := UpdateStat{
			Skill:      uint8(i),
			Experience: p.Skills[i].Experience,
			Level:      p.Skills[i].Level,
		}
		out = append(out, pkt.Write(cipher))
	}
	return out
}
