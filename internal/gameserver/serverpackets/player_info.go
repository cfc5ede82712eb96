package serverpackets

import (
	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
	"github.com/andrewpaglusch/rs225go/internal/world"
)

// Local-player block subtypes.
const (
	selfFlagsOnly = 0
	selfWalk      = 1
	selfRun       = 2
	selfPlacement = 3
)

// newPlayerTerminator ends the new-players section (11 bits).
const newPlayerTerminator = 2047

// maxAdditions caps the tracking list growth per observer: the existing-peer
// count byte must stay below 255.
const maxAdditions = world.MaxTracked - 1

// PlayerInfo encodes one observer's differential view of the player set:
// the observer's own movement block, keep/remove records for every known
// peer, newly sighted peers, and the update-flag trailer.
//
// Encoding mutates the observer's tracking arena (removals first, then
// additions) and the cached appearance hashes. It must run inside the tick's
// encode phase, before update flags are cleared.
type PlayerInfo struct {
	Observer *model.Player
	Players  []*model.Player // tick snapshot of seated players
	Tracking *world.Tracking

	byIndex map[uint16]*model.Player
}

// trailerEntry queues one update-flag block for the trailer, in sighting
// order: local player first, kept peers, then new peers.
type trailerEntry struct {
	player *model.Player
	flags  uint16
}

// Write serializes the frame, masking the opcode with cipher when non-nil.
func (p *PlayerInfo) Write(cipher *crypto.Isaac) []byte {
	p.byIndex = make(map[uint16]*model.Player, len(p.Players))
	for _, pl := range p.Players {
		p.byIndex[pl.Index] = pl
	}

	b := protocol.NewByteStream(256)
	b.BeginVarShort(protocol.OpPlayerInfo, cipher)
	b.StartBitAccess()

	trailer := make([]trailerEntry, 0, 8)
	trailer = p.writeSelf(b, trailer)
	trailer = p.writeExisting(b, trailer)
	trailer = p.writeNew(b, trailer)

	b.WriteBits(11, newPlayerTerminator)
	b.FinishBitAccess()

	for _, e := range trailer {
		writeFlagBlock(b, e.player, e.flags)
	}

	b.EndVar()
	return b.Bytes()
}

func (p *PlayerInfo) writeSelf(b *protocol.ByteStream, trailer []trailerEntry) []trailerEntry {
	self := p.Observer
	hasUpdate := self.NeedsPlacement || self.PrimaryDir != -1 || self.UpdateFlags != 0
	if !hasUpdate {
		b.WriteBits(1, 0)
		return trailer
	}
	b.WriteBits(1, 1)

	hasFlag := uint32(0)
	if self.UpdateFlags != 0 {
		hasFlag = 1
		trailer = append(trailer, trailerEntry{self, self.UpdateFlags})
	}

	switch {
	case self.NeedsPlacement:
		b.WriteBits(2, selfPlacement)
		b.WriteBits(2, uint32(self.Pos.Height))
		b.WriteBits(7, uint32(self.Pos.LocalZ(self.Origin)))
		b.WriteBits(7, uint32(self.Pos.LocalX(self.Origin)))
		if self.RegionChanged {
			b.WriteBits(1, 1)
		} else {
			b.WriteBits(1, 0)
		}
		b.WriteBits(1, hasFlag)
	case self.SecondaryDir != -1:
		b.WriteBits(2, selfRun)
		b.WriteBits(3, uint32(self.PrimaryDir))
		b.WriteBits(3, uint32(self.SecondaryDir))
		b.WriteBits(1, hasFlag)
	case self.PrimaryDir != -1:
		b.WriteBits(2, selfWalk)
		b.WriteBits(3, uint32(self.PrimaryDir))
		b.WriteBits(1, hasFlag)
	default:
		b.WriteBits(2, selfFlagsOnly)
	}
	return trailer
}

func (p *PlayerInfo) writeExisting(b *protocol.ByteStream, trailer []trailerEntry) []trailerEntry {
	known := p.Tracking.List()
	b.WriteBits(8, uint32(len(known)))

	var removals []uint16
	for _, idx := range known {
		peer := p.peer(idx)

		// Disconnected, unviewable and re-placing peers drop out; a
		// re-placing peer re-enters through the new-players section.
		if peer == nil || peer.NeedsPlacement || !peer.Pos.ViewableFrom(p.Observer.Pos) {
			b.WriteBits(1, 0)
			removals = append(removals, idx)
			continue
		}

		b.WriteBits(1, 1)

		flags := peer.UpdateFlags
		if p.Tracking.AppearanceHash(idx) != peer.AppearanceHash() {
			flags |= model.FlagAppearance
		} else {
			flags &^= model.FlagAppearance
		}
		hasFlag := uint32(0)
		if flags != 0 {
			hasFlag = 1
		}

		switch {
		case peer.SecondaryDir != -1:
			b.WriteBits(2, selfRun)
			b.WriteBits(3, uint32(peer.PrimaryDir))
			b.WriteBits(3, uint32(peer.SecondaryDir))
		case peer.PrimaryDir != -1:
			b.WriteBits(2, selfWalk)
			b.WriteBits(3, uint32(peer.PrimaryDir))
		default:
			b.WriteBits(2, selfPlacement) // flag-only for existing peers
		}
		b.WriteBits(1, hasFlag)

		if hasFlag == 1 {
			trailer = append(trailer, trailerEntry{peer, flags})
			p.Tracking.SetAppearanceHash(idx, peer.AppearanceHash())
		}
	}

	// Removals precede additions within a tick.
	for _, idx := range removals {
		p.Tracking.Remove(idx)
	}
	return trailer
}

func (p *PlayerInfo) writeNew(b *protocol.ByteStream, trailer []trailerEntry) []trailerEntry {
	for _, peer := range p.Players {
		if p.Tracking.Len() >= maxAdditions {
			break
		}
		if peer.Index == p.Observer.Index || p.Tracking.Contains(peer.Index) {
			continue
		}
		if !peer.Pos.ViewableFrom(p.Observer.Pos) {
			continue
		}

		b.WriteBits(11, uint32(peer.Index))
		b.WriteBits(5, uint32(peer.Pos.X-p.Observer.Pos.X)&0x1F)
		b.WriteBits(5, uint32(peer.Pos.Z-p.Observer.Pos.Z)&0x1F)
		b.WriteBits(1, 1) // clear client-side interpolation
		b.WriteBits(1, 1) // appearance and state force-sent on first sighting

		p.Tracking.Add(peer.Index, peer.AppearanceHash())
		trailer = append(trailer, trailerEntry{peer, peer.UpdateFlags | model.FlagAppearance})
	}
	return trailer
}

func (p *PlayerInfo) peer(idx uint16) *model.Player {
	return p.byIndex[idx]
}

// writeFlagBlock emits the mask byte (extended when any flag above 0xFF is
// set) followed by the payloads in mask-bit order.
func writeFlagBlock(b *protocol.ByteStream, pl *model.Player, flags uint16) {
	if flags&0xFF00 != 0 {
		b.WriteU8(uint8(flags | model.FlagExtended))
		b.WriteU8(uint8(flags >> 8))
	} else {
		b.WriteU8(uint8(flags))
	}

	if flags&model.FlagAppearance != 0 {
		writeAppearance(b, pl)
	}
	if flags&model.FlagChat != 0 {
		b.WriteU8(pl.Chat.Colour)
		b.WriteU8(pl.Chat.Effect)
		text := pl.Chat.Text
		if len(text) > 0xFF {
			text = text[:0xFF]
		}
		b.WriteU8(uint8(len(text)))
		b.WriteBytes([]byte(text))
	}
	if flags&model.FlagGraphics != 0 {
		b.WriteU16BE(pl.Gfx.ID)
		b.WriteU16BE(pl.Gfx.Height)
		b.WriteU16BE(pl.Gfx.Delay)
	}
	if flags&model.FlagAnimation != 0 {
		b.WriteU16BE(pl.Anim.ID)
		b.WriteU8(pl.Anim.Delay)
	}
	if flags&model.FlagForcedChat != 0 {
		b.WriteStringNL(pl.Chat.Text)
	}
	if flags&model.FlagFaceEntity != 0 {
		b.WriteU16BE(pl.FaceIndex)
	}
	if flags&model.FlagFacePosition != 0 {
		b.WriteU16BE(uint16(pl.FaceX*2 + 1))
		b.WriteU16BE(uint16(pl.FaceZ*2 + 1))
	}
	if flags&model.FlagHit != 0 {
		writeHit(b, pl)
	}
	if flags&model.FlagHit2 != 0 {
		writeHit(b, pl)
	}
}

func writeHit(b *protocol.ByteStream, pl *model.Player) {
	b.WriteU8(pl.PendingHit.Damage)
	b.WriteU8(pl.PendingHit.Type)
	b.WriteU8(pl.Skills[model.SkillHitpoints].Level)
	b.WriteU8(pl.Skills[model.SkillHitpoints].BaseLevel)
}

// writeAppearance emits the length-prefixed appearance blob.
func writeAppearance(b *protocol.ByteStream, pl *model.Player) {
	blob := protocol.NewByteStream(64)
	blob.WriteU8(pl.Appearance.Gender)
	for _, part := range pl.Appearance.Body {
		if part == 0 {
			blob.WriteU16BE(0)
			continue
		}
		blob.WriteU16BE(0x100 + part)
	}
	for _, colour := range pl.Appearance.Colours {
		blob.WriteU8(colour)
	}
	blob.WriteU16BE(pl.Appearance.StandAnim)
	blob.WriteU16BE(pl.Appearance.WalkAnim)
	blob.WriteU16BE(pl.Appearance.RunAnim)
	blob.WriteU64BE(model.Base37(pl.Name))
	blob.WriteU8(pl.CombatLevel())

	b.WriteU8(uint8(blob.Len()))
	b.WriteBytes(blob.Bytes())
}
