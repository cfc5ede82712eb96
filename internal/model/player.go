package model

import "strings"

// Update flag bits selecting which payloads follow in a player-info trailer.
// FlagFacePosition doubles as the extended-mask indicator when any flag
// above 0xFF is set (protocol 225 convention).
const (
	FlagAppearance     uint16 = 0x1
	FlagChat           uint16 = 0x2
	FlagGraphics       uint16 = 0x4
	FlagAnimation      uint16 = 0x8
	FlagForcedChat     uint16 = 0x10
	FlagFaceEntity     uint16 = 0x20
	FlagFacePosition   uint16 = 0x40
	FlagHit            uint16 = 0x80
	FlagExtended       uint16 = 0x40
	FlagHit2           uint16 = 0x100
	FlagForcedMovement uint16 = 0x200
)

// SkillCount is the number of trained skills in revision 225.
const SkillCount = 19

// SkillNames indexes display names by skill id.
var SkillNames = [SkillCount]string{
	"Attack", "Defence", "Strength", "Hitpoints", "Ranged", "Prayer",
	"Magic", "Cooking", "Woodcutting", "Fletching", "Fishing", "Firemaking",
	"Crafting", "Smithing", "Mining", "Herblore", "Agility", "Thieving",
	"Runecraft",
}

// SkillHitpoints is the skill id of Hitpoints.
const SkillHitpoints = 3

// Skill is one trained skill: current (boostable) level, base level and
// experience.
type Skill struct {
	Level      uint8
	BaseLevel  uint8
	Experience int32
}

// PublicChat is a pending public chat message realized through the CHAT
// update flag.
type PublicChat struct {
	Colour byte
	Effect byte
	Text   string
}

// Animation is a pending animation realized through the ANIMATION flag.
type Animation struct {
	ID    uint16
	Delay uint8
}

// Graphic is a pending spot animation realized through the GRAPHICS flag.
type Graphic struct {
	ID     uint16
	Height uint16
	Delay  uint16
}

// Hit is a pending hitsplat realized through the HIT or HIT2 flag.
type Hit struct {
	Damage uint8
	Type   uint8
}

// Appearance is the visible identity of a player: body part identifiers,
// colours and stance animations.
type Appearance struct {
	Gender    uint8
	Body      [7]uint16
	Colours   [5]uint8
	StandAnim uint16
	WalkAnim  uint16
	RunAnim   uint16
}

// DefaultAppearance returns the fresh-account look.
func DefaultAppearance() Appearance {
	return Appearance{
		Body:      [7]uint16{0, 18, 26, 33, 36, 42, 10},
		StandAnim: 808,
		WalkAnim:  819,
		RunAnim:   824,
	}
}

// Player is a seated identity. Slot index 0 is reserved; live players occupy
// 1..MaxPlayers-1. All mutation happens on the game tick goroutine.
type Player struct {
	Index uint16
	Name  string

	Pos    Position
	Origin Position // anchor of the current zone window

	UpdateFlags    uint16
	NeedsPlacement bool
	PlacementTicks int
	RegionChanged  bool

	// Directions taken this tick, -1 for none. Set by the movement phase,
	// read by the player-info encoder within the same tick.
	PrimaryDir   int8
	SecondaryDir int8

	Skills     [SkillCount]Skill
	Queue      *MovementQueue
	Appearance Appearance

	// Pending flag payloads, cleared with UpdateFlags at tick end.
	Chat       PublicChat
	Anim       Animation
	Gfx        Graphic
	PendingHit Hit
	FaceIndex  uint16
	FaceX      int32
	FaceZ      int32

	LastLogin int64 // unix milliseconds
}

// NewPlayer creates a player seated at the given slot with default skills
// and appearance.
func NewPlayer(index uint16, name string) *Player {
	p := &Player{
		Index:        index,
		Name:         name,
		Queue:        NewMovementQueue(),
		Appearance:   DefaultAppearance(),
		PrimaryDir:   -1,
		SecondaryDir: -1,
	}
	for i := range p.Skills {
		p.Skills[i] = Skill{Level: 1, BaseLevel: 1}
	}
	p.Skills[SkillHitpoints] = Skill{Level: 10, BaseLevel: 10, Experience: 1154}
	return p
}

// Seat marks the player for the two-tick placement boot state.
func (p *Player) Seat(pos Position) {
	p.Pos = pos
	p.Origin = pos
	p.NeedsPlacement = true
	p.PlacementTicks = 0
	p.RegionChanged = true
	p.UpdateFlags = FlagAppearance
}

// Teleport force-moves the player, re-entering the placement state.
func (p *Player) Teleport(pos Position) {
	p.Queue.Clear()
	p.Seat(pos)
}

// CombatLevel derives the combat level from base skill levels.
func (p *Player) CombatLevel() uint8 {
	attack := int(p.Skills[0].BaseLevel)
	defence := int(p.Skills[1].BaseLevel)
	strength := int(p.Skills[2].BaseLevel)
	hitpoints := int(p.Skills[3].BaseLevel)
	ranged := int(p.Skills[4].BaseLevel)
	prayer := int(p.Skills[5].BaseLevel)
	magic := int(p.Skills[6].BaseLevel)

	base := float64(defence+hitpoints+prayer/2) * 0.25
	melee := float64(attack+strength) * 0.325
	ranger := float64(ranged) * 0.4875
	mage := float64(magic) * 0.4875

	return uint8(base + max(melee, ranger, mage))
}

// AppearanceHash is a cheap digest observers cache to suppress redundant
// appearance blocks (FNV-1a over the visible identity).
func (p *Player) AppearanceHash() uint32 {
	h := uint32(2166136261)
	mix := func(v uint32) {
		h ^= v
		h *= 16777619
	}
	mix(uint32(p.Appearance.Gender))
	for _, part := range p.Appearance.Body {
		mix(uint32(part))
	}
	for _, c := range p.Appearance.Colours {
		mix(uint32(c))
	}
	mix(uint32(p.Appearance.StandAnim))
	mix(uint32(p.CombatLevel()))
	for _, ch := range p.Name {
		mix(uint32(ch))
	}
	return h
}

// Base37 encodes a display name the way the client renders it in the
// appearance block.
func Base37(name string) uint64 {
	var v uint64
	name = strings.ToLower(name)
	for i := 0; i < len(name) && i < 12; i++ {
		c := name[i]
		v *= 37
		switch {
		case c >= 'a' && c <= 'z':
			v += uint64(c-'a') + 1
		case c >= '0' && c <= '9':
			v += uint64(c-'0') + 27
		}
	}
	for v%37 == 0 && v != 0 {
		v /= 37
	}
	return v
}
