package model

// NpcDefinition is the immutable template an NPC instance references by id.
type NpcDefinition struct {
	ID        uint16
	Name      string
	Level     uint8
	Hitpoints int32
	Wanders   bool
	Models    []uint16
}

// Npc is a pooled NPC instance. The definition is referenced, never owned;
// SpawnPos is immutable for the instance's active lifetime.
type Npc struct {
	Index      uint16
	Definition *NpcDefinition

	Pos      Position
	SpawnPos Position

	Queue       *MovementQueue
	Hitpoints   int32
	UpdateFlags uint16
	Active      bool

	// RespawnTicks counts down while the instance is inactive; the world
	// re-activates it at zero.
	RespawnTicks int
}

// NewNpc activates a pooled instance at its spawn position.
func NewNpc(index uint16, def *NpcDefinition, spawn Position) *Npc {
	return &Npc{
		Index:      index,
		Definition: def,
		Pos:        spawn,
		SpawnPos:   spawn,
		Queue:      NewMovementQueue(),
		Hitpoints:  def.Hitpoints,
		Active:     true,
	}
}

// Die deactivates the instance and arms the respawn countdown.
func (n *Npc) Die(respawnTicks int) {
	n.Active = false
	n.RespawnTicks = respawnTicks
	n.Queue.Clear()
}

// Respawn reactivates the instance at its spawn position.
func (n *Npc) Respawn() {
	n.Pos = n.SpawnPos
	n.Hitpoints = n.Definition.Hitpoints
	n.UpdateFlags = 0
	n.Active = true
}
