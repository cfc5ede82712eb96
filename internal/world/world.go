package world

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andrewpaglusch/rs225go/internal/model"
)

// DefaultMaxPlayers is the default player pool capacity. Slot 0 is reserved,
// so the seatable range is 1..DefaultMaxPlayers-1.
const DefaultMaxPlayers = 2048

// MaxNpcs is the NPC pool capacity.
const MaxNpcs = 8192

// ErrWorldFull is returned when no free player slot remains.
var ErrWorldFull = errors.New("world: player pool full")

// World exclusively owns the player pool, the NPC pool, the per-observer
// tracking table and the collision grid. It is mutated only from the game
// tick goroutine.
type World struct {
	players  []*model.Player
	tracking []*Tracking
	npcs     []*model.Npc
	byName   map[string]uint16

	Collision *CollisionGrid

	tick uint64
}

// New creates a world with the given player pool capacity.
func New(maxPlayers int) *World {
	if maxPlayers < 2 {
		maxPlayers = DefaultMaxPlayers
	}
	w := &World{
		players:   make([]*model.Player, maxPlayers),
		tracking:  make([]*Tracking, maxPlayers),
		npcs:      make([]*model.Npc, MaxNpcs),
		byName:    make(map[string]uint16),
		Collision: NewCollisionGrid(),
	}
	for i := range w.tracking {
		w.tracking[i] = NewTracking(maxPlayers)
	}
	return w
}

// Capacity returns the player pool capacity including the reserved slot.
func (w *World) Capacity() int { return len(w.players) }

// Tick returns the current tick counter.
func (w *World) Tick() uint64 { return w.tick }

// AdvanceTick increments the tick counter.
func (w *World) AdvanceTick() { w.tick++ }

// Register seats a player in the first free slot and indexes it by
// username. The tracking arena for the slot is reset on seating.
func (w *World) Register(p *model.Player) error {
	for i := 1; i < len(w.players); i++ {
		if w.players[i] == nil {
			p.Index = uint16(i)
			w.players[i] = p
			w.tracking[i].Reset()
			w.byName[strings.ToLower(p.Name)] = uint16(i)
			w.Collision.AddFlag(p.Pos.Height, p.Pos.X, p.Pos.Z, PlayerOccupied)
			return nil
		}
	}
	return ErrWorldFull
}

// Unregister frees a seat, clears its tracking arena and occupancy bit.
func (w *World) Unregister(index uint16) {
	p := w.Player(index)
	if p == nil {
		return
	}
	w.Collision.RemoveFlag(p.Pos.Height, p.Pos.X, p.Pos.Z, PlayerOccupied)
	delete(w.byName, strings.ToLower(p.Name))
	w.players[index] = nil
	w.tracking[index].Reset()
}

// Player returns the player at a slot, or nil.
func (w *World) Player(index uint16) *model.Player {
	if int(index) >= len(w.players) {
		return nil
	}
	return w.players[index]
}

// PlayerByName returns the seated player with the given username, or nil.
func (w *World) PlayerByName(name string) *model.Player {
	idx, ok := w.byName[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return w.players[idx]
}

// Tracking returns the tracking arena for an observer slot.
func (w *World) Tracking(index uint16) *Tracking {
	return w.tracking[index]
}

// Players returns a snapshot of seated players, built once per tick and
// shared across all observer encodes.
func (w *World) Players() []*model.Player {
	out := make([]*model.Player, 0, 64)
	for i := 1; i < len(w.players); i++ {
		if w.players[i] != nil {
			out = append(out, w.players[i])
		}
	}
	return out
}

// PlayerCount returns the number of seated players.
func (w *World) PlayerCount() int {
	n := 0
	for i := 1; i < len(w.players); i++ {
		if w.players[i] != nil {
			n++
		}
	}
	return n
}

// MovePlayer applies a position change, maintaining occupancy bits.
func (w *World) MovePlayer(p *model.Player, to model.Position) {
	w.Collision.RemoveFlag(p.Pos.Height, p.Pos.X, p.Pos.Z, PlayerOccupied)
	p.Pos = to
	w.Collision.AddFlag(to.Height, to.X, to.Z, PlayerOccupied)
}

// AddNpc activates an NPC in the first free pool slot.
func (w *World) AddNpc(def *model.NpcDefinition, spawn model.Position) (*model.Npc, error) {
	for i := range w.npcs {
		if w.npcs[i] == nil {
			n := model.NewNpc(uint16(i), def, spawn)
			w.npcs[i] = n
			w.Collision.AddFlag(spawn.Height, spawn.X, spawn.Z, NpcOccupied)
			return n, nil
		}
	}
	return nil, fmt.Errorf("world: npc pool full (%d)", MaxNpcs)
}

// Npcs returns the live NPC pool slice; nil entries are free slots.
func (w *World) Npcs() []*model.Npc { return w.npcs }

// MoveNpc applies an NPC position change, maintaining occupancy bits.
func (w *World) MoveNpc(n *model.Npc, to model.Position) {
	w.Collision.RemoveFlag(n.Pos.Height, n.Pos.X, n.Pos.Z, NpcOccupied)
	n.Pos = to
	w.Collision.AddFlag(to.Height, to.X, to.Z, NpcOccupied)
}

// LogPositions writes the rate-limited position heartbeat.
func (w *World) LogPositions() {
	for i := 1; i < len(w.players); i++ {
		p := w.players[i]
		if p == nil {
			continue
		}
		slog.Info("player position",
			"slot", p.Index,
			"name", p.Name,
			"x", p.Pos.X,
			"z", p.Pos.Z,
			"height", p.Pos.Height)
	}
}
