// Package spawn loads NPC definitions and spawn points and manages the
// respawn countdowns the world tick drives.
package spawn

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/world"
)

// DefaultRespawnTicks is a default respawn countdown. The manager does not
// apply it: the countdown is whatever the caller passes to model.Npc.Die,
// and Point.RespawnTicks is loaded from the spawn file but not read.
const DefaultRespawnTicks = 50

// npcFile is the YAML shape of data/npcs.yaml.
type npcFile struct {
	Definitions []struct {
		ID        uint16 `yaml:"id"`
		Name      string `yaml:"name"`
		Level     uint8  `yaml:"level"`
		Hitpoints int32  `yaml:"hitpoints"`
		Wanders   bool   `yaml:"wanders"`
	} `yaml:"definitions"`
	Spawns []Point `yaml:"spawns"`
}

// Point is one spawn point.
type Point struct {
	NpcID        uint16 `yaml:"npc"`
	X            int32  `yaml:"x"`
	Z            int32  `yaml:"z"`
	Height       uint8  `yaml:"height"`
	RespawnTicks int    `yaml:"respawn_ticks"`
}

// Manager owns the definition registry and the spawn list.
type Manager struct {
	definitions map[uint16]*model.NpcDefinition
	spawns      []Point
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{definitions: make(map[uint16]*model.NpcDefinition)}
}

// Load reads definitions and spawn points from a YAML file. A missing file
// leaves the world without NPCs, which is not an error.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("no npc spawn file, world starts empty", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading spawn file %s: %w", path, err)
	}

	var file npcFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing spawn file %s: %w", path, err)
	}

	for _, d := range file.Definitions {
		m.definitions[d.ID] = &model.NpcDefinition{
			ID:        d.ID,
			Name:      d.Name,
			Level:     d.Level,
			Hitpoints: d.Hitpoints,
			Wanders:   d.Wanders,
		}
	}
	m.spawns = file.Spawns
	return nil
}

// Definition returns a registered definition, or nil.
func (m *Manager) Definition(id uint16) *model.NpcDefinition {
	return m.definitions[id]
}

// AddDefinition registers a definition programmatically.
func (m *Manager) AddDefinition(def *model.NpcDefinition) {
	m.definitions[def.ID] = def
}

// AddSpawn registers a spawn point programmatically.
func (m *Manager) AddSpawn(p Point) {
	m.spawns = append(m.spawns, p)
}

// SpawnAll activates every spawn point in the world's NPC pool.
func (m *Manager) SpawnAll(w *world.World) error {
	spawned := 0
	for _, pt := range m.spawns {
		def := m.definitions[pt.NpcID]
		if def == nil {
			slog.Warn("spawn references unknown npc", "npc", pt.NpcID)
			continue
		}
		if _, err := w.AddNpc(def, model.NewPosition(pt.Height, pt.X, pt.Z)); err != nil {
			return fmt.Errorf("spawning npc %d: %w", pt.NpcID, err)
		}
		spawned++
	}
	if spawned > 0 {
		slog.Info("npcs spawned", "count", spawned)
	}
	return nil
}

// TickRespawns advances respawn countdowns and reactivates NPCs that reach
// zero. Called once per game tick.
func (m *Manager) TickRespawns(w *world.World) {
	for _, n := range w.Npcs() {
		if n == nil || n.Active {
			continue
		}
		n.RespawnTicks--
		if n.RespawnTicks > 0 {
			continue
		}
		n.Respawn()
		w.Collision.AddFlag(n.Pos.Height, n.Pos.X, n.Pos.Z, world.NpcOccupied)
		slog.Debug("npc respawned", "slot", n.Index, "name", n.Definition.Name)
	}
}
