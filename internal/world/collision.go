package world

import "github.com/andrewpaglusch/rs225go/internal/model"

// Collision flag bits, one uint32 per tile per height plane.
const (
	WallNW uint32 = 1 << 0
	WallN  uint32 = 1 << 1
	WallNE uint32 = 1 << 2
	WallE  uint32 = 1 << 3
	WallSE uint32 = 1 << 4
	WallS  uint32 = 1 << 5
	WallSW uint32 = 1 << 6
	WallW  uint32 = 1 << 7

	Object uint32 = 1 << 8

	WallProjNW uint32 = 1 << 9
	WallProjN  uint32 = 1 << 10
	WallProjNE uint32 = 1 << 11
	WallProjE  uint32 = 1 << 12
	WallProjSE uint32 = 1 << 13
	WallProjS  uint32 = 1 << 14
	WallProjSW uint32 = 1 << 15
	WallProjW  uint32 = 1 << 16

	ObjectProj      uint32 = 1 << 17
	FloorDecoration uint32 = 1 << 18
	NpcOccupied     uint32 = 1 << 19
	PlayerOccupied  uint32 = 1 << 20
	FloorBlocked    uint32 = 1 << 21
	Roof            uint32 = 1 << 22

	AllWalls = WallNW | WallN | WallNE | WallE | WallSE | WallS | WallSW | WallW

	// WalkBlocked composes every bit that stops a ground step.
	WalkBlocked = FloorBlocked | FloorDecoration | Object | AllWalls
)

// mapsquareTiles is the side length of one collision map square.
const mapsquareTiles = 64

// levelKey addresses one height plane of one mapsquare.
type levelKey struct {
	fx, fz int32
	height uint8
}

// CollisionGrid is the per-level tile flag store. Planes are allocated on
// first touch and indexed z*width+x within their mapsquare.
type CollisionGrid struct {
	levels map[levelKey]*collisionLevel
}

type collisionLevel struct {
	flags [mapsquareTiles * mapsquareTiles]uint32
}

// NewCollisionGrid creates an empty grid.
func NewCollisionGrid() *CollisionGrid {
	return &CollisionGrid{levels: make(map[levelKey]*collisionLevel)}
}

func (g *CollisionGrid) level(height uint8, x, z int32, create bool) (*collisionLevel, int) {
	key := levelKey{fx: model.Mapsquare(x), fz: model.Mapsquare(z), height: height}
	lv := g.levels[key]
	if lv == nil {
		if !create {
			return nil, 0
		}
		lv = &collisionLevel{}
		g.levels[key] = lv
	}
	lx := x & (mapsquareTiles - 1)
	lz := z & (mapsquareTiles - 1)
	return lv, int(lz*mapsquareTiles + lx)
}

// Flags returns the flag word for a tile (0 for untouched planes).
func (g *CollisionGrid) Flags(height uint8, x, z int32) uint32 {
	lv, idx := g.level(height, x, z, false)
	if lv == nil {
		return 0
	}
	return lv.flags[idx]
}

// AddFlag ORs flags into a tile.
func (g *CollisionGrid) AddFlag(height uint8, x, z int32, flags uint32) {
	lv, idx := g.level(height, x, z, true)
	lv.flags[idx] |= flags
}

// RemoveFlag ANDs the complement of flags out of a tile.
func (g *CollisionGrid) RemoveFlag(height uint8, x, z int32, flags uint32) {
	lv, idx := g.level(height, x, z, false)
	if lv == nil {
		return
	}
	lv.flags[idx] &^= flags
}

// wallBits maps a 3-bit direction to its wall flag and projectile twin.
var wallBits = [8][2]uint32{
	{WallNW, WallProjNW},
	{WallN, WallProjN},
	{WallNE, WallProjNE},
	{WallW, WallProjW},
	{WallE, WallProjE},
	{WallSW, WallProjSW},
	{WallS, WallProjS},
	{WallSE, WallProjSE},
}

// AddWall sets the directional wall bit for a rotation, plus the projectile
// twin when the wall blocks projectiles.
func (g *CollisionGrid) AddWall(height uint8, x, z int32, dir int8, blocksProjectiles bool) {
	flags := wallBits[dir][0]
	if blocksProjectiles {
		flags |= wallBits[dir][1]
	}
	g.AddFlag(height, x, z, flags)
}

// RemoveWall clears the directional wall bit and its projectile twin.
func (g *CollisionGrid) RemoveWall(height uint8, x, z int32, dir int8) {
	g.RemoveFlag(height, x, z, wallBits[dir][0]|wallBits[dir][1])
}

// AddObject sets Object across a footprint, plus ObjectProj when the object
// blocks projectiles.
func (g *CollisionGrid) AddObject(height uint8, x, z, sizeX, sizeZ int32, blocksProjectiles bool) {
	flags := Object
	if blocksProjectiles {
		flags |= ObjectProj
	}
	for dx := int32(0); dx < sizeX; dx++ {
		for dz := int32(0); dz < sizeZ; dz++ {
			g.AddFlag(height, x+dx, z+dz, flags)
		}
	}
}

// RemoveObject clears Object and ObjectProj across a footprint.
func (g *CollisionGrid) RemoveObject(height uint8, x, z, sizeX, sizeZ int32) {
	for dx := int32(0); dx < sizeX; dx++ {
		for dz := int32(0); dz < sizeZ; dz++ {
			g.RemoveFlag(height, x+dx, z+dz, Object|ObjectProj)
		}
	}
}

// Walkable reports whether a single step onto (x, z) is allowed under the
// given restriction mask (e.g. Roof for outdoor-only movement) in addition
// to WalkBlocked. Restriction bits must be clear on the tile; the mask cannot
// require a bit to be set.
func (g *CollisionGrid) Walkable(height uint8, x, z int32, restriction uint32) bool {
	return g.Flags(height, x, z)&(WalkBlocked|restriction) == 0
}

// projExit maps a step direction to the projectile bits that block leaving
// the current tile, projEnter to the bits that block entering the next.
var projExit = map[[2]int32]uint32{
	{0, 1}:   WallProjN,
	{0, -1}:  WallProjS,
	{1, 0}:   WallProjE,
	{-1, 0}:  WallProjW,
	{1, 1}:   WallProjNE | WallProjN | WallProjE,
	{-1, 1}:  WallProjNW | WallProjN | WallProjW,
	{1, -1}:  WallProjSE | WallProjS | WallProjE,
	{-1, -1}: WallProjSW | WallProjS | WallProjW,
}

var projEnter = map[[2]int32]uint32{
	{0, 1}:   WallProjS,
	{0, -1}:  WallProjN,
	{1, 0}:   WallProjW,
	{-1, 0}:  WallProjE,
	{1, 1}:   WallProjSW | WallProjS | WallProjW,
	{-1, 1}:  WallProjSE | WallProjS | WallProjE,
	{1, -1}:  WallProjNW | WallProjN | WallProjW,
	{-1, -1}: WallProjNE | WallProjN | WallProjE,
}

// LineOfSight ray-casts from (x0, z0) to (x1, z1) on one height plane,
// stepping tile by tile along the Bresenham line between them and rejecting
// any crossing whose projectile-blocker bits intersect the crossing direction.
func (g *CollisionGrid) LineOfSight(height uint8, x0, z0, x1, z1 int32) bool {
	adx, adz := (x1-x0)*step(x1-x0), (z1-z0)*step(z1-z0)
	e := adx - adz
	x, z := x0, z0
	for x != x1 || z != z1 {
		var dx, dz int32
		e2 := 2 * e
		if e2 > -adz {
			e -= adz
			dx = step(x1 - x0)
		}
		if e2 < adx {
			e += adx
			dz = step(z1 - z0)
		}

		if g.Flags(height, x, z)&projExit[[2]int32{dx, dz}] != 0 {
			return false
		}
		x += dx
		z += dz
		if g.Flags(height, x, z)&(projEnter[[2]int32{dx, dz}]|ObjectProj) != 0 {
			return false
		}
	}
	return true
}

func step(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
