package model

import "log/slog"

const (
	// MaxWaypoints bounds the per-entity waypoint FIFO.
	MaxWaypoints = 25

	// MaxRunEnergy is full run energy in centi-percent.
	MaxRunEnergy = 10000

	// maxWaypointCoord rejects waypoints outside the walkable world.
	maxWaypointCoord = 12800
)

// MovementQueue is a bounded FIFO of packed waypoints for one entity.
// Waypoints are multi-tile targets: a head waypoint is dequeued only on the
// step that enters its tile, so a single distant waypoint yields the naive
// diagonal-then-axis walk.
type MovementQueue struct {
	waypoints []uint32
	runPath   bool
	energy    int32
}

// NewMovementQueue creates an empty queue with full run energy.
func NewMovementQueue() *MovementQueue {
	return &MovementQueue{
		waypoints: make([]uint32, 0, MaxWaypoints),
		energy:    MaxRunEnergy,
	}
}

// Enqueue appends a waypoint. A full queue or an out-of-world coordinate is
// reported and dropped, never an error.
func (q *MovementQueue) Enqueue(height uint8, x, z int32) {
	if len(q.waypoints) >= MaxWaypoints {
		slog.Warn("movement queue full, waypoint dropped", "x", x, "z", z)
		return
	}
	if x > maxWaypointCoord || z > maxWaypointCoord {
		slog.Warn("waypoint out of range, dropped", "x", x, "z", z)
		return
	}
	q.waypoints = append(q.waypoints, PackCoord(height, x, z))
}

// Clear discards all waypoints.
func (q *MovementQueue) Clear() {
	q.waypoints = q.waypoints[:0]
}

// Len returns the number of queued waypoints.
func (q *MovementQueue) Len() int { return len(q.waypoints) }

// SetRunPath sets the client-requested run preference.
func (q *MovementQueue) SetRunPath(run bool) { q.runPath = run }

// RunPath returns the client-requested run preference.
func (q *MovementQueue) RunPath() bool { return q.runPath }

// Running returns the effective running state: run requested and energy
// remaining.
func (q *MovementQueue) Running() bool { return q.runPath && q.energy > 0 }

// Energy returns run energy in centi-percent [0, 10000].
func (q *MovementQueue) Energy() int32 { return q.energy }

// SetEnergy clamps and sets run energy.
func (q *MovementQueue) SetEnergy(v int32) {
	q.energy = min(max(v, 0), MaxRunEnergy)
}

// Restore adds run energy up to the cap. The world tick calls it for idle
// (non-moving) entities only; walking ticks neither drain nor restore.
func (q *MovementQueue) Restore(delta int32) {
	q.SetEnergy(q.energy + delta)
}

// NextDirection derives the next single-tile step toward the head waypoint
// from (x, z), popping the head exactly when its tile is entered. Returns -1
// when there is nowhere to go.
func (q *MovementQueue) NextDirection(x, z int32) int8 {
	if len(q.waypoints) == 0 {
		return -1
	}

	_, wx, wz := UnpackCoord(q.waypoints[0])
	stepDX := sign(wx - x)
	stepDZ := sign(wz - z)

	dir := EncodeDirection(stepDX, stepDZ)
	if dir == -1 {
		// Already standing on the head waypoint.
		q.waypoints = q.waypoints[1:]
		if len(q.waypoints) == 0 {
			return -1
		}
		return q.NextDirection(x, z)
	}

	if x+stepDX == wx && z+stepDZ == wz {
		q.waypoints = q.waypoints[1:]
	}
	return dir
}

// Step runs one tick of movement from (x, z): a primary step, and when
// running a secondary step from the intermediate tile. One unit of run
// energy drains per moving running tick. Returns the directions taken (-1
// for none) and the resulting position.
func (q *MovementQueue) Step(x, z int32) (primary, secondary int8, nx, nz int32) {
	nx, nz = x, z

	primary = q.NextDirection(nx, nz)
	secondary = -1
	if primary == -1 {
		return
	}
	dx, dz := DirectionDelta(primary)
	nx += dx
	nz += dz

	if !q.Running() {
		return
	}
	q.energy--

	secondary = q.NextDirection(nx, nz)
	if secondary != -1 {
		dx, dz = DirectionDelta(secondary)
		nx += dx
		nz += dz
	}
	return
}
