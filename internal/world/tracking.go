package world

// MaxTracked bounds the per-observer known-peer list: the player-info frame
// addresses existing peers by position in an 8-bit count.
const MaxTracked = 255

// Tracking is the per-observer differential state driving player-info
// frames: the ordered list of currently-known peer slots, a bitmap mirror
// for O(1) membership, and the appearance hash last sent per peer.
//
// One arena slot exists per player slot; it is never freed while its
// observer is seated and is reset on seating and un-seating.
type Tracking struct {
	local  []uint16
	bitmap []uint64
	hashes []uint32
}

// NewTracking creates a tracking arena for a pool of the given capacity.
func NewTracking(capacity int) *Tracking {
	return &Tracking{
		local:  make([]uint16, 0, MaxTracked),
		bitmap: make([]uint64, (capacity+63)/64),
		hashes: make([]uint32, capacity),
	}
}

// Reset zeroes the arena for reuse by a new observer.
func (t *Tracking) Reset() {
	t.local = t.local[:0]
	clear(t.bitmap)
	clear(t.hashes)
}

// Contains reports whether peer slot i is currently known.
func (t *Tracking) Contains(i uint16) bool {
	return t.bitmap[i>>6]&(1<<(i&63)) != 0
}

// Len returns the known-peer count.
func (t *Tracking) Len() int { return len(t.local) }

// List returns the known peers in insertion order. The slice aliases the
// arena; callers must not retain it across frames.
func (t *Tracking) List() []uint16 { return t.local }

// Add appends a newly sighted peer with the appearance hash just sent.
// Adding an already-known or over-capacity peer is a programmer error.
func (t *Tracking) Add(i uint16, appearanceHash uint32) {
	if t.Contains(i) {
		panic("world: tracking peer added twice")
	}
	if len(t.local) >= MaxTracked {
		panic("world: tracking list overflow")
	}
	t.local = append(t.local, i)
	t.bitmap[i>>6] |= 1 << (i & 63)
	t.hashes[i] = appearanceHash
}

// Remove discards a known peer, preserving insertion order of the rest.
func (t *Tracking) Remove(i uint16) {
	if !t.Contains(i) {
		return
	}
	t.bitmap[i>>6] &^= 1 << (i & 63)
	for k, v := range t.local {
		if v == i {
			t.local = append(t.local[:k], t.local[k+1:]...)
			return
		}
	}
}

// AppearanceHash returns the appearance hash last sent for peer i.
func (t *Tracking) AppearanceHash(i uint16) uint32 { return t.hashes[i] }

// SetAppearanceHash records the appearance hash sent for peer i.
func (t *Tracking) SetAppearanceHash(i uint16, h uint32) { t.hashes[i] = h }
