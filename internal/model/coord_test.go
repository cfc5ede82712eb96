package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackCoordRoundTrip(t *testing.T) {
	for _, h := range []uint8{0, 1, 2, 3} {
		for _, x := range []int32{0, 1, 3222, 12800, 16383} {
			for _, z := range []int32{0, 7, 3232, 16383} {
				gh, gx, gz := UnpackCoord(PackCoord(h, x, z))
				require.Equal(t, h, gh)
				require.Equal(t, x, gx)
				require.Equal(t, z, gz)
			}
		}
	}
}

func TestEncodeDirectionTable(t *testing.T) {
	tests := []struct {
		dx, dz int32
		want   int8
	}{
		{-1, 1, 0}, {0, 1, 1}, {1, 1, 2},
		{-1, 0, 3}, {0, 0, -1}, {1, 0, 4},
		{-1, -1, 5}, {0, -1, 6}, {1, -1, 7},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, EncodeDirection(tc.dx, tc.dz), "(%d,%d)", tc.dx, tc.dz)
	}
}

func TestDirectionDeltaInverse(t *testing.T) {
	for dx := int32(-1); dx <= 1; dx++ {
		for dz := int32(-1); dz <= 1; dz++ {
			dir := EncodeDirection(dx, dz)
			if dir == -1 {
				continue
			}
			gx, gz := DirectionDelta(dir)
			assert.Equal(t, dx, gx)
			assert.Equal(t, dz, gz)
		}
	}
}

func TestViewportPredicate(t *testing.T) {
	observer := NewPosition(0, 3200, 3200)

	tests := []struct {
		dx, dz int32
		want   bool
	}{
		{0, 0, true},
		{14, 14, true},
		{-15, -15, true},
		{15, 0, false},
		{0, 15, false},
		{-16, 0, false},
		{0, -16, false},
		{14, -15, true},
	}
	for _, tc := range tests {
		p := NewPosition(0, observer.X+tc.dx, observer.Z+tc.dz)
		assert.Equal(t, tc.want, p.ViewableFrom(observer), "delta (%d,%d)", tc.dx, tc.dz)
	}

	above := NewPosition(1, observer.X, observer.Z)
	assert.False(t, above.ViewableFrom(observer), "different height plane")
}

func TestZoneTransforms(t *testing.T) {
	assert.Equal(t, int32(404), Zone(3232))
	assert.Equal(t, int32(398), ZoneCenter(3232))
	assert.Equal(t, int32(50), Mapsquare(3232))

	// Local coordinate relative to an anchor at the same tile.
	origin := NewPosition(0, 3232, 3232)
	p := NewPosition(0, 3232, 3232)
	assert.Equal(t, int32(48), p.LocalX(origin))
	assert.Equal(t, int32(48), p.LocalZ(origin))
}

func TestZoneChanged(t *testing.T) {
	origin := NewPosition(0, 3232, 3232)
	same := NewPosition(0, 3233, 3232)
	assert.False(t, same.ZoneChanged(origin))

	far := NewPosition(0, 3232+8, 3232)
	assert.True(t, far.ZoneChanged(origin))
}

func TestBase37(t *testing.T) {
	assert.Equal(t, uint64(0), Base37(""))
	assert.Equal(t, Base37("Zezima"), Base37("zezima"))
	assert.NotEqual(t, Base37("zezima"), Base37("zezimb"))
}
