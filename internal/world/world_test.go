package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaglusch/rs225go/internal/model"
)

func TestRegisterAssignsFirstFreeSlot(t *testing.T) {
	w := New(8)

	a := model.NewPlayer(0, "alice")
	a.Seat(model.NewPosition(0, 3222, 3222))
	require.NoError(t, w.Register(a))
	assert.Equal(t, uint16(1), a.Index, "slot 0 is reserved")

	b := model.NewPlayer(0, "bob")
	b.Seat(model.NewPosition(0, 3223, 3222))
	require.NoError(t, w.Register(b))
	assert.Equal(t, uint16(2), b.Index)

	w.Unregister(a.Index)
	c := model.NewPlayer(0, "carol")
	c.Seat(model.NewPosition(0, 3224, 3222))
	require.NoError(t, w.Register(c))
	assert.Equal(t, uint16(1), c.Index, "freed slot reused first")
}

func TestRegisterRejectsWhenFull(t *testing.T) {
	w := New(3) // slots 1 and 2 seatable
	require.NoError(t, w.Register(model.NewPlayer(0, "a")))
	require.NoError(t, w.Register(model.NewPlayer(0, "b")))
	assert.ErrorIs(t, w.Register(model.NewPlayer(0, "c")), ErrWorldFull)
}

func TestPlayerByName(t *testing.T) {
	w := New(8)
	p := model.NewPlayer(0, "Zezima")
	require.NoError(t, w.Register(p))

	assert.Same(t, p, w.PlayerByName("zezima"))
	assert.Same(t, p, w.PlayerByName("ZEZIMA"))
	assert.Nil(t, w.PlayerByName("nobody"))

	w.Unregister(p.Index)
	assert.Nil(t, w.PlayerByName("zezima"))
}

func TestOccupancyBitsFollowPlayer(t *testing.T) {
	w := New(8)
	pos := model.NewPosition(0, 3200, 3200)
	p := model.NewPlayer(0, "alice")
	p.Seat(pos)
	require.NoError(t, w.Register(p))
	assert.NotZero(t, w.Collision.Flags(0, 3200, 3200)&PlayerOccupied)

	w.MovePlayer(p, model.NewPosition(0, 3201, 3200))
	assert.Zero(t, w.Collision.Flags(0, 3200, 3200)&PlayerOccupied)
	assert.NotZero(t, w.Collision.Flags(0, 3201, 3200)&PlayerOccupied)

	w.Unregister(p.Index)
	assert.Zero(t, w.Collision.Flags(0, 3201, 3200)&PlayerOccupied)
}

func TestPlayersSnapshotSkipsFreeSlots(t *testing.T) {
	w := New(8)
	require.NoError(t, w.Register(model.NewPlayer(0, "a")))
	require.NoError(t, w.Register(model.NewPlayer(0, "b")))
	require.NoError(t, w.Register(model.NewPlayer(0, "c")))
	w.Unregister(2)

	snap := w.Players()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Name)
	assert.Equal(t, "c", snap[1].Name)
	assert.Equal(t, 2, w.PlayerCount())
}

func TestNpcPool(t *testing.T) {
	w := New(4)
	def := &model.NpcDefinition{ID: 41, Name: "Goblin", Hitpoints: 5}
	spawn := model.NewPosition(0, 3250, 3250)

	n, err := w.AddNpc(def, spawn)
	require.NoError(t, err)
	assert.True(t, n.Active)
	assert.NotZero(t, w.Collision.Flags(0, 3250, 3250)&NpcOccupied)
	assert.Same(t, def, n.Definition)

	w.MoveNpc(n, model.NewPosition(0, 3251, 3250))
	assert.Zero(t, w.Collision.Flags(0, 3250, 3250)&NpcOccupied)
	assert.NotZero(t, w.Collision.Flags(0, 3251, 3250)&NpcOccupied)
}
