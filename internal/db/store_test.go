package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaglusch/rs225go/internal/model"
)

func TestMemoryStoreAutoCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	st, err := store.Authenticate(ctx, "Zezima", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, DefaultSpawn, st.Position)
	assert.Equal(t, int32(model.MaxRunEnergy), st.RunEnergy)
	assert.Equal(t, uint8(10), st.Skills[model.SkillHitpoints].Level)

	// Same credentials load again; username is case-insensitive.
	_, err = store.Authenticate(ctx, "zezima", "hunter2")
	require.NoError(t, err)

	// Wrong password is rejected once the account exists.
	_, err = store.Authenticate(ctx, "zezima", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestMemoryStoreSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Authenticate(ctx, "alice", "pw")
	require.NoError(t, err)

	p := model.NewPlayer(1, "alice")
	p.Pos = model.NewPosition(1, 3300, 3100)
	p.Queue.SetEnergy(4200)
	p.Skills[0] = model.Skill{Level: 40, BaseLevel: 40, Experience: 37224}
	require.NoError(t, store.Save(ctx, p))

	st, err := store.Authenticate(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, p.Pos, st.Position)
	assert.Equal(t, int32(4200), st.RunEnergy)
	assert.Equal(t, int32(37224), st.Skills[0].Experience)
	assert.False(t, st.LastLogin.IsZero())
}

func TestApply(t *testing.T) {
	st := NewState("bob")
	st.Position = model.NewPosition(2, 3000, 3000)
	st.RunEnergy = 1234
	st.Skills[6] = model.Skill{Level: 55, BaseLevel: 55, Experience: 166636}

	p := model.NewPlayer(3, "bob")
	st.Apply(p)

	assert.Equal(t, st.Position, p.Pos)
	assert.Equal(t, st.Position, p.Origin)
	assert.Equal(t, int32(1234), p.Queue.Energy())
	assert.Equal(t, uint8(55), p.Skills[6].Level)
}

func TestSaveUnknownAccountIsNoop(t *testing.T) {
	store := NewMemoryStore()
	p := model.NewPlayer(1, "ghost")
	assert.NoError(t, store.Save(context.Background(), p))
}
