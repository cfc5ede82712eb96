package serverpackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

func TestIfSetTab(t *testing.T) {
	pkt := IfSetTab{Interface: 3917, Tab: 1}
	data := pkt.Write(nil)

	assert.Equal(t, []byte{protocol.OpIfSetTab, 0x0F, 0x4D, 1}, data)
}

func TestMessageGameFraming(t *testing.T) {
	pkt := MessageGame{Message: "Welcome to RuneScape."}
	data := pkt.Write(nil)

	assert.Equal(t, uint8(protocol.OpMessageGame), data[0])
	assert.Equal(t, byte(len("Welcome to RuneScape.")+1), data[1])
	assert.Equal(t, byte(0x0A), data[len(data)-1])
}

func TestUpdateStat(t *testing.T) {
	pkt := UpdateStat{Skill: 3, Experience: 1154, Level: 10}
	data := pkt.Write(nil)

	require.Len(t, data, 7)
	assert.Equal(t, uint8(protocol.OpUpdateStat), data[0])
	assert.Equal(t, byte(3), data[1])
	assert.Equal(t, byte(10), data[6])
	r := protocol.Wrap(data[2:6])
	xp, err := r.ReadU32BE()
	require.NoError(t, err)
	assert.Equal(t, uint32(1154), xp)
}

func TestUpdateRunEnergyScalesToPercent(t *testing.T) {
	data := (&UpdateRunEnergy{Energy: 9950}).Write(nil)
	assert.Equal(t, []byte{protocol.OpUpdateRunEnergy, 99}, data)
}

func TestOpcodeMaskedByCipher(t *testing.T) {
	cipher := crypto.NewIsaac([4]uint32{51, 52, 53, 54})
	mirror := crypto.NewIsaac([4]uint32{51, 52, 53, 54})

	data := (&CamReset{}).Write(cipher)
	require.Len(t, data, 1)
	assert.Equal(t, uint8(protocol.OpCamReset), byte(uint32(data[0])-mirror.Next()))
}

func TestUpdateInvFullLargeStack(t *testing.T) {
	pkt := UpdateInvFull{
		Interface: 3214,
		Items: []InvItem{
			{ID: 995, Count: 1000000},
			{ID: 1038, Count: 1},
		},
	}
	data := pkt.Write(nil)

	r := protocol.Wrap(data)
	op, _ := r.ReadU8()
	assert.Equal(t, uint8(protocol.OpUpdateInvFull), op)
	length, _ := r.ReadU16BE()
	assert.Equal(t, r.Remaining(), int(length))

	iface, _ := r.ReadU16BE()
	assert.Equal(t, uint16(3214), iface)
	count, _ := r.ReadU8()
	assert.Equal(t, uint8(2), count)

	id, _ := r.ReadU16BE()
	assert.Equal(t, uint16(995), id)
	escape, _ := r.ReadU8()
	require.Equal(t, uint8(255), escape)
	big, _ := r.ReadU32BE()
	assert.Equal(t, uint32(1000000), big)

	id, _ = r.ReadU16BE()
	assert.Equal(t, uint16(1038), id)
	small, _ := r.ReadU8()
	assert.Equal(t, uint8(1), small)
	assert.Equal(t, 0, r.Remaining())
}
