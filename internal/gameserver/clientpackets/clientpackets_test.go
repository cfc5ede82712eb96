package clientpackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoveClick(t *testing.T) {
	payload := []byte{
		1,          // run
		0x0C, 0xA1, // x = 3233
		0x0C, 0xA0, // z = 3232
		0x0C, 0xA5,
		0x0C, 0xA0,
	}
	mc, err := ParseMoveClick(payload)
	require.NoError(t, err)
	assert.True(t, mc.Run)
	assert.Equal(t, [][2]int32{{3233, 3232}, {3237, 3232}}, mc.Waypoints)
}

func TestParseMoveClickRejects(t *testing.T) {
	_, err := ParseMoveClick(nil)
	assert.Error(t, err, "empty payload")

	_, err = ParseMoveClick([]byte{0})
	assert.Error(t, err, "no waypoints")

	_, err = ParseMoveClick([]byte{0, 1, 2, 3})
	assert.Error(t, err, "truncated waypoint")
}

func TestParseMapRequest(t *testing.T) {
	files, err := ParseMapRequest([]byte{0, 50, 50, 1, 50, 50, 0, 49, 50})
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, MapFile{Type: 0, FX: 50, FZ: 50}, files[0])
	assert.Equal(t, MapFile{Type: 1, FX: 50, FZ: 50}, files[1])
	assert.Equal(t, MapFile{Type: 0, FX: 49, FZ: 50}, files[2])
}

func TestParseMapRequestRejects(t *testing.T) {
	_, err := ParseMapRequest([]byte{0, 50})
	assert.Error(t, err, "length not a multiple of 3")

	_, err = ParseMapRequest([]byte{7, 50, 50})
	assert.Error(t, err, "unknown file type")
}

func TestParsePublicChat(t *testing.T) {
	payload := append([]byte{0, 1}, []byte("hello world\n")...)
	chat, err := ParsePublicChat(payload)
	require.NoError(t, err)
	assert.Equal(t, byte(0), chat.Colour)
	assert.Equal(t, byte(1), chat.Effect)
	assert.Equal(t, "hello world", chat.Text)
}

func TestParseCheat(t *testing.T) {
	cmd, err := ParseCheat([]byte("tele 3222 3218\n"))
	require.NoError(t, err)
	assert.Equal(t, "tele 3222 3218", cmd)

	_, err = ParseCheat([]byte("unterminated"))
	assert.Error(t, err)
}
