package gameserver

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaglusch/rs225go/internal/config"
	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/db"
	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

// newTestGame builds a game loop with an in-memory store and no listener.
func newTestGame(t *testing.T) *Game {
	t.Helper()
	cfg := config.Defaults()
	cfg.MaxPlayers = 16
	cfg.DataDir = t.TempDir()
	g := NewGame(cfg, db.NewMemoryStore(), nil)
	g.ctx = t.Context()
	return g
}

// newTestClient wraps one end of an in-process pipe. Pumps are not started:
// tests inspect the outbound queue directly.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return NewClient(server)
}

// buildLoginBlock assembles the stage-2 header from scenario S1.
func buildLoginBlock(loginType, version uint8, seeds [4]uint32, username, password string) []byte {
	body := protocol.NewByteStream(128)
	body.WriteU8(version)
	body.WriteU8(0) // memory flag
	for range 9 {
		body.WriteU32BE(0) // cache crc
	}
	body.WriteU8(100) // rsa block length
	body.WriteU8(10)  // rsa opcode
	for _, s := range seeds {
		body.WriteU32BE(s)
	}
	body.WriteU32BE(0) // uid
	body.WriteStringNL(username)
	body.WriteStringNL(password)

	out := protocol.NewByteStream(160)
	out.WriteU8(loginType)
	out.WriteU8(uint8(body.Len()))
	out.WriteBytes(body.Bytes())
	return out.Bytes()
}

func feed(c *Client, data []byte) {
	c.inMu.Lock()
	c.inbound = append(c.inbound, data...)
	c.inMu.Unlock()
}

// takeOutbound drains the queued outbound packets.
func takeOutbound(c *Client) [][]byte {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	out := c.outbound
	c.outbound = nil
	return out
}

// TestLoginHappyPath is scenario S1 plus the S2 tab volley.
func TestLoginHappyPath(t *testing.T) {
	g := newTestGame(t)
	c := newTestClient(t)

	g.startHandshake(c)
	assert.Equal(t, StageAwaitingHeader, c.Stage)
	handshake := takeOutbound(c)
	require.Len(t, handshake, 1)
	require.Len(t, handshake[0], 8, "two raw seed words")

	feed(c, buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "zezima", "hunter2"))
	require.NoError(t, g.processLogin(c))

	assert.Equal(t, StageSeated, c.Stage)
	require.NotNil(t, c.Player)
	assert.Equal(t, "zezima", c.Player.Name)
	assert.Equal(t, db.DefaultSpawn, c.Player.Pos)
	assert.True(t, c.Player.NeedsPlacement)
	assert.NotZero(t, c.Player.LastLogin)
	assert.Same(t, c.Player, g.world.PlayerByName("zezima"))

	// In-cipher keyed on the client seeds, out-cipher on seeds + 50.
	inMirror := crypto.NewIsaac([4]uint32{1, 2, 3, 4})
	assert.Equal(t, inMirror.Next(), c.InCipher.Next())
	outMirror := crypto.NewIsaac([4]uint32{51, 52, 53, 54})

	out := takeOutbound(c)
	require.GreaterOrEqual(t, len(out), 1+len(sidebarTabs))
	assert.Equal(t, []byte{protocol.LoginOK}, out[0], "unmasked response byte")

	// S2: the thirteen sidebar tabs, in order, fixed-framed.
	wantTabs := [][2]uint16{
		{0, 5855}, {1, 3917}, {2, 638}, {3, 3213}, {4, 1644}, {5, 5608},
		{6, 1151}, {8, 5065}, {9, 5715}, {10, 2449}, {11, 904}, {12, 147},
		{13, 962},
	}
	for i, want := range wantTabs {
		pkt := out[1+i]
		require.Len(t, pkt, 4)
		op := uint8(uint32(pkt[0]) - outMirror.Next())
		assert.Equal(t, uint8(protocol.OpIfSetTab), op, "tab %d", i)
		assert.Equal(t, want[1], uint16(pkt[1])<<8|uint16(pkt[2]))
		assert.Equal(t, uint8(want[0]), pkt[3])
	}

	// The rest of the volley, in emission order: welcome line, welcome
	// screen, skills, containers, energy, run mode, camera, varp, rebuild.
	wantOps := []uint8{
		protocol.OpMessageGame, protocol.OpIfOpenTop, protocol.OpIfSetText,
		protocol.OpIfSetHide,
	}
	for range model.SkillCount {
		wantOps = append(wantOps, protocol.OpUpdateStat)
	}
	wantOps = append(wantOps,
		protocol.OpUpdateInvFull, protocol.OpUpdateInvFull,
		protocol.OpUpdateRunEnergy, protocol.OpUpdateRunMode,
		protocol.OpCamReset, protocol.OpVarpSmall, protocol.OpRebuildNormal)

	rest := out[1+len(wantTabs):]
	require.Len(t, rest, len(wantOps))
	for i, pkt := range rest {
		op := uint8(uint32(pkt[0]) - outMirror.Next())
		assert.Equal(t, wantOps[i], op, "volley packet %d", i)
	}
}

func TestLoginReconnectTypeAccepted(t *testing.T) {
	g := newTestGame(t)
	c := newTestClient(t)
	c.Stage = StageAwaitingHeader

	feed(c, buildLoginBlock(protocol.LoginTypeReconnect, protocol.ClientVersion,
		[4]uint32{9, 9, 9, 9}, "bob", "pw"))
	require.NoError(t, g.processLogin(c))
	assert.Equal(t, StageSeated, c.Stage)
}

func TestLoginWaitsForFullBlock(t *testing.T) {
	g := newTestGame(t)
	c := newTestClient(t)
	c.Stage = StageAwaitingHeader

	full := buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "zezima", "hunter2")

	// One byte at a time: never an error, never a response, until complete.
	for _, b := range full[:len(full)-1] {
		feed(c, []byte{b})
		require.NoError(t, g.processLogin(c))
		require.Equal(t, StageAwaitingHeader, c.Stage)
		require.Empty(t, takeOutbound(c))
	}
	feed(c, full[len(full)-1:])
	require.NoError(t, g.processLogin(c))
	assert.Equal(t, StageSeated, c.Stage)
}

func TestLoginRejectsBadType(t *testing.T) {
	g := newTestGame(t)
	c := newTestClient(t)
	c.Stage = StageAwaitingHeader

	feed(c, buildLoginBlock(99, protocol.ClientVersion, [4]uint32{}, "a", "b"))
	assert.Error(t, g.processLogin(c))
	assert.Empty(t, takeOutbound(c), "hard reject writes no response")
}

func TestLoginRejectsBadVersion(t *testing.T) {
	g := newTestGame(t)
	c := newTestClient(t)
	c.Stage = StageAwaitingHeader

	feed(c, buildLoginBlock(protocol.LoginTypeFresh, 224, [4]uint32{}, "a", "b"))
	assert.Error(t, g.processLogin(c))
	assert.Empty(t, takeOutbound(c))
}

func TestLoginBadPassword(t *testing.T) {
	g := newTestGame(t)

	first := newTestClient(t)
	first.Stage = StageAwaitingHeader
	feed(first, buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "alice", "correct"))
	require.NoError(t, g.processLogin(first))
	g.teardown(first, nil)

	second := newTestClient(t)
	second.Stage = StageAwaitingHeader
	feed(second, buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "alice", "wrong"))
	assert.Error(t, g.processLogin(second))

	out := takeOutbound(second)
	require.Len(t, out, 1)
	assert.Equal(t, []byte{protocol.LoginInvalid}, out[0])
}

func TestLoginAlreadyOnline(t *testing.T) {
	g := newTestGame(t)

	first := newTestClient(t)
	first.Stage = StageAwaitingHeader
	feed(first, buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "alice", "pw"))
	require.NoError(t, g.processLogin(first))

	second := newTestClient(t)
	second.Stage = StageAwaitingHeader
	feed(second, buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "alice", "pw"))
	assert.Error(t, g.processLogin(second))

	out := takeOutbound(second)
	require.Len(t, out, 1)
	assert.Equal(t, []byte{protocol.LoginOnline}, out[0])
}

func TestLoginWorldFull(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxPlayers = 2 // one seatable slot
	g := NewGame(cfg, db.NewMemoryStore(), nil)
	g.ctx = t.Context()

	first := newTestClient(t)
	first.Stage = StageAwaitingHeader
	feed(first, buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "alice", "pw"))
	require.NoError(t, g.processLogin(first))

	second := newTestClient(t)
	second.Stage = StageAwaitingHeader
	feed(second, buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "bob", "pw"))
	assert.Error(t, g.processLogin(second))

	out := takeOutbound(second)
	require.Len(t, out, 1)
	assert.Equal(t, []byte{protocol.LoginWorldFull}, out[0])
}
