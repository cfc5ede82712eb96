package gameserver

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaglusch/rs225go/internal/config"
	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/db"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

// TestServerEndToEnd drives a real TCP login: seeds, header, OK response,
// the initial volley, then logout and connection close.
func TestServerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Defaults()
	cfg.MaxPlayers = 8
	cfg.TickInterval = "20ms"
	cfg.DataDir = t.TempDir()

	game := NewGame(cfg, db.NewMemoryStore(), nil)
	server := NewServer(game)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = server.Serve(ctx, ln) }()
	go func() { _ = game.Run(ctx) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	// Stage 1: two raw seed words.
	seeds := make([]byte, 8)
	_, err = io.ReadFull(conn, seeds)
	require.NoError(t, err)

	// Stage 2: login block.
	_, err = conn.Write(buildLoginBlock(protocol.LoginTypeFresh, protocol.ClientVersion,
		[4]uint32{1, 2, 3, 4}, "zezima", "hunter2"))
	require.NoError(t, err)

	response := make([]byte, 1)
	_, err = io.ReadFull(conn, response)
	require.NoError(t, err)
	assert.Equal(t, uint8(protocol.LoginOK), response[0])

	// Drain the initial volley and a few tick frames.
	drained := make([]byte, 4096)
	total := 0
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err := conn.Read(drained)
		total += n
		if err != nil {
			break
		}
	}
	assert.Greater(t, total, 50, "initial volley and tick frames arrived")

	// Logout, masked with the client's outbound cipher.
	outCipher := crypto.NewIsaac([4]uint32{1, 2, 3, 4})
	_, err = conn.Write([]byte{uint8(uint32(protocol.ClientLogout) + outCipher.Next())})
	require.NoError(t, err)

	// The server answers with the logout packet and closes.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	closed := false
	for {
		if _, err := conn.Read(drained); err != nil {
			closed = err == io.EOF || !errIsTimeout(err)
			break
		}
	}
	assert.True(t, closed, "server closed the connection after logout")
}

func errIsTimeout(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}

// TestServerRejectsWhenAtCapacity closes over-capacity sockets without a
// reply.
func TestServerRejectsWhenAtCapacity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Defaults()
	cfg.MaxPlayers = 1
	cfg.TickInterval = "20ms"
	cfg.DataDir = t.TempDir()

	game := NewGame(cfg, db.NewMemoryStore(), nil)
	server := NewServer(game)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ctx, ln) }()
	go func() { _ = game.Run(ctx) }()

	first, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer first.Close()

	// First connection gets its seed frame.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	seeds := make([]byte, 8)
	_, err = io.ReadFull(first, seeds)
	require.NoError(t, err)

	second, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	// Second connection sees close with no bytes.
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 8)
	n, err := second.Read(buf)
	assert.Zero(t, n)
	assert.Error(t, err)
}
