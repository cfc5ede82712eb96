package gameserver

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/andrewpaglusch/rs225go/internal/gameserver/clientpackets"
	"github.com/andrewpaglusch/rs225go/internal/gameserver/serverpackets"
	"github.com/andrewpaglusch/rs225go/internal/metrics"
	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
	"github.com/andrewpaglusch/rs225go/internal/world"
)

// errLogout is the handler-elected teardown: the logout packet has been
// queued and the connection drains once.
var errLogout = errors.New("gameserver: player logged out")

type handlerFunc func(g *Game, c *Client, payload []byte) error

// handlers dispatches demasked opcodes. Opcodes absent here disconnect the
// sender: guessing a payload shape for an unknown opcode is worse than
// dropping the connection.
var handlers = map[uint8]handlerFunc{
	protocol.ClientIdleNoTimeout:    handleIdle,
	protocol.ClientCloseModal:       handleCloseModal,
	protocol.ClientMoveGameClick:    handleMoveClick,
	protocol.ClientMoveMinimapClick: handleMoveClick,
	protocol.ClientMapRequest:       handleMapRequest,
	protocol.ClientMessagePublic:    handlePublicChat,
	protocol.ClientCheat:            handleCheat,
	protocol.ClientLogout:           handleLogout,
}

// parseLoop drains complete packets from the reservoir. A partial packet
// stops the loop without losing cipher lock-step: the opcode's keystream
// word is consumed exactly once and the demasked opcode parked on the
// client until the rest of the packet arrives.
func (g *Game) parseLoop(c *Client) error {
	for {
		buf := c.Inbound()

		if c.pendingOp == nil {
			if len(buf) < 1 {
				return nil
			}
			op := buf[0]
			if c.InCipher != nil {
				op = uint8(uint32(op) - c.InCipher.Next())
			}
			c.pendingOp = &op
			c.Consume(1)
			buf = buf[1:]
		}
		op := *c.pendingOp

		handler, known := handlers[op]
		if !known {
			return fmt.Errorf("unknown client opcode %d", op)
		}

		length := protocol.ClientPayloadLength(op)
		headerLen := 0
		switch length {
		case protocol.LenVarByte:
			if len(buf) < 1 {
				return nil
			}
			length = int(buf[0])
			headerLen = 1
		case protocol.LenVarShort:
			if len(buf) < 2 {
				return nil
			}
			length = int(buf[0])<<8 | int(buf[1])
			headerLen = 2
		}

		if len(buf) < headerLen+length {
			return nil
		}

		payload := buf[headerLen : headerLen+length]
		if err := handler(g, c, payload); err != nil {
			return err
		}
		c.Consume(headerLen + length)
		c.pendingOp = nil
		metrics.PacketsIn.Inc()
	}
}

func handleIdle(*Game, *Client, []byte) error { return nil }

// handleCloseModal confirms the dismissal of the open modal (the welcome
// screen after seating) by closing it server-side.
func handleCloseModal(_ *Game, c *Client, _ []byte) error {
	pkt := serverpackets.IfClose{}
	c.Send(pkt.Write(c.OutCipher))
	return nil
}

func handleMoveClick(g *Game, c *Client, payload []byte) error {
	mc, err := clientpackets.ParseMoveClick(payload)
	if err != nil {
		return err
	}

	p := c.Player
	target := mc.Waypoints[len(mc.Waypoints)-1]
	if !g.world.Collision.Walkable(p.Pos.Height, target[0], target[1], 0) {
		// Nothing to do; the click landed on a blocked tile.
		return nil
	}

	p.Queue.Clear()
	p.Queue.SetRunPath(mc.Run)
	for _, wp := range mc.Waypoints {
		p.Queue.Enqueue(p.Pos.Height, wp[0], wp[1])
	}
	return nil
}

func handleMapRequest(g *Game, c *Client, payload []byte) error {
	files, err := clientpackets.ParseMapRequest(payload)
	if err != nil {
		return err
	}

	for _, f := range files {
		for _, chunk := range g.maps.Chunks(int(f.Type), f.FX, f.FZ) {
			pkt := serverpackets.DataChunk{FileType: int(f.Type), FX: f.FX, FZ: f.FZ, Chunk: chunk}
			c.Send(pkt.Write(c.OutCipher))
		}
		// Missing files still get their end marker.
		done := serverpackets.DataDone{FileType: int(f.Type), FX: f.FX, FZ: f.FZ}
		c.Send(done.Write(c.OutCipher))
	}
	return nil
}

func handlePublicChat(_ *Game, c *Client, payload []byte) error {
	chat, err := clientpackets.ParsePublicChat(payload)
	if err != nil {
		return err
	}
	c.Player.Chat = model.PublicChat{Colour: chat.Colour, Effect: chat.Effect, Text: chat.Text}
	c.Player.UpdateFlags |= model.FlagChat
	return nil
}

func handleLogout(_ *Game, c *Client, _ []byte) error {
	pkt := serverpackets.Logout{}
	c.Send(pkt.Write(c.OutCipher))
	return errLogout
}

func handleCheat(g *Game, c *Client, payload []byte) error {
	cmd, err := clientpackets.ParseCheat(payload)
	if err != nil {
		return err
	}

	fields := strings.Fields(strings.ToLower(cmd))
	if len(fields) == 0 {
		return nil
	}
	p := c.Player

	switch fields[0] {
	case "pos":
		msg := serverpackets.MessageGame{
			Message: fmt.Sprintf("Pos: %d %d height %d zone %d %d",
				p.Pos.X, p.Pos.Z, p.Pos.Height,
				model.Zone(p.Pos.X), model.Zone(p.Pos.Z)),
		}
		c.Send(msg.Write(c.OutCipher))
	case "tele":
		if len(fields) != 3 {
			return nil
		}
		x, errX := strconv.Atoi(fields[1])
		z, errZ := strconv.Atoi(fields[2])
		if errX != nil || errZ != nil || x < 0 || x > 16383 || z < 0 || z > 16383 {
			return nil
		}
		g.teleport(c, model.NewPosition(p.Pos.Height, int32(x), int32(z)))
	case "run":
		p.Queue.SetRunPath(!p.Queue.RunPath())
		pkt := serverpackets.UpdateRunMode{Running: p.Queue.Running()}
		c.Send(pkt.Write(c.OutCipher))
	case "varp":
		if len(fields) != 3 {
			return nil
		}
		id, errID := strconv.Atoi(fields[1])
		value, errValue := strconv.Atoi(fields[2])
		if errID != nil || errValue != nil || id < 0 || id > 0xFFFF || value < 0 {
			return nil
		}
		if value <= 0xFF {
			pkt := serverpackets.VarpSmall{ID: uint16(id), Value: uint8(value)}
			c.Send(pkt.Write(c.OutCipher))
		} else {
			pkt := serverpackets.VarpLarge{ID: uint16(id), Value: uint32(value)}
			c.Send(pkt.Write(c.OutCipher))
		}
	case "logout":
		return handleLogout(g, c, nil)
	default:
		slog.Debug("unknown cheat", "cmd", cmd, "player", p.Name)
	}
	return nil
}

// teleport force-moves a player, replaying the placement boot state and a
// region rebuild when the window moved.
func (g *Game) teleport(c *Client, dest model.Position) {
	p := c.Player
	g.world.Collision.RemoveFlag(p.Pos.Height, p.Pos.X, p.Pos.Z, world.PlayerOccupied)
	rebuildNeeded := dest.ZoneChanged(p.Origin)
	p.Teleport(dest)
	g.world.Collision.AddFlag(dest.Height, dest.X, dest.Z, world.PlayerOccupied)

	if rebuildNeeded {
		pkt := serverpackets.RebuildNormal{Pos: dest, Maps: g.maps}
		c.Send(pkt.Write(c.OutCipher))
	}
}
