// Package clientpackets parses the payloads of handled client-to-server
// packets. Framing and opcode demasking happen in the codec; parsers only
// see the bounded payload slice.
package clientpackets

import (
	"fmt"

	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

// MoveClick is a walk request from a game-world or minimap click: a run
// toggle and any number of absolute waypoints; the parser imposes no cap.
type MoveClick struct {
	Run       bool
	Waypoints [][2]int32
}

// ParseMoveClick decodes a movement click payload: run flag byte followed
// by (x u16 BE, z u16 BE) pairs.
func ParseMoveClick(data []byte) (MoveClick, error) {
	r := protocol.Wrap(data)
	runFlag, err := r.ReadU8()
	if err != nil {
		return MoveClick{}, fmt.Errorf("parsing move click: %w", err)
	}
	mc := MoveClick{Run: runFlag == 1}
	for r.Remaining() >= 4 {
		x, err := r.ReadU16BE()
		if err != nil {
			return MoveClick{}, fmt.Errorf("parsing move click waypoint: %w", err)
		}
		z, err := r.ReadU16BE()
		if err != nil {
			return MoveClick{}, fmt.Errorf("parsing move click waypoint: %w", err)
		}
		mc.Waypoints = append(mc.Waypoints, [2]int32{int32(x), int32(z)})
	}
	if r.Remaining() != 0 {
		return MoveClick{}, fmt.Errorf("move click payload has %d trailing bytes", r.Remaining())
	}
	if len(mc.Waypoints) == 0 {
		return MoveClick{}, fmt.Errorf("move click without waypoints")
	}
	return mc, nil
}

// MapFile is one requested map file: type 0 land, 1 loc.
type MapFile struct {
	Type uint8
	FX   int32
	FZ   int32
}

// ParseMapRequest decodes a sequence of 3-byte (type, fx, fz) records.
func ParseMapRequest(data []byte) ([]MapFile, error) {
	if len(data)%3 != 0 {
		return nil, fmt.Errorf("map request length %d not a multiple of 3", len(data))
	}
	files := make([]MapFile, 0, len(data)/3)
	for i := 0; i < len(data); i += 3 {
		if data[i] > 1 {
			return nil, fmt.Errorf("map request with unknown file type %d", data[i])
		}
		files = append(files, MapFile{
			Type: data[i],
			FX:   int32(data[i+1]),
			FZ:   int32(data[i+2]),
		})
	}
	return files, nil
}

// PublicChat is a public chat message.
type PublicChat struct {
	Colour byte
	Effect byte
	Text   string
}

// ParsePublicChat decodes colour, effect and the newline-terminated text.
func ParsePublicChat(data []byte) (PublicChat, error) {
	r := protocol.Wrap(data)
	colour, err := r.ReadU8()
	if err != nil {
		return PublicChat{}, fmt.Errorf("parsing public chat: %w", err)
	}
	effect, err := r.ReadU8()
	if err != nil {
		return PublicChat{}, fmt.Errorf("parsing public chat: %w", err)
	}
	text, err := r.ReadStringNL(80)
	if err != nil {
		return PublicChat{}, fmt.Errorf("parsing public chat text: %w", err)
	}
	return PublicChat{Colour: colour, Effect: effect, Text: text}, nil
}

// ParseCheat decodes a client cheat (::command) payload.
func ParseCheat(data []byte) (string, error) {
	r := protocol.Wrap(data)
	text, err := r.ReadStringNL(80)
	if err != nil {
		return "", fmt.Errorf("parsing cheat: %w", err)
	}
	return text, nil
}
