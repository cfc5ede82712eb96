package protocol

// Revision-225 Protocol Constants
//
// This file pins every numeric surface of the revision-225 wire protocol:
// server-to-client opcodes with their framing mode, client-to-server opcodes
// with the payload length table, and the login handshake values. All other
// packages read these from here.

// Login handshake constants.
const (
	LoginTypeFresh     = 16 // first login
	LoginTypeReconnect = 18 // reconnect after dropped link; handled same as fresh
	ClientVersion      = 225

	// IsaacOutboundOffset is added to each client seed word to key the
	// server-to-client cipher.
	IsaacOutboundOffset = 50

	UsernameMaxLen = 12
	PasswordMaxLen = 63
)

// Login response codes (single unframed byte, server to client).
const (
	LoginOK        = 2
	LoginInvalid   = 3
	LoginOnline    = 5
	LoginOutdated  = 6
	LoginWorldFull = 7
	LoginRetry     = 11
	LoginReconnect = 15
	LoginStaff     = 18
)

// Server-to-client opcodes.
const (
	OpMessageGame     = 4
	OpDataLocDone     = 20
	OpIfSetHide       = 26
	OpUpdateStat      = 44
	OpUpdateRunMode   = 59
	OpUpdateRunEnergy = 68
	OpDataLandDone    = 80
	OpIfSetTab        = 84
	OpUpdateInvFull   = 98
	OpIfClose         = 129
	OpDataLand        = 132
	OpLogout          = 142
	OpVarpSmall       = 150
	OpIfOpenTop       = 168
	OpVarpLarge       = 175
	OpPlayerInfo      = 184
	OpIfSetText       = 201
	OpDataLoc         = 220
	OpRebuildNormal   = 237
	OpCamReset        = 239
)

// FrameKind is the fixed framing mode of a server opcode.
type FrameKind int

const (
	FrameFixed FrameKind = iota
	FrameVarByte
	FrameVarShort
)

// ServerFrameKinds maps each server opcode to its framing mode. Builders
// must not vary it.
var ServerFrameKinds = map[uint8]FrameKind{
	OpMessageGame:     FrameVarByte,
	OpDataLocDone:     FrameFixed,
	OpIfSetHide:       FrameFixed,
	OpUpdateStat:      FrameFixed,
	OpUpdateRunMode:   FrameFixed,
	OpUpdateRunEnergy: FrameFixed,
	OpDataLandDone:    FrameFixed,
	OpIfSetTab:        FrameFixed,
	OpUpdateInvFull:   FrameVarShort,
	OpIfClose:         FrameFixed,
	OpDataLand:        FrameVarShort,
	OpLogout:          FrameFixed,
	OpVarpSmall:       FrameFixed,
	OpIfOpenTop:       FrameFixed,
	OpVarpLarge:       FrameFixed,
	OpPlayerInfo:      FrameVarShort,
	OpIfSetText:       FrameVarShort,
	OpDataLoc:         FrameVarShort,
	OpRebuildNormal:   FrameVarShort,
	OpCamReset:        FrameFixed,
}

// Client-to-server opcodes the engine handles.
const (
	ClientIdleNoTimeout    = 70
	ClientCheat            = 103
	ClientMapRequest       = 130
	ClientMessagePublic    = 158
	ClientMoveMinimapClick = 165
	ClientMoveGameClick    = 181
	ClientCloseModal       = 202
	ClientLogout           = 218
)

// Payload-length indicators for the client length table.
const (
	LenVarByte  = -1 // next byte is the payload length
	LenVarShort = -2 // next two bytes (big-endian) are the payload length
)

// clientLengths is the 256-entry client packet length table: >=0 fixed
// payload size, -1 var-byte, -2 var-short. Opcodes without a registered
// handler disconnect at dispatch regardless of the length entry.
var clientLengths = [256]int{
	ClientIdleNoTimeout:    0,
	ClientCheat:            LenVarByte,
	ClientMapRequest:       LenVarByte,
	ClientMessagePublic:    LenVarByte,
	ClientMoveMinimapClick: LenVarByte,
	ClientMoveGameClick:    LenVarByte,
	ClientCloseModal:       0,
	ClientLogout:           0,
}

// ClientPayloadLength returns the length indicator for a client opcode.
func ClientPayloadLength(op uint8) int {
	return clientLengths[op]
}
