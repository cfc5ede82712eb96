package gameserver

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/db"
	"github.com/andrewpaglusch/rs225go/internal/gameserver/serverpackets"
	"github.com/andrewpaglusch/rs225go/internal/metrics"
	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/protocol"
)

// errNeedMoreData signals an incomplete login block: wait for more bytes
// without closing the connection.
var errNeedMoreData = errors.New("gameserver: login block incomplete")

// crcTableEntries is the number of cache CRC words in the login header.
const crcTableEntries = 9

// Container interfaces refreshed on seating.
const (
	invInterface  = 3214
	wornInterface = 1688
)

// Welcome screen components: the modal opened on seating and dismissed by
// the client's close-modal packet.
const (
	welcomeInterface         = 5993
	welcomeMessageComponent  = 5998
	welcomeRecoveryComponent = 6002
)

// Sidebar tab assignments sent on seating: (tab, interface). Tab 7 has no
// interface in this revision.
var sidebarTabs = [][2]uint16{
	{0, 5855}, {1, 3917}, {2, 638}, {3, 3213}, {4, 1644}, {5, 5608},
	{6, 1151}, {8, 5065}, {9, 5715}, {10, 2449}, {11, 904}, {12, 147},
	{13, 962},
}

// startHandshake runs stage 1: generate two seed words, write them raw,
// advance to AwaitingHeader.
func (g *Game) startHandshake(c *Client) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand failing means the process is in no state to serve.
		panic(fmt.Sprintf("gameserver: reading random seeds: %v", err))
	}
	c.ServerSeeds[0] = binary.BigEndian.Uint32(raw[0:4])
	c.ServerSeeds[1] = binary.BigEndian.Uint32(raw[4:8])

	c.Send(raw[:])
	c.Stage = StageAwaitingHeader
}

// loginBlock is the parsed stage-2 header.
type loginBlock struct {
	loginType uint8
	seeds     [4]uint32
	username  string
	password  string
}

// parseLoginBlock decodes the stage-2 header from the reservoir. Returns
// the consumed byte count, or errNeedMoreData while the block is short.
// Type and version mismatches are hard errors that close the connection.
func parseLoginBlock(buf []byte) (loginBlock, int, error) {
	var blk loginBlock
	if len(buf) < 2 {
		return blk, 0, errNeedMoreData
	}

	blk.loginType = buf[0]
	if blk.loginType != protocol.LoginTypeFresh && blk.loginType != protocol.LoginTypeReconnect {
		return blk, 0, fmt.Errorf("bad login type %d", blk.loginType)
	}

	blockLen := int(buf[1])
	if len(buf) < 2+blockLen {
		return blk, 0, errNeedMoreData
	}

	r := protocol.Wrap(buf[2 : 2+blockLen])
	version, err := r.ReadU8()
	if err != nil {
		return blk, 0, fmt.Errorf("reading version: %w", err)
	}
	if version != protocol.ClientVersion {
		return blk, 0, fmt.Errorf("bad client version %d", version)
	}

	if _, err := r.ReadU8(); err != nil { // memory flag
		return blk, 0, fmt.Errorf("reading memory flag: %w", err)
	}
	for i := 0; i < crcTableEntries; i++ {
		if _, err := r.ReadU32BE(); err != nil {
			return blk, 0, fmt.Errorf("reading crc %d: %w", i, err)
		}
	}
	if _, err := r.ReadU8(); err != nil { // rsa block length
		return blk, 0, fmt.Errorf("reading rsa length: %w", err)
	}
	if _, err := r.ReadU8(); err != nil { // rsa opcode, expected 10, not enforced
		return blk, 0, fmt.Errorf("reading rsa opcode: %w", err)
	}
	for i := range blk.seeds {
		blk.seeds[i], err = r.ReadU32BE()
		if err != nil {
			return blk, 0, fmt.Errorf("reading seed %d: %w", i, err)
		}
	}
	if _, err := r.ReadU32BE(); err != nil { // uid
		return blk, 0, fmt.Errorf("reading uid: %w", err)
	}
	blk.username, err = r.ReadStringNL(protocol.UsernameMaxLen)
	if err != nil {
		return blk, 0, fmt.Errorf("reading username: %w", err)
	}
	blk.password, err = r.ReadStringNL(protocol.PasswordMaxLen)
	if err != nil {
		return blk, 0, fmt.Errorf("reading password: %w", err)
	}

	return blk, 2 + blockLen, nil
}

// processLogin runs stage 2 against the reservoir: parse, authenticate,
// key the ciphers, seat the player, send the response and initial volley.
func (g *Game) processLogin(c *Client) error {
	blk, consumed, err := parseLoginBlock(c.Inbound())
	if errors.Is(err, errNeedMoreData) {
		return nil
	}
	if err != nil {
		// Validation failure: no response byte, just close.
		return fmt.Errorf("login header: %w", err)
	}
	c.Consume(consumed)

	state, err := g.store.Authenticate(g.ctx, blk.username, blk.password)
	if errors.Is(err, db.ErrBadCredentials) {
		c.Send([]byte{protocol.LoginInvalid})
		return fmt.Errorf("bad credentials for %q", blk.username)
	}
	if err != nil {
		c.Send([]byte{protocol.LoginRetry})
		return fmt.Errorf("loading player %q: %w", blk.username, err)
	}

	if g.world.PlayerByName(blk.username) != nil {
		c.Send([]byte{protocol.LoginOnline})
		return fmt.Errorf("%q already online", blk.username)
	}

	player := model.NewPlayer(0, blk.username)
	state.Apply(player)
	previousLogin := state.LastLogin
	player.LastLogin = time.Now().UnixMilli()

	if err := g.world.Register(player); err != nil {
		c.Send([]byte{protocol.LoginWorldFull})
		return fmt.Errorf("seating %q: %w", blk.username, err)
	}

	// Inbound keyed on the client seeds, outbound on seeds + 50.
	c.InCipher = crypto.NewIsaac(blk.seeds)
	outSeeds := blk.seeds
	for i := range outSeeds {
		outSeeds[i] += protocol.IsaacOutboundOffset
	}
	c.OutCipher = crypto.NewIsaac(outSeeds)

	player.Seat(player.Pos)
	c.Player = player
	c.Stage = StageSeated
	g.seated[player.Index] = c

	c.Send([]byte{protocol.LoginOK})
	g.sendInitialPackets(c, previousLogin)

	metrics.LoginsTotal.Inc()
	metrics.PlayersOnline.Set(float64(g.world.PlayerCount()))
	slog.Info("player seated",
		"name", player.Name,
		"slot", player.Index,
		"type", blk.loginType,
		"remote", c.RemoteAddr())
	return nil
}

// sendInitialPackets emits the post-seating volley: sidebar tabs, welcome
// line, the welcome screen, skills, run energy, camera reset, varp defaults
// and the initial region rebuild. The appearance flag set by seating is
// realized by the first player-info frame, not here.
func (g *Game) sendInitialPackets(c *Client, previousLogin time.Time) {
	for _, tab := range sidebarTabs {
		pkt := serverpackets.IfSetTab{Interface: tab[1], Tab: uint8(tab[0])}
		c.Send(pkt.Write(c.OutCipher))
	}

	welcome := serverpackets.MessageGame{Message: "Welcome to RuneScape."}
	c.Send(welcome.Write(c.OutCipher))

	// Welcome screen: the client dismisses it with a close-modal packet.
	screen := serverpackets.IfOpenTop{Interface: welcomeInterface}
	c.Send(screen.Write(c.OutCipher))

	message := "You have never logged in before."
	if !previousLogin.IsZero() {
		message = fmt.Sprintf("You last logged in on %s.", previousLogin.Format("2 January 2006"))
	}
	lastLogin := serverpackets.IfSetText{Interface: welcomeMessageComponent, Text: message}
	c.Send(lastLogin.Write(c.OutCipher))

	recovery := serverpackets.IfSetHide{Interface: welcomeRecoveryComponent, Hidden: true}
	c.Send(recovery.Write(c.OutCipher))

	for _, pkt := range serverpackets.SkillVolley(c.Player, c.OutCipher) {
		c.Send(pkt)
	}

	inv := serverpackets.UpdateInvFull{Interface: invInterface}
	c.Send(inv.Write(c.OutCipher))
	worn := serverpackets.UpdateInvFull{Interface: wornInterface}
	c.Send(worn.Write(c.OutCipher))

	energy := serverpackets.UpdateRunEnergy{Energy: c.Player.Queue.Energy()}
	c.Send(energy.Write(c.OutCipher))
	c.lastEnergySent = c.Player.Queue.Energy() / 100

	runMode := serverpackets.UpdateRunMode{Running: c.Player.Queue.RunPath()}
	c.Send(runMode.Write(c.OutCipher))

	camReset := serverpackets.CamReset{}
	c.Send(camReset.Write(c.OutCipher))

	brightness := serverpackets.VarpSmall{ID: 166, Value: 2}
	c.Send(brightness.Write(c.OutCipher))

	rebuild := serverpackets.RebuildNormal{Pos: c.Player.Pos, Maps: g.maps}
	c.Send(rebuild.Write(c.OutCipher))
}
