package gameserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/andrewpaglusch/rs225go/internal/config"
	"github.com/andrewpaglusch/rs225go/internal/db"
	"github.com/andrewpaglusch/rs225go/internal/gameserver/serverpackets"
	"github.com/andrewpaglusch/rs225go/internal/mapdata"
	"github.com/andrewpaglusch/rs225go/internal/metrics"
	"github.com/andrewpaglusch/rs225go/internal/model"
	"github.com/andrewpaglusch/rs225go/internal/spawn"
	"github.com/andrewpaglusch/rs225go/internal/world"
)

// heartbeatInterval rate-limits the position log.
const heartbeatInterval = 5 * time.Second

// ioIdleSleep is the pause between I/O sweeps when nothing is happening.
const ioIdleSleep = time.Millisecond

// Game owns all mutable world state. Its Run loop is the only goroutine
// that touches the world, the seated map and every cipher; connection
// goroutines just move bytes in and out of reservoirs.
type Game struct {
	ctx context.Context
	cfg config.GameServer

	world  *world.World
	maps   *mapdata.Cache
	store  db.Store
	spawns *spawn.Manager

	newConns chan *Client
	pending  []*Client
	seated   map[uint16]*Client

	interval      time.Duration
	lastHeartbeat time.Time
}

// NewGame wires the world, map cache, persistence hook and spawn manager.
func NewGame(cfg config.GameServer, store db.Store, spawns *spawn.Manager) *Game {
	return &Game{
		cfg:      cfg,
		world:    world.New(cfg.MaxPlayers),
		maps:     mapdata.NewCache(cfg.MapsDir()),
		store:    store,
		spawns:   spawns,
		newConns: make(chan *Client, 64),
		seated:   make(map[uint16]*Client),
		interval: cfg.Tick(),
	}
}

// World exposes the world for tests and wiring.
func (g *Game) World() *world.World { return g.world }

// Enqueue hands a freshly accepted connection to the game loop.
func (g *Game) Enqueue(c *Client) {
	select {
	case g.newConns <- c:
	default:
		// The game loop is not draining; shed load instead of blocking.
		slog.Warn("connection queue full, dropping", "remote", c.RemoteAddr())
		c.Close()
	}
}

// Run drives the 600 ms tick loop, servicing connection I/O between ticks.
// Tick n is scheduled relative to the loop start, so slow ticks do not
// accumulate drift; an overrun tick is followed immediately by the next.
func (g *Game) Run(ctx context.Context) error {
	g.ctx = ctx
	g.lastHeartbeat = time.Now()

	start := time.Now()
	n := uint64(0)

	for {
		if ctx.Err() != nil {
			g.shutdown()
			return nil
		}

		worked := g.serviceIO()

		next := start.Add(time.Duration(n+1) * g.interval)
		now := time.Now()
		if now.Before(next) {
			if !worked {
				time.Sleep(min(ioIdleSleep, next.Sub(now)))
			}
			continue
		}

		tickStart := now
		g.runTick()
		n++

		elapsed := time.Since(tickStart)
		metrics.TickDuration.Observe(elapsed.Seconds())
		metrics.TicksTotal.Inc()
		if elapsed > g.interval {
			metrics.SlowTicksTotal.Inc()
			slog.Warn("slow tick",
				"tick", g.world.Tick(),
				"elapsed", elapsed,
				"players", g.world.PlayerCount())
		}
	}
}

// serviceIO accepts handed-off connections and pumps every reservoir
// through the login machine or the packet codec. Reports whether any work
// was done.
func (g *Game) serviceIO() bool {
	worked := false

	for {
		select {
		case c := <-g.newConns:
			g.startHandshake(c)
			g.pending = append(g.pending, c)
			slog.Info("new connection", "remote", c.RemoteAddr())
			worked = true
			continue
		default:
		}
		break
	}

	// Pending connections: login stages.
	alive := g.pending[:0]
	for _, c := range g.pending {
		if err := c.ReadErr(); err != nil {
			g.teardown(c, err)
			continue
		}
		if c.Stage == StageAwaitingHeader && len(c.Inbound()) > 0 {
			worked = true
			if err := g.processLogin(c); err != nil {
				g.teardown(c, err)
				continue
			}
		}
		if c.Stage != StageSeated {
			alive = append(alive, c)
		}
	}
	g.pending = alive

	// Seated connections: packet codec.
	for _, c := range g.seated {
		if err := c.ReadErr(); err != nil {
			g.teardown(c, err)
			continue
		}
		if len(c.Inbound()) == 0 && c.pendingOp == nil {
			continue
		}
		worked = true
		if err := g.parseLoop(c); err != nil {
			g.teardown(c, err)
		}
	}

	return worked
}

// runTick executes one world tick. Phase order is observable: movement,
// snapshot, encode, flag cleanup, counters. Clearing update flags before
// the encode phase would silently drop updates.
func (g *Game) runTick() {
	// Phase 1: movement.
	for _, c := range g.seated {
		g.stepPlayer(c)
	}
	for _, n := range g.world.Npcs() {
		if n == nil || !n.Active {
			continue
		}
		primary, _, nx, nz := n.Queue.Step(n.Pos.X, n.Pos.Z)
		if primary != -1 {
			g.world.MoveNpc(n, model.NewPosition(n.Pos.Height, nx, nz))
		}
	}
	if g.spawns != nil {
		g.spawns.TickRespawns(g.world)
	}

	// Phase 2: one snapshot shared by every observer.
	snapshot := g.world.Players()

	// Phase 3: encode and emit.
	for _, c := range g.seated {
		frame := serverpackets.PlayerInfo{
			Observer: c.Player,
			Players:  snapshot,
			Tracking: g.world.Tracking(c.Player.Index),
		}
		c.Send(frame.Write(c.OutCipher))
	}

	// Phase 4: flag and placement cleanup.
	for _, c := range g.seated {
		p := c.Player
		if p.NeedsPlacement {
			p.PlacementTicks++
			if p.PlacementTicks >= 2 {
				p.NeedsPlacement = false
				p.RegionChanged = false
			}
		}
		p.UpdateFlags = 0
		p.Chat = model.PublicChat{}
		p.Anim = model.Animation{}
		p.Gfx = model.Graphic{}
		p.PendingHit = model.Hit{}
	}

	// Phase 5: heartbeat and counters.
	if time.Since(g.lastHeartbeat) >= heartbeatInterval {
		g.world.LogPositions()
		g.lastHeartbeat = time.Now()
	}
	g.world.AdvanceTick()
}

// stepPlayer runs the movement dequeue for one player and applies the
// resulting deltas, region rebuild and run-energy bookkeeping.
func (g *Game) stepPlayer(c *Client) {
	p := c.Player
	p.PrimaryDir, p.SecondaryDir = -1, -1

	if p.NeedsPlacement {
		return
	}

	primary, secondary, nx, nz := p.Queue.Step(p.Pos.X, p.Pos.Z)
	p.PrimaryDir, p.SecondaryDir = primary, secondary

	if primary != -1 {
		g.world.MovePlayer(p, model.NewPosition(p.Pos.Height, nx, nz))
		if p.Pos.ZoneChanged(p.Origin) {
			p.Origin = p.Pos
			rebuild := serverpackets.RebuildNormal{Pos: p.Pos, Maps: g.maps}
			c.Send(rebuild.Write(c.OutCipher))
		}
	}

	// Only idle ticks restore run energy: walking neither drains nor
	// restores, and running ticks already drained inside Step.
	if primary == -1 {
		p.Queue.Restore(1)
	}

	if percent := p.Queue.Energy() / 100; percent != c.lastEnergySent {
		pkt := serverpackets.UpdateRunEnergy{Energy: p.Queue.Energy()}
		c.Send(pkt.Write(c.OutCipher))
		c.lastEnergySent = percent
	}
}

// teardown closes a connection, saving and unseating its player when one
// was seated.
func (g *Game) teardown(c *Client, reason error) {
	if reason != nil {
		slog.Info("connection closed", "remote", c.RemoteAddr(), "reason", reason)
	} else {
		slog.Info("connection closed", "remote", c.RemoteAddr())
	}

	if c.Player != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := g.store.Save(saveCtx, c.Player); err != nil {
			slog.Error("saving player on disconnect", "name", c.Player.Name, "error", err)
		}
		cancel()

		g.world.Unregister(c.Player.Index)
		delete(g.seated, c.Player.Index)
		c.Player = nil
		metrics.PlayersOnline.Set(float64(g.world.PlayerCount()))
	}

	c.Close()
}

// shutdown saves every seated player and closes all connections.
func (g *Game) shutdown() {
	slog.Info("game loop stopping", "players", g.world.PlayerCount())
	for _, c := range g.seated {
		pkt := serverpackets.Logout{}
		c.Send(pkt.Write(c.OutCipher))
	}
	for _, c := range append(g.pending, g.seatedClients()...) {
		g.teardown(c, nil)
	}
	g.pending = nil
}

func (g *Game) seatedClients() []*Client {
	out := make([]*Client, 0, len(g.seated))
	for _, c := range g.seated {
		out = append(out, c)
	}
	return out
}
