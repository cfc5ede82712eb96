package gameserver

import (
	"log/slog"
	"net"
	"sync"

	"github.com/andrewpaglusch/rs225go/internal/crypto"
	"github.com/andrewpaglusch/rs225go/internal/metrics"
	"github.com/andrewpaglusch/rs225go/internal/model"
)

// Stage is the login progress of a connection. It only moves forward.
type Stage int

const (
	StageAwaitingConnection Stage = iota
	StageAwaitingHeader
	StageSeated
)

// Client is the per-connection state: the socket, the inbound and outbound
// byte reservoirs, the ISAAC pair once seated, and the seat itself.
//
// The read pump appends to the inbound reservoir and the write pump drains
// the outbound queue; everything else (parsing, ciphers, the player) is
// touched only by the game goroutine.
type Client struct {
	conn net.Conn

	inMu    sync.Mutex
	inbound []byte
	readErr error

	outMu    sync.Mutex
	outbound [][]byte
	closed   bool
	wakeup   chan struct{}

	Stage       Stage
	ServerSeeds [2]uint32
	InCipher    *crypto.Isaac
	OutCipher   *crypto.Isaac
	Player      *model.Player

	// pendingOp holds a demasked opcode whose packet is not yet fully
	// buffered; the keystream word is already consumed and must not be
	// consumed again.
	pendingOp *uint8

	// lastEnergySent suppresses redundant run-energy packets.
	lastEnergySent int32

	// onClose runs once when the connection is torn down.
	onClose func()
}

// NewClient wraps an accepted connection.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:           conn,
		wakeup:         make(chan struct{}, 1),
		lastEnergySent: -1,
	}
}

// RemoteAddr returns the peer address for logging.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// readPump moves bytes from the socket into the inbound reservoir until the
// peer closes or errors. Runs on its own goroutine.
func (c *Client) readPump() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.inMu.Lock()
			c.inbound = append(c.inbound, buf[:n]...)
			c.inMu.Unlock()
			metrics.BytesIn.Add(float64(n))
		}
		if err != nil {
			c.inMu.Lock()
			c.readErr = err
			c.inMu.Unlock()
			return
		}
	}
}

// writePump drains the outbound queue to the socket. Runs on its own
// goroutine; exits when the client closes.
func (c *Client) writePump() {
	for range c.wakeup {
		for {
			c.outMu.Lock()
			if len(c.outbound) == 0 {
				closed := c.closed
				c.outMu.Unlock()
				if closed {
					return
				}
				break
			}
			batch := c.outbound
			c.outbound = nil
			c.outMu.Unlock()

			for _, pkt := range batch {
				if _, err := c.conn.Write(pkt); err != nil {
					slog.Debug("write failed", "client", c.RemoteAddr(), "error", err)
					return
				}
			}
		}
	}
}

// Send queues bytes for delivery. Never blocks; the reservoir grows.
func (c *Client) Send(data []byte) {
	if len(data) == 0 {
		return
	}
	c.outMu.Lock()
	if c.closed {
		c.outMu.Unlock()
		return
	}
	c.outbound = append(c.outbound, data)
	c.outMu.Unlock()
	metrics.PacketsOut.Inc()
	metrics.BytesOut.Add(float64(len(data)))

	select {
	case c.wakeup <- struct{}{}:
	default:
	}
}

// Close tears the connection down. In-flight outbound bytes get one more
// delivery attempt from the write pump before the socket closes.
func (c *Client) Close() {
	c.outMu.Lock()
	if c.closed {
		c.outMu.Unlock()
		return
	}
	c.closed = true
	c.outMu.Unlock()

	select {
	case c.wakeup <- struct{}{}:
	default:
	}
	_ = c.conn.Close()
	if c.onClose != nil {
		c.onClose()
	}
}

// Inbound returns the current reservoir contents. The slice is stable: the
// read pump never mutates delivered bytes, only appends.
func (c *Client) Inbound() []byte {
	c.inMu.Lock()
	defer c.inMu.Unlock()
	return c.inbound
}

// Consume drops n processed bytes from the front of the reservoir.
func (c *Client) Consume(n int) {
	c.inMu.Lock()
	c.inbound = c.inbound[n:]
	c.inMu.Unlock()
}

// ReadErr reports the read pump's terminal error, if any.
func (c *Client) ReadErr() error {
	c.inMu.Lock()
	defer c.inMu.Unlock()
	return c.readErr
}
