package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// Server accepts game client connections and hands them to the game loop.
type Server struct {
	game     *Game
	maxConns int32

	listener  net.Listener
	connCount atomic.Int32
}

// NewServer wraps a game loop with a TCP listener.
func NewServer(game *Game) *Server {
	return &Server{
		game:     game,
		maxConns: int32(game.cfg.MaxPlayers),
	}
}

// Run listens on the configured address and accepts until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.game.cfg.BindAddress, s.game.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("game server listening", "address", ln.Addr())
	return s.acceptLoop(ctx, ln)
}

// Serve accepts from a caller-provided listener. Used by tests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.listener = ln
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	return s.acceptLoop(ctx, ln)
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			slog.Error("accept failed", "error", err)
			continue
		}

		// Pool exhausted: close with no reply.
		if s.connCount.Load() >= s.maxConns {
			slog.Warn("world full, rejecting connection", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if err := tcpConn.SetKeepAlive(true); err != nil {
				slog.Warn("set keepalive failed", "error", err)
			}
			if err := tcpConn.SetKeepAlivePeriod(30 * time.Second); err != nil {
				slog.Warn("set keepalive period failed", "error", err)
			}
		}

		s.connCount.Add(1)
		client := NewClient(conn)
		client.onClose = func() { s.connCount.Add(-1) }
		go client.readPump()
		go client.writePump()
		s.game.Enqueue(client)
	}
}

// Addr returns the bound address, or nil before Run.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
