package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/andrewpaglusch/rs225go/internal/config"
	"github.com/andrewpaglusch/rs225go/internal/db"
	"github.com/andrewpaglusch/rs225go/internal/gameserver"
	"github.com/andrewpaglusch/rs225go/internal/metrics"
	"github.com/andrewpaglusch/rs225go/internal/spawn"
)

const defaultConfigPath = "config/gameserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := defaultConfigPath
	if p := os.Getenv("RS225_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("rs225 server starting",
		"revision", 225,
		"bind", cfg.BindAddress,
		"port", cfg.Port,
		"tick", cfg.Tick(),
		"max_players", cfg.MaxPlayers)

	var store db.Store
	if cfg.DatabaseDSN != "" {
		if err := db.RunMigrations(ctx, cfg.DatabaseDSN); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		pgStore, err := db.NewPostgresStore(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
		slog.Info("database connected")
	} else {
		store = db.NewMemoryStore()
		slog.Info("no database configured, using in-memory store")
	}

	spawns := spawn.NewManager()
	if err := spawns.Load(filepath.Join(cfg.DataDir, "npcs.yaml")); err != nil {
		return fmt.Errorf("loading spawns: %w", err)
	}

	game := gameserver.NewGame(cfg, store, spawns)
	if err := spawns.SpawnAll(game.World()); err != nil {
		return fmt.Errorf("spawning npcs: %w", err)
	}

	server := gameserver.NewServer(game)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("game server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := game.Run(gctx); err != nil {
			return fmt.Errorf("game loop: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := metrics.Serve(gctx, cfg.MetricsAddress); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// parseLogLevel converts a config log level to slog.Level, defaulting to
// Info.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
