package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/andrewpaglusch/rs225go/internal/model"
)

// PostgresStore persists characters in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies the link.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Authenticate implements Store: load on match, auto-create on first sight.
func (s *PostgresStore) Authenticate(ctx context.Context, username, password string) (*PlayerState, error) {
	key := strings.ToLower(username)

	var (
		hash      string
		x, z      int32
		height    int32
		energy    int32
		levels    []int32
		xp        []int32
		lastLogin *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash, x, z, height, run_energy, levels, experience, last_login
		 FROM characters WHERE username = $1`, key,
	).Scan(&hash, &x, &z, &height, &energy, &levels, &xp, &lastLogin)

	if errors.Is(err, pgx.ErrNoRows) {
		return s.create(ctx, key, password)
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %q: %w", key, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}

	st := NewState(username)
	st.Position = model.NewPosition(uint8(height), x, z)
	st.RunEnergy = energy
	for i := range st.Skills {
		if i < len(levels) {
			st.Skills[i].Level = uint8(levels[i])
			st.Skills[i].BaseLevel = uint8(levels[i])
		}
		if i < len(xp) {
			st.Skills[i].Experience = xp[i]
		}
	}
	if lastLogin != nil {
		st.LastLogin = *lastLogin
	}
	return st, nil
}

func (s *PostgresStore) create(ctx context.Context, key, password string) (*PlayerState, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	st := NewState(key)
	levels, xp := skillColumns(st.Skills)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO characters (username, password_hash, x, z, height, run_energy, levels, experience)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key, string(hash), st.Position.X, st.Position.Z, int32(st.Position.Height),
		st.RunEnergy, levels, xp,
	)
	if err != nil {
		return nil, fmt.Errorf("creating character %q: %w", key, err)
	}
	slog.Info("auto-created character", "username", key)
	return st, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, p *model.Player) error {
	levels, xp := skillColumns(p.Skills)
	_, err := s.pool.Exec(ctx,
		`UPDATE characters
		 SET x = $1, z = $2, height = $3, run_energy = $4, levels = $5, experience = $6, last_login = $7
		 WHERE username = $8`,
		p.Pos.X, p.Pos.Z, int32(p.Pos.Height), p.Queue.Energy(), levels, xp,
		time.UnixMilli(p.LastLogin), strings.ToLower(p.Name),
	)
	if err != nil {
		return fmt.Errorf("saving character %q: %w", p.Name, err)
	}
	return nil
}

func skillColumns(skills [model.SkillCount]model.Skill) (levels, xp []int32) {
	levels = make([]int32, model.SkillCount)
	xp = make([]int32, model.SkillCount)
	for i, sk := range skills {
		levels[i] = int32(sk.BaseLevel)
		xp[i] = sk.Experience
	}
	return levels, xp
}
