// Package db implements the persistence hook behind the login and logout
// paths: load-or-create on login, save on logout and shutdown.
package db

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/andrewpaglusch/rs225go/internal/model"
)

// ErrBadCredentials is returned when the account exists but the password
// does not match.
var ErrBadCredentials = errors.New("db: bad credentials")

// PlayerState is the persisted slice of a player.
type PlayerState struct {
	Username  string
	Position  model.Position
	RunEnergy int32
	Skills    [model.SkillCount]model.Skill
	LastLogin time.Time
}

// DefaultSpawn is where fresh accounts appear.
var DefaultSpawn = model.NewPosition(0, 3222, 3218)

// Store is the persistence collaborator of the protocol engine.
type Store interface {
	// Authenticate loads the state for username, auto-creating the account
	// on first sight. Returns ErrBadCredentials on a password mismatch.
	Authenticate(ctx context.Context, username, password string) (*PlayerState, error)

	// Save persists the live player.
	Save(ctx context.Context, p *model.Player) error
}

// NewState returns the fresh-account state.
func NewState(username string) *PlayerState {
	st := &PlayerState{Username: username, Position: DefaultSpawn, RunEnergy: model.MaxRunEnergy}
	for i := range st.Skills {
		st.Skills[i] = model.Skill{Level: 1, BaseLevel: 1}
	}
	st.Skills[model.SkillHitpoints] = model.Skill{Level: 10, BaseLevel: 10, Experience: 1154}
	return st
}

// Apply copies persisted state onto a live player.
func (st *PlayerState) Apply(p *model.Player) {
	p.Pos = st.Position
	p.Origin = st.Position
	p.Skills = st.Skills
	p.Queue.SetEnergy(st.RunEnergy)
}

// MemoryStore keeps accounts in process memory. It backs development runs
// and tests when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount
}

type memoryAccount struct {
	hash  []byte
	state PlayerState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*memoryAccount)}
}

// Authenticate implements Store.
func (m *MemoryStore) Authenticate(_ context.Context, username, password string) (*PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(username)
	acc, ok := m.accounts[key]
	if !ok {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		acc = &memoryAccount{hash: hash, state: *NewState(username)}
		m.accounts[key] = acc
	} else if bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return nil, ErrBadCredentials
	}

	st := acc.state
	return &st, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, p *model.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[strings.ToLower(p.Name)]
	if !ok {
		return nil
	}
	acc.state.Position = p.Pos
	acc.state.RunEnergy = p.Queue.Energy()
	acc.state.Skills = p.Skills
	acc.state.LastLogin = time.Now()
	return nil
}
