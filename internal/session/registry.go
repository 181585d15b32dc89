package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/marrakech-go/internal/domain"
	"github.com/kapu/marrakech-go/internal/obslog"
)

// Package-level sentinels for registry operations.
var (
	ErrNotFound      = errf("session not found")
	ErrNotJoinable   = errf("session is not accepting players")
	ErrAlreadyJoined = errf("player already joined this session")
	ErrFull          = errf("session already has the maximum number of players")
	ErrInvalidArgs   = errf("invalid arguments")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// entry owns one session's live state. All mutations of the pair happen
// under mu; distinct sessions never contend.
type entry struct {
	mu      sync.Mutex
	session *domain.Session
	state   *domain.GameState
}

// Registry is the process-wide arena of live sessions, keyed by generated
// id. The outer RWMutex guards only the map; per-session serialization is
// the entry mutex.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	order      []string
	store      Store
	maxPlayers int
}

// NewRegistry builds an empty registry backed by store. maxPlayers caps
// the roster of a waiting session.
func NewRegistry(store Store, maxPlayers int) *Registry {
	if store == nil {
		store = NopStore{}
	}
	return &Registry{
		entries:    make(map[string]*entry),
		store:      store,
		maxPlayers: maxPlayers,
	}
}

// Create registers a waiting session with the creator as sole player.
func (r *Registry) Create(ctx context.Context, name string, creator domain.User) (*domain.Session, error) {
	if strings.TrimSpace(creator.ID) == "" {
		return nil, ErrInvalidArgs
	}
	if strings.TrimSpace(name) == "" {
		name = creator.Name + "'s game"
	}
	now := time.Now()
	s := &domain.Session{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Players:   []domain.User{creator},
		Status:    domain.SessionWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e := &entry{session: s}

	r.mu.Lock()
	r.entries[s.ID] = e
	r.order = append(r.order, s.ID)
	r.mu.Unlock()

	r.persist(ctx, s, nil)
	obslog.L().Info("session_create",
		zap.String("session_id", s.ID),
		zap.String("creator_id", creator.ID),
		zap.String("name", s.Name),
	)
	return s.Clone(), nil
}

// List returns a newest-first snapshot of all live sessions.
func (r *Registry) List() []*domain.Session {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()

	out := make([]*domain.Session, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if e := r.lookup(ids[i]); e != nil {
			e.mu.Lock()
			out = append(out, e.session.Clone())
			e.mu.Unlock()
		}
	}
	return out
}

// Join appends a player to a waiting session's roster.
func (r *Registry) Join(ctx context.Context, sessionID string, player domain.User) (*domain.Session, error) {
	if strings.TrimSpace(player.ID) == "" {
		return nil, ErrInvalidArgs
	}
	_, _, err := r.Update(ctx, sessionID, func(tx *Tx) error {
		if tx.Session.Status != domain.SessionWaiting {
			return ErrNotJoinable
		}
		if tx.Session.HasPlayer(player.ID) {
			return ErrAlreadyJoined
		}
		if r.maxPlayers > 0 && len(tx.Session.Players) >= r.maxPlayers {
			return ErrFull
		}
		tx.Session.Players = append(tx.Session.Players, player)
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("session_join",
		zap.String("session_id", sessionID),
		zap.String("player_id", player.ID),
	)
	return r.Get(ctx, sessionID)
}

// Get returns a snapshot of one session.
func (r *Registry) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	e, err := r.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// State returns a snapshot of one session's game state, which may be nil
// while the session is still waiting.
func (r *Registry) State(ctx context.Context, sessionID string) (*domain.GameState, error) {
	e, err := r.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), nil
}

// Tx is the mutable view handed to an Update callback. The callback works
// on clones; nothing is visible to readers until the callback returns nil
// and the clones are committed, so failed mutations are all-or-nothing.
type Tx struct {
	Session *domain.Session
	State   *domain.GameState
}

// Update serializes a mutation against one session. On success the
// committed snapshots are returned and handed to the store.
func (r *Registry) Update(ctx context.Context, sessionID string, fn func(tx *Tx) error) (*domain.Session, *domain.GameState, error) {
	e, err := r.resolve(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &Tx{Session: e.session.Clone(), State: e.state.Clone()}
	if err := fn(tx); err != nil {
		return nil, nil, err
	}
	tx.Session.UpdatedAt = time.Now()
	if tx.State != nil {
		tx.State.UpdatedAt = tx.Session.UpdatedAt
	}
	e.session = tx.Session
	e.state = tx.State

	r.persist(ctx, e.session, e.state)
	return e.session.Clone(), e.state.Clone(), nil
}

// lookup returns the live entry or nil without touching the store.
func (r *Registry) lookup(sessionID string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[sessionID]
}

// resolve finds the live entry, falling back to the store so a restarted
// process can rehydrate sessions it persisted earlier.
func (r *Registry) resolve(ctx context.Context, sessionID string) (*entry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrNotFound
	}
	if e := r.lookup(sessionID); e != nil {
		return e, nil
	}
	s, g, err := r.store.Load(ctx, sessionID)
	if err != nil {
		obslog.L().Warn("session_store_load_error", zap.String("session_id", sessionID), zap.Error(err))
		return nil, ErrNotFound
	}
	if s == nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		return e, nil
	}
	e := &entry{session: s, state: g}
	r.entries[sessionID] = e
	r.order = append(r.order, sessionID)
	obslog.L().Info("session_rehydrate", zap.String("session_id", sessionID))
	return e, nil
}

// persist hands a committed snapshot to the store. The in-memory copy is
// authoritative; store failures are logged and do not fail the mutation.
func (r *Registry) persist(ctx context.Context, s *domain.Session, g *domain.GameState) {
	if err := r.store.Save(ctx, s, g); err != nil {
		obslog.L().Warn("session_store_save_error", zap.String("session_id", s.ID), zap.Error(err))
	}
}

// Drop removes a finished session from the live map and the store.
func (r *Registry) Drop(ctx context.Context, sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	if err := r.store.Delete(ctx, sessionID); err != nil {
		obslog.L().Warn("session_store_delete_error", zap.String("session_id", sessionID), zap.Error(err))
	}
}
