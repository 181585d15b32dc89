package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/marrakech-go/internal/board"
	"github.com/kapu/marrakech-go/internal/domain"
	"github.com/kapu/marrakech-go/internal/live"
	"github.com/kapu/marrakech-go/internal/obslog"
	"github.com/kapu/marrakech-go/internal/rules"
	"github.com/kapu/marrakech-go/internal/session"
)

// Archiver persists finished games. Nil-safe optional collaborator.
type Archiver interface {
	SaveResult(ctx context.Context, s *domain.Session, g *domain.GameState) error
}

// Engine composes the session registry, board topology, dice and turn
// order into the authoritative game state machine. Every mutation runs
// under the registry's per-session serialization and publishes its
// committed state to the hub after the commit.
type Engine struct {
	reg     *session.Registry
	brd     *board.Board
	rules   *rules.Rules
	hub     *live.Hub
	archive Archiver
}

func New(reg *session.Registry, brd *board.Board, r *rules.Rules, hub *live.Hub) *Engine {
	return &Engine{reg: reg, brd: brd, rules: r, hub: hub}
}

// AttachArchiver wires an optional repository for persisting final
// results.
func (e *Engine) AttachArchiver(a Archiver) {
	if e != nil {
		e.archive = a
	}
}

// AssignOrder commits a one-shot random permutation of the joined players,
// transitions the session to active and initializes a fresh game state
// with the shared piece at the start cell. Calling it on a session that is
// no longer waiting fails rather than reshuffling.
func (e *Engine) AssignOrder(ctx context.Context, sessionID string) (*domain.Session, *domain.GameState, error) {
	s, g, err := e.reg.Update(ctx, sessionID, func(tx *session.Tx) error {
		if tx.Session.Status != domain.SessionWaiting {
			return ErrInvalidState
		}
		if len(tx.Session.Players) < e.rules.MinPlayers {
			return ErrInvalidState
		}

		order := make([]string, len(tx.Session.Players))
		for i, p := range tx.Session.Players {
			order[i] = p.ID
		}
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		tx.Session.TurnOrder = order
		tx.Session.ActivePlayerID = order[0]
		tx.Session.Status = domain.SessionActive

		x, y, h := e.brd.Start()
		now := time.Now()
		tx.State = &domain.GameState{
			ID:             uuid.NewString(),
			SessionID:      tx.Session.ID,
			Status:         domain.GameActive,
			ActivePlayerID: order[0],
			Disconnected:   make(map[string]bool),
			Departed:       make(map[string]bool),
			Pieces: []domain.Piece{{
				ID:      uuid.NewString(),
				X:       x,
				Y:       y,
				Heading: h,
				OriginX: x,
				OriginY: y,
			}},
			MoveNumber: 0,
			CreatedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, nil, mapRegistryErr(err)
	}
	e.hub.Publish(sessionID, g)
	obslog.L().Info("turn_order_assigned",
		zap.String("session_id", sessionID),
		zap.Strings("turn_order", s.TurnOrder),
		zap.String("active_player_id", s.ActivePlayerID),
	)
	return s, g, nil
}

// Roll draws the active player's move budget for this turn. At most one
// draw may be pending per turn; it is consumed by the next successful
// move.
func (e *Engine) Roll(ctx context.Context, sessionID, playerID string) (int, *domain.GameState, error) {
	var drawn int
	_, g, err := e.reg.Update(ctx, sessionID, func(tx *session.Tx) error {
		if tx.State == nil || tx.State.Status != domain.GameActive {
			return ErrInvalidState
		}
		if tx.State.ActivePlayerID != playerID {
			return ErrForbidden
		}
		if tx.State.PendingRoll != nil {
			return ErrInvalidState
		}
		drawn = e.rules.DieFaces[rand.Intn(len(e.rules.DieFaces))]
		tx.State.PendingRoll = &drawn
		return nil
	})
	if err != nil {
		return 0, nil, mapRegistryErr(err)
	}
	e.hub.Publish(sessionID, g)
	obslog.L().Info("dice_roll",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Int("value", drawn),
	)
	return drawn, g, nil
}

// Move resolves the active player's declared direction against the
// pending dice draw: one relative turn, then an advance of the full
// budget along the loop. It evaluates the win predicate and hands the
// turn to the next available player.
func (e *Engine) Move(ctx context.Context, sessionID, playerID string, dir domain.Direction) (*domain.GameState, error) {
	switch dir {
	case domain.DirLeft, domain.DirRight, domain.DirForward:
	default:
		return nil, ErrInvalidState
	}

	var (
		finished bool
		archSess *domain.Session
	)
	_, g, err := e.reg.Update(ctx, sessionID, func(tx *session.Tx) error {
		if tx.State == nil || tx.State.Status != domain.GameActive {
			return ErrInvalidState
		}
		if tx.State.ActivePlayerID != playerID {
			return ErrForbidden
		}
		if tx.State.PendingRoll == nil {
			return ErrInvalidState
		}
		steps := *tx.State.PendingRoll

		piece := tx.State.Pieces[0]
		piece.Heading = board.Turn(piece.Heading, dir)
		if err := e.brd.Advance(&piece, steps); err != nil {
			obslog.L().Error("board_invariant_violation",
				zap.String("session_id", sessionID),
				zap.Int("steps", steps),
				zap.Error(err),
			)
			return ErrInternal
		}
		tx.State.Pieces[0] = piece
		tx.State.PendingRoll = nil
		tx.State.MoveNumber++

		if e.won(tx.State, &piece) {
			e.finish(tx, playerID)
			finished = true
		} else {
			tx.State.ActivePlayerID = nextPlayer(tx.Session.TurnOrder, playerID, tx.State)
			tx.Session.ActivePlayerID = tx.State.ActivePlayerID
		}
		archSess = tx.Session
		return nil
	})
	if err != nil {
		return nil, mapRegistryErr(err)
	}
	e.hub.Publish(sessionID, g)
	obslog.L().Info("move_applied",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.String("direction", string(dir)),
		zap.Int("move_number", g.MoveNumber),
		zap.String("next_player_id", g.ActivePlayerID),
		zap.Bool("finished", finished),
	)
	if finished {
		e.persistFinal(ctx, archSess, g)
	}
	return g, nil
}

// Leave marks a player as permanently departed from an active game.
// Departed players are skipped on turn advancement; when a single player
// remains they win by default, mirroring last-player-standing completion.
func (e *Engine) Leave(ctx context.Context, sessionID, playerID string) (*domain.GameState, error) {
	var (
		finished bool
		archSess *domain.Session
	)
	_, g, err := e.reg.Update(ctx, sessionID, func(tx *session.Tx) error {
		if tx.State == nil || tx.State.Status != domain.GameActive {
			return ErrInvalidState
		}
		if !tx.Session.HasPlayer(playerID) {
			return ErrNotFound
		}
		if tx.State.Departed[playerID] {
			return ErrInvalidState
		}
		tx.State.Departed[playerID] = true

		remaining := ""
		count := 0
		for _, id := range tx.Session.TurnOrder {
			if !tx.State.Departed[id] {
				remaining = id
				count++
			}
		}
		if count == 1 {
			e.finish(tx, remaining)
			finished = true
		} else if tx.State.ActivePlayerID == playerID {
			tx.State.ActivePlayerID = nextPlayer(tx.Session.TurnOrder, playerID, tx.State)
			tx.Session.ActivePlayerID = tx.State.ActivePlayerID
			tx.State.PendingRoll = nil
		}
		archSess = tx.Session
		return nil
	})
	if err != nil {
		return nil, mapRegistryErr(err)
	}
	e.hub.Publish(sessionID, g)
	obslog.L().Info("player_leave",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Bool("finished", finished),
	)
	if finished {
		e.persistFinal(ctx, archSess, g)
	}
	return g, nil
}

// State returns a read-only snapshot of the session's game state.
func (e *Engine) State(ctx context.Context, sessionID string) (*domain.GameState, error) {
	g, err := e.reg.State(ctx, sessionID)
	if err != nil {
		return nil, mapRegistryErr(err)
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// MarkDisconnected flags a player whose live stream lapsed past the grace
// period. It never removes the player from the roster or the turn order.
func (e *Engine) MarkDisconnected(ctx context.Context, sessionID, playerID string) {
	e.markConnectivity(ctx, sessionID, playerID, true)
}

// MarkConnected clears the disconnected flag when a player's stream opens.
func (e *Engine) MarkConnected(ctx context.Context, sessionID, playerID string) {
	e.markConnectivity(ctx, sessionID, playerID, false)
}

func (e *Engine) markConnectivity(ctx context.Context, sessionID, playerID string, down bool) {
	_, g, err := e.reg.Update(ctx, sessionID, func(tx *session.Tx) error {
		if tx.State == nil {
			return ErrInvalidState
		}
		if tx.State.Disconnected[playerID] == down {
			return ErrInvalidState // no change, skip the commit
		}
		if down {
			tx.State.Disconnected[playerID] = true
		} else {
			delete(tx.State.Disconnected, playerID)
		}
		return nil
	})
	if err != nil {
		return
	}
	e.hub.Publish(sessionID, g)
	obslog.L().Info("player_connectivity",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Bool("disconnected", down),
	)
}

// won evaluates the configured win predicate for the move just applied.
func (e *Engine) won(g *domain.GameState, p *domain.Piece) bool {
	switch e.rules.WinRule {
	case rules.WinMoveLimit:
		return g.MoveNumber >= e.rules.MoveLimit
	default:
		return p.Traveled >= e.brd.LoopLen() && p.AtOrigin()
	}
}

// finish closes the game with winnerID. Further rolls and moves fail with
// ErrInvalidState.
func (e *Engine) finish(tx *session.Tx, winnerID string) {
	tx.State.Status = domain.GameFinished
	tx.State.WinnerID = winnerID
	tx.State.ActivePlayerID = ""
	tx.State.PendingRoll = nil
	tx.Session.Status = domain.SessionFinished
	tx.Session.ActivePlayerID = ""
}

// persistFinal hands a finished game to the archiver, if one is attached.
func (e *Engine) persistFinal(ctx context.Context, s *domain.Session, g *domain.GameState) {
	if e.archive == nil || s == nil || g == nil {
		return
	}
	if err := e.archive.SaveResult(ctx, s, g); err != nil {
		obslog.L().Error("archive_error",
			zap.String("session_id", s.ID),
			zap.String("winner_id", g.WinnerID),
			zap.Error(err),
		)
		return
	}
	// The result is durable now; close the live feed. Subscribers still
	// drain the buffered final state before the channel close. The session
	// itself stays readable until the store TTL reaps it.
	e.hub.Drop(s.ID)
	obslog.L().Info("game_archived",
		zap.String("session_id", s.ID),
		zap.String("winner_id", g.WinnerID),
	)
}

// nextPlayer walks the committed turn order from current, wrapping, and
// skips disconnected and departed players. When every other player is
// unavailable the current player keeps the turn rather than stalling the
// machine.
func nextPlayer(order []string, current string, g *domain.GameState) string {
	idx := -1
	for i, id := range order {
		if id == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return current
	}
	for off := 1; off <= len(order); off++ {
		cand := order[(idx+off)%len(order)]
		if cand == current {
			break
		}
		if g.Disconnected[cand] || g.Departed[cand] {
			continue
		}
		return cand
	}
	return current
}

// mapRegistryErr translates registry sentinels into the engine taxonomy.
func mapRegistryErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrNotFound
	default:
		return err
	}
}
