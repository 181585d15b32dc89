package server

import (
	"errors"
	"sort"

	"github.com/kapu/marrakech-go/internal/domain"
	"github.com/kapu/marrakech-go/internal/engine"
	"github.com/kapu/marrakech-go/internal/session"
	"github.com/kapu/marrakech-go/pkg/gamedto"
)

func toSessionView(s *domain.Session) *gamedto.SessionView {
	if s == nil {
		return nil
	}
	players := make([]gamedto.PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, gamedto.PlayerView{ID: p.ID, Name: p.Name})
	}
	return &gamedto.SessionView{
		ID:             s.ID,
		Name:           s.Name,
		Status:         string(s.Status),
		Players:        players,
		TurnOrder:      s.TurnOrder,
		ActivePlayerID: s.ActivePlayerID,
		CreatedAt:      s.CreatedAt,
	}
}

func toStateView(g *domain.GameState) *gamedto.StateView {
	if g == nil {
		return nil
	}
	pieces := make([]gamedto.PieceView, 0, len(g.Pieces))
	for _, p := range g.Pieces {
		pieces = append(pieces, gamedto.PieceView{ID: p.ID, X: p.X, Y: p.Y})
	}
	return &gamedto.StateView{
		ID:             g.ID,
		SessionID:      g.SessionID,
		Status:         string(g.Status),
		ActivePlayerID: g.ActivePlayerID,
		WinnerID:       g.WinnerID,
		Disconnected:   sortedKeys(g.Disconnected),
		Departed:       sortedKeys(g.Departed),
		Pieces:         pieces,
		PendingRoll:    g.PendingRoll,
		MoveNumber:     g.MoveNumber,
		UpdatedAt:      g.UpdatedAt,
	}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// mapError translates engine and registry sentinels into an HTTP status
// and a wire error code. Internal failures never leak detail.
func mapError(err error) (int, gamedto.DomainError) {
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return 404, gamedto.DomainError{Code: gamedto.CodeNotFound, Message: err.Error()}
	case errors.Is(err, engine.ErrForbidden):
		return 403, gamedto.DomainError{Code: gamedto.CodeForbidden, Message: err.Error()}
	case errors.Is(err, engine.ErrInvalidState), errors.Is(err, session.ErrNotJoinable):
		return 409, gamedto.DomainError{Code: gamedto.CodeInvalidState, Message: err.Error()}
	case errors.Is(err, engine.ErrConflict), errors.Is(err, session.ErrAlreadyJoined), errors.Is(err, session.ErrFull):
		return 409, gamedto.DomainError{Code: gamedto.CodeConflict, Message: err.Error()}
	case errors.Is(err, session.ErrInvalidArgs):
		return 400, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: err.Error()}
	default:
		return 500, gamedto.DomainError{Code: gamedto.CodeInternal, Message: "internal error"}
	}
}
