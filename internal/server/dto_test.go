package server

import (
	"errors"
	"testing"

	"github.com/kapu/marrakech-go/internal/domain"
	"github.com/kapu/marrakech-go/internal/engine"
	"github.com/kapu/marrakech-go/internal/session"
	"github.com/kapu/marrakech-go/pkg/gamedto"
)

func TestMapError(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
		code   string
	}{
		{engine.ErrNotFound, 404, gamedto.CodeNotFound},
		{session.ErrNotFound, 404, gamedto.CodeNotFound},
		{engine.ErrForbidden, 403, gamedto.CodeForbidden},
		{engine.ErrInvalidState, 409, gamedto.CodeInvalidState},
		{session.ErrNotJoinable, 409, gamedto.CodeInvalidState},
		{session.ErrAlreadyJoined, 409, gamedto.CodeConflict},
		{session.ErrFull, 409, gamedto.CodeConflict},
		{session.ErrInvalidArgs, 400, gamedto.CodeBadRequest},
		{errors.New("disk on fire"), 500, gamedto.CodeInternal},
	} {
		status, de := mapError(tc.err)
		if status != tc.status || de.Code != tc.code {
			t.Fatalf("mapError(%v): got %d/%s want %d/%s", tc.err, status, de.Code, tc.status, tc.code)
		}
	}

	// Internal failures must not leak the underlying message.
	_, de := mapError(errors.New("pq: password authentication failed"))
	if de.Message != "internal error" {
		t.Fatalf("internal message leaked: %q", de.Message)
	}
}

func TestToStateViewHidesHeadingAndSortsFlags(t *testing.T) {
	g := &domain.GameState{
		ID:        "g1",
		SessionID: "s1",
		Status:    domain.GameActive,
		Disconnected: map[string]bool{
			"zed": true,
			"amy": true,
		},
		Pieces: []domain.Piece{{ID: "p1", X: 3, Y: 0, Heading: domain.HeadingRight, Traveled: 3}},
	}
	v := toStateView(g)
	if v == nil {
		t.Fatalf("nil view")
	}
	if len(v.Disconnected) != 2 || v.Disconnected[0] != "amy" || v.Disconnected[1] != "zed" {
		t.Fatalf("disconnected list: %v", v.Disconnected)
	}
	if v.Departed != nil {
		t.Fatalf("empty departed map should render as nil, got %v", v.Departed)
	}
	if len(v.Pieces) != 1 || v.Pieces[0].X != 3 || v.Pieces[0].Y != 0 {
		t.Fatalf("pieces: %+v", v.Pieces)
	}

	if toStateView(nil) != nil {
		t.Fatalf("nil state should map to nil view")
	}
}

func TestToSessionView(t *testing.T) {
	s := &domain.Session{
		ID:     "s1",
		Name:   "table",
		Status: domain.SessionActive,
		Players: []domain.User{
			{ID: "u1", Name: "amy", Email: "amy@example.com"},
		},
		TurnOrder:      []string{"u1"},
		ActivePlayerID: "u1",
	}
	v := toSessionView(s)
	if v == nil || v.ID != "s1" || v.Status != "active" {
		t.Fatalf("view: %+v", v)
	}
	if len(v.Players) != 1 || v.Players[0].Name != "amy" {
		t.Fatalf("players: %+v", v.Players)
	}
}
