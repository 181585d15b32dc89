package domain

import "time"

// SessionStatus represents the session lifecycle.
type SessionStatus string

const (
	SessionWaiting  SessionStatus = "waiting"
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
)

// GameStatus represents the lifecycle of a session's game.
type GameStatus string

const (
	GameActive   GameStatus = "active"
	GameFinished GameStatus = "finished"
)

// Heading is the absolute direction a piece is facing on the board.
type Heading string

const (
	HeadingUp    Heading = "up"
	HeadingDown  Heading = "down"
	HeadingLeft  Heading = "left"
	HeadingRight Heading = "right"
)

// Direction is a relative move intent declared by the active player.
type Direction string

const (
	DirLeft    Direction = "left"
	DirRight   Direction = "right"
	DirForward Direction = "forward"
)

// User is immutable reference data supplied by the identity collaborator.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Session is a joinable group of players with its own lifecycle.
// TurnOrder stays empty until assigned and is a permutation of the player
// ids captured at assignment time; late joiners are rejected once active.
type Session struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Players        []User        `json:"players"`
	Status         SessionStatus `json:"status"`
	TurnOrder      []string      `json:"turn_order,omitempty"`
	ActivePlayerID string        `json:"active_player_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// HasPlayer reports whether the player already joined.
func (s *Session) HasPlayer(playerID string) bool {
	for _, p := range s.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so readers never alias registry state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Players = append([]User(nil), s.Players...)
	cp.TurnOrder = append([]string(nil), s.TurnOrder...)
	return &cp
}

// Piece is the shared marker walking the boundary loop. Heading and the
// traveled counter are engine-internal; clients only see coordinates.
type Piece struct {
	ID       string  `json:"id"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Heading  Heading `json:"heading"`
	OriginX  int     `json:"origin_x"`
	OriginY  int     `json:"origin_y"`
	Traveled int     `json:"traveled"`
}

// AtOrigin reports whether the piece stands on its starting cell.
func (p *Piece) AtOrigin() bool {
	return p.X == p.OriginX && p.Y == p.OriginY
}

// GameState is the mechanical state of one session's game, 1:1 with the
// owning session for its lifetime.
type GameState struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	Status         GameStatus      `json:"status"`
	ActivePlayerID string          `json:"active_player_id,omitempty"`
	WinnerID       string          `json:"winner_id,omitempty"`
	Disconnected   map[string]bool `json:"disconnected,omitempty"`
	Departed       map[string]bool `json:"departed,omitempty"`
	Pieces         []Piece         `json:"pieces"`
	PendingRoll    *int            `json:"pending_roll,omitempty"`
	MoveNumber     int             `json:"move_number"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so readers never alias registry state.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Pieces = append([]Piece(nil), g.Pieces...)
	if g.PendingRoll != nil {
		n := *g.PendingRoll
		cp.PendingRoll = &n
	}
	cp.Disconnected = make(map[string]bool, len(g.Disconnected))
	for k, v := range g.Disconnected {
		cp.Disconnected[k] = v
	}
	cp.Departed = make(map[string]bool, len(g.Departed))
	for k, v := range g.Departed {
		cp.Departed[k] = v
	}
	return &cp
}
