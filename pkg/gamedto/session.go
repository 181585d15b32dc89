package gamedto

import "time"

// PlayerView is the roster entry exposed to clients.
type PlayerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionView is the client-facing shape of a session.
type SessionView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	Players        []PlayerView `json:"players"`
	TurnOrder      []string     `json:"turn_order,omitempty"`
	ActivePlayerID string       `json:"active_player_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PieceView exposes the shared marker's position. Heading stays
// engine-internal; clients declare relative directions only.
type PieceView struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

// StateView is the client-facing shape of a game state. It is the payload
// of both the live feed and the point-in-time fetch.
type StateView struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"session_id"`
	Status         string      `json:"status"`
	ActivePlayerID string      `json:"active_player_id,omitempty"`
	WinnerID       string      `json:"winner_id,omitempty"`
	Disconnected   []string    `json:"disconnected,omitempty"`
	Departed       []string    `json:"departed,omitempty"`
	Pieces         []PieceView `json:"pieces"`
	PendingRoll    *int        `json:"pending_roll,omitempty"`
	MoveNumber     int         `json:"move_number"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
