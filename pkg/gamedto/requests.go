package gamedto

// CreateSessionRequest opens a new waiting session.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// MoveRequest declares the active player's relative direction for the
// pending dice draw.
type MoveRequest struct {
	Direction string `json:"direction"`
}

// RollResponse carries the drawn move budget alongside the committed
// state.
type RollResponse struct {
	Value int        `json:"value"`
	State *StateView `json:"state"`
}

// OrderResponse is returned when the turn order is committed.
type OrderResponse struct {
	Session *SessionView `json:"session"`
	State   *StateView   `json:"state"`
}
