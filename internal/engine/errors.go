package engine

// Error taxonomy surfaced to the transport layer. Everything except
// ErrInternal is an expected, recoverable-by-caller condition.
var (
	ErrNotFound     = errf("session not found")
	ErrForbidden    = errf("player is not allowed to act")
	ErrInvalidState = errf("action not valid in current state")
	ErrConflict     = errf("player already joined")
	ErrInternal     = errf("internal engine error")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
