package conntrack

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/marrakech-go/internal/obslog"
)

// Marker receives liveness verdicts. Implemented by the game engine.
type Marker interface {
	MarkConnected(ctx context.Context, sessionID, playerID string)
	MarkDisconnected(ctx context.Context, sessionID, playerID string)
}

// Tracker observes per-player stream lifecycle and marks players
// disconnected only after a grace period, so transient network blips do
// not trigger turn skipping. It never mutates rosters or turn order.
type Tracker struct {
	marker Marker
	grace  time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func New(marker Marker, grace time.Duration) *Tracker {
	return &Tracker{
		marker: marker,
		grace:  grace,
		timers: make(map[string]*time.Timer),
	}
}

func key(sessionID, playerID string) string { return sessionID + "|" + playerID }

// Up records an open stream: any pending grace timer is cancelled and the
// player is immediately marked connected.
func (t *Tracker) Up(sessionID, playerID string) {
	t.mu.Lock()
	if timer, ok := t.timers[key(sessionID, playerID)]; ok {
		timer.Stop()
		delete(t.timers, key(sessionID, playerID))
	}
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	t.marker.MarkConnected(context.Background(), sessionID, playerID)
}

// Down records a closed or failed stream and schedules the disconnect
// mark after the grace period. A reconnect within the window cancels it.
func (t *Tracker) Down(sessionID, playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	k := key(sessionID, playerID)
	if timer, ok := t.timers[k]; ok {
		timer.Stop()
	}
	if t.grace <= 0 {
		delete(t.timers, k)
		go t.marker.MarkDisconnected(context.Background(), sessionID, playerID)
		return
	}
	t.timers[k] = time.AfterFunc(t.grace, func() {
		t.mu.Lock()
		delete(t.timers, k)
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return
		}
		obslog.L().Info("disconnect_grace_elapsed",
			zap.String("session_id", sessionID),
			zap.String("player_id", playerID),
		)
		t.marker.MarkDisconnected(context.Background(), sessionID, playerID)
	})
}

// Close stops all pending timers; further signals are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for k, timer := range t.timers {
		timer.Stop()
		delete(t.timers, k)
	}
}
