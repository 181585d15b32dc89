package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/marrakech-go/internal/conntrack"
	"github.com/kapu/marrakech-go/internal/engine"
	"github.com/kapu/marrakech-go/internal/live"
	"github.com/kapu/marrakech-go/internal/obslog"
	"github.com/kapu/marrakech-go/internal/session"
)

// Feed serves the push-style live update stream. Each mutation committed
// by the engine reaches every subscriber in commit order; a client whose
// stream fails converges through the point-in-time state fetch.
type Feed struct {
	hub   *live.Hub
	eng   *engine.Engine
	reg   *session.Registry
	track *conntrack.Tracker
	srv   *http.Server

	pingInterval time.Duration
}

func NewFeed(hub *live.Hub, eng *engine.Engine, reg *session.Registry, track *conntrack.Tracker) *Feed {
	f := &Feed{
		hub:          hub,
		eng:          eng,
		reg:          reg,
		track:        track,
		pingInterval: 30 * time.Second,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/sessions/", f.serveWS)
	f.srv = &http.Server{Handler: mux}
	return f
}

func (f *Feed) ListenAndServe(addr string) error {
	f.srv.Addr = addr
	err := f.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (f *Feed) Shutdown(ctx context.Context) error {
	return f.srv.Shutdown(ctx)
}

func (f *Feed) serveWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "bad session path", http.StatusBadRequest)
		return
	}
	playerID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if playerID == "" {
		playerID = strings.TrimSpace(r.URL.Query().Get("player"))
	}

	s, err := f.reg.Get(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if playerID != "" && !s.HasPlayer(playerID) {
		http.Error(w, "player not in session", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return
	}

	obslog.L().Info("feed_open",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
	)

	sub := f.hub.Subscribe(sessionID)
	if playerID != "" {
		f.track.Up(sessionID, playerID)
	}
	defer func() {
		sub.Cancel()
		if playerID != "" {
			f.track.Down(sessionID, playerID)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		obslog.L().Info("feed_close",
			zap.String("session_id", sessionID),
			zap.String("player_id", playerID),
		)
	}()

	// Subscribers ignore inbound frames; CloseRead surfaces peer closure
	// through context cancellation.
	ctx := conn.CloseRead(r.Context())

	// Seed the stream with the current state when the hub has not seen a
	// commit yet (e.g. after rehydration from the store).
	if f.hub.Pull(sessionID) == nil {
		if g, err := f.eng.State(ctx, sessionID); err == nil {
			if werr := wsjson.Write(ctx, conn, toStateView(g)); werr != nil {
				return
			}
		}
	}

	ping := time.NewTicker(f.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case state, ok := <-sub.Updates():
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(wctx, conn, toStateView(state))
			cancel()
			if err != nil {
				return
			}
		}
	}
}
