package live

import (
	"sync"

	"github.com/kapu/marrakech-go/internal/domain"
)

// Hub fans committed game states out to per-session subscribers and keeps
// the latest committed state around so polling clients converge through
// Pull even after stream failures. Publishing never blocks the committing
// mutation: each subscriber channel buffers one state and a slow consumer
// is coalesced to the newest value.

// Subscription is one client's live feed. Updates() yields states in
// commit order, latest-wins under lag; Cancel releases the slot and is
// safe to call more than once.
type Subscription struct {
	ch     chan *domain.GameState
	cancel func()
	once   sync.Once
}

func (s *Subscription) Updates() <-chan *domain.GameState { return s.ch }

func (s *Subscription) Cancel() { s.once.Do(s.cancel) }

type sessionFeed struct {
	subs   map[*Subscription]struct{}
	latest *domain.GameState
}

type Hub struct {
	mu    sync.RWMutex
	feeds map[string]*sessionFeed
}

func NewHub() *Hub {
	return &Hub{feeds: make(map[string]*sessionFeed)}
}

// Subscribe opens a live feed for one session. The current state, if any,
// is delivered immediately so new subscribers start from the latest
// commit.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[sessionID]
	if !ok {
		f = &sessionFeed{subs: make(map[*Subscription]struct{})}
		h.feeds[sessionID] = f
	}
	sub := &Subscription{ch: make(chan *domain.GameState, 1)}
	sub.cancel = func() { h.unsubscribe(sessionID, sub) }
	f.subs[sub] = struct{}{}
	if f.latest != nil {
		sub.ch <- f.latest
	}
	return sub
}

func (h *Hub) unsubscribe(sessionID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[sessionID]
	if !ok {
		return
	}
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	close(sub.ch)
	if len(f.subs) == 0 && f.latest == nil {
		delete(h.feeds, sessionID)
	}
}

// Publish records state as the latest commit and offers it to every
// subscriber without blocking; a full buffer is drained first so the
// subscriber always observes the newest state next.
func (h *Hub) Publish(sessionID string, state *domain.GameState) {
	if state == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[sessionID]
	if !ok {
		f = &sessionFeed{subs: make(map[*Subscription]struct{})}
		h.feeds[sessionID] = f
	}
	f.latest = state
	for sub := range f.subs {
		select {
		case sub.ch <- state:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- state:
			default:
			}
		}
	}
}

// Pull returns the latest committed state, or nil when nothing has been
// published for the session.
func (h *Hub) Pull(sessionID string) *domain.GameState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if f, ok := h.feeds[sessionID]; ok {
		return f.latest
	}
	return nil
}

// Drop closes every subscription for a session and forgets its state.
func (h *Hub) Drop(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[sessionID]
	if !ok {
		return
	}
	for sub := range f.subs {
		delete(f.subs, sub)
		close(sub.ch)
	}
	delete(h.feeds, sessionID)
}
