package live

import (
	"testing"
	"time"

	"github.com/kapu/marrakech-go/internal/domain"
)

func state(n int) *domain.GameState {
	return &domain.GameState{ID: "g", SessionID: "s", MoveNumber: n}
}

func recv(t *testing.T, sub *Subscription) *domain.GameState {
	t.Helper()
	select {
	case g, ok := <-sub.Updates():
		if !ok {
			t.Fatalf("subscription closed")
		}
		return g
	case <-time.After(time.Second):
		t.Fatalf("no update within deadline")
		return nil
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("s")
	defer sub.Cancel()

	h.Publish("s", state(1))
	if g := recv(t, sub); g.MoveNumber != 1 {
		t.Fatalf("got move %d", g.MoveNumber)
	}
}

func TestSubscribeSeedsLatest(t *testing.T) {
	h := NewHub()
	h.Publish("s", state(5))

	sub := h.Subscribe("s")
	defer sub.Cancel()
	if g := recv(t, sub); g.MoveNumber != 5 {
		t.Fatalf("seed: got move %d", g.MoveNumber)
	}
}

func TestLaggingSubscriberCoalescesToNewest(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("s")
	defer sub.Cancel()

	// Nobody reading: each publish overwrites the buffered value.
	for n := 1; n <= 10; n++ {
		h.Publish("s", state(n))
	}
	if g := recv(t, sub); g.MoveNumber != 10 {
		t.Fatalf("lagging subscriber saw move %d, want 10", g.MoveNumber)
	}
	select {
	case g := <-sub.Updates():
		t.Fatalf("unexpected extra update: %+v", g)
	default:
	}
}

func TestPullReturnsLatest(t *testing.T) {
	h := NewHub()
	if g := h.Pull("s"); g != nil {
		t.Fatalf("pull before publish: %+v", g)
	}
	h.Publish("s", state(1))
	h.Publish("s", state(2))
	if g := h.Pull("s"); g == nil || g.MoveNumber != 2 {
		t.Fatalf("pull: %+v", g)
	}
	// Pull does not consume.
	if g := h.Pull("s"); g == nil || g.MoveNumber != 2 {
		t.Fatalf("second pull: %+v", g)
	}
}

func TestPublishNilIsIgnored(t *testing.T) {
	h := NewHub()
	h.Publish("s", nil)
	if g := h.Pull("s"); g != nil {
		t.Fatalf("nil publish recorded: %+v", g)
	}
}

func TestCancelClosesAndIsIdempotent(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("s")
	sub.Cancel()
	sub.Cancel()

	if _, ok := <-sub.Updates(); ok {
		t.Fatalf("channel open after Cancel")
	}
	// Publishing after cancel must not panic or resurrect the feed slot.
	h.Publish("s", state(1))
}

func TestDropClosesAllSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("s")
	b := h.Subscribe("s")
	h.Publish("s", state(1))
	h.Drop("s")

	drain := func(sub *Subscription) {
		t.Helper()
		for {
			select {
			case _, ok := <-sub.Updates():
				if !ok {
					return
				}
			case <-time.After(time.Second):
				t.Fatalf("subscription not closed by Drop")
			}
		}
	}
	drain(a)
	drain(b)
	if g := h.Pull("s"); g != nil {
		t.Fatalf("state survived Drop: %+v", g)
	}
	// Cancel after Drop is a no-op.
	a.Cancel()
}

func TestIndependentSessions(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("s1")
	defer sub.Cancel()

	h.Publish("s2", state(7))
	select {
	case g := <-sub.Updates():
		t.Fatalf("cross-session delivery: %+v", g)
	default:
	}
}
