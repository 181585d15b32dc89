package conntrack

import (
	"context"
	"sync"
	"testing"
	"time"
)

type markerSpy struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
}

func (m *markerSpy) MarkConnected(_ context.Context, sessionID, playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = append(m.connected, key(sessionID, playerID))
}

func (m *markerSpy) MarkDisconnected(_ context.Context, sessionID, playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = append(m.disconnected, key(sessionID, playerID))
}

func (m *markerSpy) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.connected), len(m.disconnected)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestUpMarksConnected(t *testing.T) {
	spy := &markerSpy{}
	tr := New(spy, time.Second)
	defer tr.Close()

	tr.Up("s", "p")
	up, down := spy.counts()
	if up != 1 || down != 0 {
		t.Fatalf("counts: up=%d down=%d", up, down)
	}
}

func TestDownFiresAfterGrace(t *testing.T) {
	spy := &markerSpy{}
	tr := New(spy, 20*time.Millisecond)
	defer tr.Close()

	tr.Down("s", "p")
	if _, down := spy.counts(); down != 0 {
		t.Fatalf("disconnect fired before grace elapsed")
	}
	waitFor(t, func() bool { _, down := spy.counts(); return down == 1 })
}

func TestReconnectWithinGraceCancelsDisconnect(t *testing.T) {
	spy := &markerSpy{}
	tr := New(spy, 50*time.Millisecond)
	defer tr.Close()

	tr.Down("s", "p")
	tr.Up("s", "p")

	time.Sleep(120 * time.Millisecond)
	up, down := spy.counts()
	if down != 0 {
		t.Fatalf("cancelled timer still fired (down=%d)", down)
	}
	if up != 1 {
		t.Fatalf("reconnect not marked (up=%d)", up)
	}
}

func TestRepeatedDownCoalescesToOneTimer(t *testing.T) {
	spy := &markerSpy{}
	tr := New(spy, 20*time.Millisecond)
	defer tr.Close()

	tr.Down("s", "p")
	tr.Down("s", "p")
	tr.Down("s", "p")

	waitFor(t, func() bool { _, down := spy.counts(); return down >= 1 })
	time.Sleep(60 * time.Millisecond)
	if _, down := spy.counts(); down != 1 {
		t.Fatalf("expected one disconnect mark, got %d", down)
	}
}

func TestZeroGraceFiresImmediately(t *testing.T) {
	spy := &markerSpy{}
	tr := New(spy, 0)
	defer tr.Close()

	tr.Down("s", "p")
	waitFor(t, func() bool { _, down := spy.counts(); return down == 1 })
}

func TestCloseStopsPendingTimers(t *testing.T) {
	spy := &markerSpy{}
	tr := New(spy, 20*time.Millisecond)

	tr.Down("s", "p")
	tr.Close()

	time.Sleep(60 * time.Millisecond)
	if _, down := spy.counts(); down != 0 {
		t.Fatalf("timer fired after Close (down=%d)", down)
	}

	// Signals after Close are ignored.
	tr.Up("s", "p")
	tr.Down("s", "p")
	time.Sleep(30 * time.Millisecond)
	up, down := spy.counts()
	if up != 0 || down != 0 {
		t.Fatalf("marks after Close: up=%d down=%d", up, down)
	}
}

func TestPlayersTrackedIndependently(t *testing.T) {
	spy := &markerSpy{}
	tr := New(spy, 20*time.Millisecond)
	defer tr.Close()

	tr.Down("s", "p1")
	tr.Down("s", "p2")
	tr.Up("s", "p1")

	waitFor(t, func() bool { _, down := spy.counts(); return down == 1 })
	spy.mu.Lock()
	got := spy.disconnected[0]
	spy.mu.Unlock()
	if got != key("s", "p2") {
		t.Fatalf("wrong player disconnected: %s", got)
	}
}
