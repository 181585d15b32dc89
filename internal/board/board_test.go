package board

import (
	"testing"

	"github.com/kapu/marrakech-go/internal/domain"
)

func mustBoard(t *testing.T, n int) *Board {
	t.Helper()
	b, err := New(n)
	if err != nil {
		t.Fatalf("New(%d): %v", n, err)
	}
	return b
}

func TestLoopLen(t *testing.T) {
	for _, tc := range []struct{ n, want int }{
		{3, 8},
		{5, 16},
		{7, 24},
	} {
		b := mustBoard(t, tc.n)
		if got := b.LoopLen(); got != tc.want {
			t.Fatalf("LoopLen for n=%d: got %d want %d", tc.n, got, tc.want)
		}
	}
}

func TestNewRejectsTinyBoard(t *testing.T) {
	if _, err := New(2); err == nil {
		t.Fatalf("expected error for n=2")
	}
}

func TestFullLoopReturnsToStart(t *testing.T) {
	b := mustBoard(t, 7)
	x, y, h := b.Start()
	p := domain.Piece{X: x, Y: y, Heading: h, OriginX: x, OriginY: y}
	if err := b.Advance(&p, b.LoopLen()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !p.AtOrigin() {
		t.Fatalf("expected piece back at origin, got (%d,%d)", p.X, p.Y)
	}
	if p.Traveled != b.LoopLen() {
		t.Fatalf("traveled %d, want %d", p.Traveled, b.LoopLen())
	}
	if p.Heading != h {
		t.Fatalf("heading after full loop: got %s want %s", p.Heading, h)
	}
}

// Every boundary cell, stepped loop-length times in any heading, must come
// back to itself without ever leaving the loop.
func TestLoopClosedFromEveryCell(t *testing.T) {
	b := mustBoard(t, 7)
	headings := []domain.Heading{domain.HeadingUp, domain.HeadingDown, domain.HeadingLeft, domain.HeadingRight}
	for _, c := range b.ring {
		for _, h := range headings {
			p := domain.Piece{X: c.x, Y: c.y, Heading: h}
			for i := 0; i < b.LoopLen(); i++ {
				if err := b.Advance(&p, 1); err != nil {
					t.Fatalf("Advance from (%d,%d,%s) step %d: %v", c.x, c.y, h, i, err)
				}
				if !b.OnLoop(p.X, p.Y) {
					t.Fatalf("piece left the loop at (%d,%d)", p.X, p.Y)
				}
			}
			if p.X != c.x || p.Y != c.y {
				t.Fatalf("loop not closed from (%d,%d,%s): ended at (%d,%d)", c.x, c.y, h, p.X, p.Y)
			}
		}
	}
}

func TestCornerReorientsHeading(t *testing.T) {
	b := mustBoard(t, 7)
	// One step clockwise from the top-right corner turns the heading down
	// the right column.
	p := domain.Piece{X: 6, Y: 0, Heading: domain.HeadingRight}
	if err := b.Advance(&p, 1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if p.X != 6 || p.Y != 1 || p.Heading != domain.HeadingDown {
		t.Fatalf("corner step: got (%d,%d,%s), want (6,1,down)", p.X, p.Y, p.Heading)
	}
}

func TestCounterClockwiseTravel(t *testing.T) {
	b := mustBoard(t, 7)
	// Heading left on the top row runs against the clockwise sense, so
	// the piece travels counter-clockwise and wraps through (0,0) into
	// the left column.
	p := domain.Piece{X: 1, Y: 0, Heading: domain.HeadingLeft}
	if err := b.Advance(&p, 2); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if p.X != 0 || p.Y != 1 || p.Heading != domain.HeadingDown {
		t.Fatalf("ccw travel: got (%d,%d,%s), want (0,1,down)", p.X, p.Y, p.Heading)
	}
}

func TestTurnRotations(t *testing.T) {
	for _, tc := range []struct {
		h    domain.Heading
		dir  domain.Direction
		want domain.Heading
	}{
		{domain.HeadingUp, domain.DirLeft, domain.HeadingLeft},
		{domain.HeadingUp, domain.DirRight, domain.HeadingRight},
		{domain.HeadingRight, domain.DirLeft, domain.HeadingUp},
		{domain.HeadingRight, domain.DirRight, domain.HeadingDown},
		{domain.HeadingDown, domain.DirLeft, domain.HeadingRight},
		{domain.HeadingDown, domain.DirRight, domain.HeadingLeft},
		{domain.HeadingLeft, domain.DirLeft, domain.HeadingDown},
		{domain.HeadingLeft, domain.DirRight, domain.HeadingUp},
		{domain.HeadingUp, domain.DirForward, domain.HeadingUp},
		{domain.HeadingLeft, domain.DirForward, domain.HeadingLeft},
	} {
		if got := Turn(tc.h, tc.dir); got != tc.want {
			t.Fatalf("Turn(%s, %s): got %s want %s", tc.h, tc.dir, got, tc.want)
		}
	}
}

func TestAdvanceInvariantViolations(t *testing.T) {
	b := mustBoard(t, 7)
	p := domain.Piece{X: 3, Y: 3, Heading: domain.HeadingUp} // interior cell
	if err := b.Advance(&p, 1); err != ErrOffLoop {
		t.Fatalf("expected ErrOffLoop, got %v", err)
	}
	q := domain.Piece{X: 0, Y: 0, Heading: domain.HeadingRight}
	if err := b.Advance(&q, 0); err != ErrBadSteps {
		t.Fatalf("expected ErrBadSteps for 0 steps, got %v", err)
	}
	if err := b.Advance(&q, -2); err != ErrBadSteps {
		t.Fatalf("expected ErrBadSteps for negative steps, got %v", err)
	}
}
