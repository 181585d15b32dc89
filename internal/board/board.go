package board

import (
	"errors"
	"fmt"

	"github.com/kapu/marrakech-go/internal/domain"
)

// The piece travels the closed loop formed by the boundary cells of an
// N×N grid. There is no reflective bounce: corner traversal is a
// deterministic reorientation baked into a precomputed
// (cell, heading) → (next cell, next heading) table covering all four
// headings for every loop cell. Coordinates follow the board's screen
// orientation: y grows downward, so "up" decrements y.

var (
	// ErrOffLoop reports a piece that is not on the boundary path. Pieces
	// are loop-confined by construction, so this is an invariant
	// violation, not a client-facing condition.
	ErrOffLoop = errors.New("piece not on loop path")
	// ErrBadSteps reports a non-positive step budget.
	ErrBadSteps = errors.New("step count must be positive")
)

type cell struct{ x, y int }

type hop struct {
	next    cell
	heading domain.Heading
}

// Board owns the loop topology for one grid size.
type Board struct {
	n     int
	ring  []cell
	steps map[cell]map[domain.Heading]hop
}

// New builds the loop adjacency for an n×n grid, n >= 3.
func New(n int) (*Board, error) {
	if n < 3 {
		return nil, fmt.Errorf("board size must be >= 3, got %d", n)
	}
	b := &Board{n: n}
	b.buildRing()
	b.buildSteps()
	return b, nil
}

// buildRing lists the boundary cells in clockwise order starting at (0,0):
// top row left→right, right column top→bottom, bottom row right→left,
// left column bottom→top.
func (b *Board) buildRing() {
	n := b.n
	ring := make([]cell, 0, 4*(n-1))
	for x := 0; x < n-1; x++ {
		ring = append(ring, cell{x, 0})
	}
	for y := 0; y < n-1; y++ {
		ring = append(ring, cell{n - 1, y})
	}
	for x := n - 1; x > 0; x-- {
		ring = append(ring, cell{x, n - 1})
	}
	for y := n - 1; y > 0; y-- {
		ring = append(ring, cell{0, y})
	}
	b.ring = ring
}

// buildSteps precomputes one hop per (cell, heading). A heading matching
// the loop's local direction travels that sense; any other heading is
// normalized to the clockwise sense so the piece never leaves the loop.
func (b *Board) buildSteps() {
	l := len(b.ring)
	b.steps = make(map[cell]map[domain.Heading]hop, l)
	for i, c := range b.ring {
		cwNext := b.ring[(i+1)%l]
		ccwNext := b.ring[(i-1+l)%l]
		cwHop := hop{next: cwNext, heading: headingBetween(cwNext, b.ring[(i+2)%l])}
		ccwHop := hop{next: ccwNext, heading: headingBetween(ccwNext, b.ring[(i-2+l)%l])}
		cwHere := headingBetween(c, cwNext)
		ccwHere := headingBetween(c, ccwNext)

		hops := make(map[domain.Heading]hop, 4)
		for _, h := range []domain.Heading{domain.HeadingUp, domain.HeadingDown, domain.HeadingLeft, domain.HeadingRight} {
			switch h {
			case cwHere:
				hops[h] = cwHop
			case ccwHere:
				hops[h] = ccwHop
			default:
				hops[h] = cwHop
			}
		}
		b.steps[c] = hops
	}
}

func headingBetween(from, to cell) domain.Heading {
	switch {
	case to.x > from.x:
		return domain.HeadingRight
	case to.x < from.x:
		return domain.HeadingLeft
	case to.y > from.y:
		return domain.HeadingDown
	default:
		return domain.HeadingUp
	}
}

// LoopLen returns the number of cells on the boundary path.
func (b *Board) LoopLen() int { return len(b.ring) }

// Start returns the configured start cell and its clockwise heading.
func (b *Board) Start() (x, y int, h domain.Heading) {
	return 0, 0, domain.HeadingRight
}

// OnLoop reports whether (x, y) lies on the boundary path.
func (b *Board) OnLoop(x, y int) bool {
	_, ok := b.steps[cell{x, y}]
	return ok
}

// Turn rotates a heading 90° for left/right and leaves it unchanged for
// forward. Exactly one turn is applied per move resolution, before the
// advance.
func Turn(h domain.Heading, dir domain.Direction) domain.Heading {
	switch dir {
	case domain.DirLeft:
		switch h {
		case domain.HeadingUp:
			return domain.HeadingLeft
		case domain.HeadingLeft:
			return domain.HeadingDown
		case domain.HeadingDown:
			return domain.HeadingRight
		default:
			return domain.HeadingUp
		}
	case domain.DirRight:
		switch h {
		case domain.HeadingUp:
			return domain.HeadingRight
		case domain.HeadingRight:
			return domain.HeadingDown
		case domain.HeadingDown:
			return domain.HeadingLeft
		default:
			return domain.HeadingUp
		}
	default:
		return h
	}
}

// Advance walks the piece steps cells along the loop in its current
// heading, reorienting at corners via the precomputed table, and
// increments the piece's traveled counter per cell.
func (b *Board) Advance(p *domain.Piece, steps int) error {
	if steps <= 0 {
		return ErrBadSteps
	}
	hops, ok := b.steps[cell{p.X, p.Y}]
	if !ok {
		return ErrOffLoop
	}
	for i := 0; i < steps; i++ {
		h := hops[p.Heading]
		p.X, p.Y, p.Heading = h.next.x, h.next.y, h.heading
		p.Traveled++
		hops = b.steps[cell{p.X, p.Y}]
	}
	return nil
}
