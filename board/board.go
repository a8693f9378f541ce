package board

import (
	"errors"
	"fmt"
	"math"

	"github.com/nstehr/rampart/rampart-core/model"
)

var (
	ErrOutOfBounds = errors.New("cell out of arena bounds")
	ErrOccupied    = errors.New("cell already holds a stationary unit")
)

// Edge names one of the four diagonal half-edges of the diamond arena.
type Edge int

const (
	TopRight    Edge = 0
	TopLeft     Edge = 1
	BottomLeft  Edge = 2
	BottomRight Edge = 3
)

func (e Edge) String() string {
	switch e {
	case TopRight:
		return "top_right"
	case TopLeft:
		return "top_left"
	case BottomLeft:
		return "bottom_left"
	case BottomRight:
		return "bottom_right"
	}
	return fmt.Sprintf("edge(%d)", int(e))
}

// Opposite returns the edge a unit spawned on e walks toward.
func (e Edge) Opposite() Edge {
	switch e {
	case TopRight:
		return BottomLeft
	case TopLeft:
		return BottomRight
	case BottomLeft:
		return TopRight
	default:
		return TopLeft
	}
}

// Unit is one occupant of a cell.
type Unit struct {
	Type           model.UnitType
	Owner          int // 0 self, 1 opponent
	HP             float64
	X              int
	Y              int
	ID             string // engine id, empty for hypothetical placements
	PendingRemoval bool
}

func (u Unit) Stationary() bool { return u.Type.Stationary() }
func (u Unit) Cell() model.Cell { return model.Cell{X: u.X, Y: u.Y} }

// Board is the square grid of cells. Only the diamond inside the square is
// playable; queries outside it return empty results.
type Board struct {
	size  int
	half  int
	cells [][]Unit // row-major: cells[y*size + x]
}

// New returns an empty board of the given size (model.ArenaSize in real games).
func New(size int) *Board {
	return &Board{
		size:  size,
		half:  size / 2,
		cells: make([][]Unit, size*size),
	}
}

func (b *Board) Size() int { return b.size }
func (b *Board) Half() int { return b.half }

// InBounds reports whether c lies inside the diamond. Each row on our half is
// two cells wider than the one below it, mirrored on the opponent's half.
func (b *Board) InBounds(c model.Cell) bool {
	if c.X < 0 || c.Y < 0 || c.X >= b.size || c.Y >= b.size {
		return false
	}
	rowSize := c.Y + 1
	if c.Y >= b.half {
		rowSize = b.size - c.Y
	}
	start := b.half - rowSize
	end := start + 2*rowSize - 1
	return c.X >= start && c.X <= end
}

func (b *Board) idx(c model.Cell) int { return c.Y*b.size + c.X }

// UnitsAt returns a copy of the units at c in insertion order.
func (b *Board) UnitsAt(c model.Cell) []Unit {
	if !b.InBounds(c) {
		return nil
	}
	units := b.cells[b.idx(c)]
	if len(units) == 0 {
		return nil
	}
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}

// AddUnit appends u to its cell. A second stationary unit on a cell is rejected.
func (b *Board) AddUnit(u Unit) error {
	c := u.Cell()
	if !b.InBounds(c) {
		return fmt.Errorf("add %d at %s: %w", int(u.Type), c, ErrOutOfBounds)
	}
	if u.Stationary() {
		if _, ok := b.StationaryAt(c); ok {
			return fmt.Errorf("add %d at %s: %w", int(u.Type), c, ErrOccupied)
		}
	}
	i := b.idx(c)
	b.cells[i] = append(b.cells[i], u)
	return nil
}

// StationaryAt returns the stationary unit at c, if any.
func (b *Board) StationaryAt(c model.Cell) (Unit, bool) {
	if !b.InBounds(c) {
		return Unit{}, false
	}
	for _, u := range b.cells[b.idx(c)] {
		if u.Stationary() {
			return u, true
		}
	}
	return Unit{}, false
}

// Blocked reports whether c holds a stationary unit. Out-of-bounds cells are
// not blocked; path search checks bounds separately.
func (b *Board) Blocked(c model.Cell) bool {
	_, ok := b.StationaryAt(c)
	return ok
}

// MarkPendingRemoval flags the stationary unit at c for removal.
func (b *Board) MarkPendingRemoval(c model.Cell) bool {
	if !b.InBounds(c) {
		return false
	}
	units := b.cells[b.idx(c)]
	for i := range units {
		if units[i].Stationary() {
			units[i].PendingRemoval = true
			return true
		}
	}
	return false
}

// RemoveUnit deletes the most recently added unit of type t at c.
func (b *Board) RemoveUnit(c model.Cell, t model.UnitType) bool {
	if !b.InBounds(c) {
		return false
	}
	i := b.idx(c)
	units := b.cells[i]
	for j := len(units) - 1; j >= 0; j-- {
		if units[j].Type == t {
			b.cells[i] = append(units[:j:j], units[j+1:]...)
			return true
		}
	}
	return false
}

// Clear empties c.
func (b *Board) Clear(c model.Cell) {
	if b.InBounds(c) {
		b.cells[b.idx(c)] = nil
	}
}

// EdgeCells returns the cells of e ordered from the centre line outward.
func (b *Board) EdgeCells(e Edge) []model.Cell {
	out := make([]model.Cell, 0, b.half)
	for n := 0; n < b.half; n++ {
		var c model.Cell
		switch e {
		case TopRight:
			c = model.Cell{X: b.half + n, Y: b.size - 1 - n}
		case TopLeft:
			c = model.Cell{X: b.half - 1 - n, Y: b.size - 1 - n}
		case BottomLeft:
			c = model.Cell{X: b.half - 1 - n, Y: n}
		case BottomRight:
			c = model.Cell{X: b.half + n, Y: n}
		default:
			return nil
		}
		out = append(out, c)
	}
	return out
}

// OnEdge reports whether c belongs to any of the given edges.
func (b *Board) OnEdge(c model.Cell, edges ...Edge) bool {
	for _, e := range edges {
		for _, ec := range b.EdgeCells(e) {
			if ec == c {
				return true
			}
		}
	}
	return false
}

// Neighbors returns the in-bounds cells whose Euclidean distance from c is in
// (0, radius]. Radius 1 gives the four orthogonal cells, 1.5 adds diagonals.
func (b *Board) Neighbors(c model.Cell, radius float64) []model.Cell {
	if radius <= 0 {
		return nil
	}
	r := int(math.Floor(radius))
	var out []model.Cell
	for x := c.X - r; x <= c.X+r; x++ {
		for y := c.Y - r; y <= c.Y+r; y++ {
			n := model.Cell{X: x, Y: y}
			if n == c || !b.InBounds(n) {
				continue
			}
			if Distance(c, n) <= radius {
				out = append(out, n)
			}
		}
	}
	return out
}

// Row returns the in-bounds cells of row y from left to right.
func (b *Board) Row(y int) []model.Cell {
	var out []model.Cell
	for x := 0; x < b.size; x++ {
		c := model.Cell{X: x, Y: y}
		if b.InBounds(c) {
			out = append(out, c)
		}
	}
	return out
}

// OwnHalf reports whether c is on player's side of the centre line.
func (b *Board) OwnHalf(c model.Cell, player int) bool {
	if player == 0 {
		return c.Y < b.half
	}
	return c.Y >= b.half
}

// Clone returns a deep copy for hypothetical placements.
func (b *Board) Clone() *Board {
	nb := New(b.size)
	for i, units := range b.cells {
		if len(units) > 0 {
			nb.cells[i] = append([]Unit(nil), units...)
		}
	}
	return nb
}

// Distance is the Euclidean distance between two cells.
func Distance(a, b model.Cell) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
