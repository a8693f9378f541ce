package pathing

import (
	"errors"
	"fmt"
	"math"

	"github.com/nstehr/rampart/rampart-core/board"
	"github.com/nstehr/rampart/rampart-core/model"
)

// ErrStartBlocked is returned when the search start is out of bounds or holds a
// stationary unit.
var ErrStartBlocked = errors.New("path start is blocked")

// Grid is the occupancy view the searches need. *board.Board implements it.
type Grid interface {
	Size() int
	Half() int
	InBounds(c model.Cell) bool
	Blocked(c model.Cell) bool
	EdgeCells(e board.Edge) []model.Cell
}

// Neighbour orders. Changing them changes which of several equal paths wins.
var (
	orthogonal = []model.Cell{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}
	frontier   = []model.Cell{
		{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: -1}, {X: 0, Y: 1},
		{X: 0, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1}, {X: -1, Y: 0},
	}
)

// ShortestPath returns the cells a mobile unit walks from start to the nearest
// cell of edge, start and end inclusive. The search is a single FIFO BFS over
// free cells; the first edge cell dequeued wins, so ties go to discovery order.
//
// When the edge cannot be reached the path ends at the reachable cell that gets
// furthest toward it, which is where such a unit self-destructs.
func ShortestPath(g Grid, start model.Cell, edge board.Edge) ([]model.Cell, error) {
	if !g.InBounds(start) || g.Blocked(start) {
		return nil, fmt.Errorf("%w: %s", ErrStartBlocked, start)
	}

	targets := make(map[model.Cell]bool)
	for _, c := range g.EdgeCells(edge) {
		targets[c] = true
	}

	parent := map[model.Cell]model.Cell{}
	visited := map[model.Cell]bool{start: true}
	queue := []model.Cell{start}

	best := start
	bestProgress := progress(start, edge)
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if targets[cur] {
			return trace(parent, start, cur), nil
		}
		// Dequeue order is non-decreasing in distance, so the first cell seen at
		// a given progress is also the nearest one.
		if p := progress(cur, edge); p > bestProgress {
			best, bestProgress = cur, p
		}
		for _, d := range orthogonal {
			n := model.Cell{X: cur.X + d.X, Y: cur.Y + d.Y}
			if visited[n] || !g.InBounds(n) || g.Blocked(n) {
				continue
			}
			visited[n] = true
			parent[n] = cur
			queue = append(queue, n)
		}
	}
	return trace(parent, start, best), nil
}

// progress scores how far c has advanced toward edge.
func progress(c model.Cell, edge board.Edge) int {
	switch edge {
	case board.TopRight:
		return c.X + c.Y
	case board.TopLeft:
		return c.Y - c.X
	case board.BottomLeft:
		return -c.X - c.Y
	default:
		return c.X - c.Y
	}
}

func trace(parent map[model.Cell]model.Cell, start, end model.Cell) []model.Cell {
	var rev []model.Cell
	for c := end; ; c = parent[c] {
		rev = append(rev, c)
		if c == start {
			break
		}
	}
	path := make([]model.Cell, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

// FrontierLine traces the cheapest line across player's half from the left
// boundary to the right boundary of the row nearest the centre. Stepping onto
// a free cell costs 1 and onto a stationary unit costs 0, so the line hugs
// existing walls and its free cells are the openings an attacker can use.
// The line is returned from the right end back to the left end.
//
// Cells are expanded layer by layer with one FIFO queue per cost. A zero-cost
// step joins the back of the layer being drained, so ties between equally
// cheap lines go to discovery order. A cell's parent only changes on strict
// improvement.
func FrontierLine(g Grid, player int) ([]model.Cell, error) {
	if err := model.CheckPlayer(player); err != nil {
		return nil, err
	}
	row := g.Half() - 1 + player
	start := model.Cell{X: 0, Y: row}
	end := model.Cell{X: g.Size() - 1, Y: row}

	ownHalf := func(c model.Cell) bool {
		if player == 0 {
			return c.Y < g.Half()
		}
		return c.Y >= g.Half()
	}
	cost := func(c model.Cell) int {
		if g.Blocked(c) {
			return 0
		}
		return 1
	}

	dist := map[model.Cell]int{start: cost(start)}
	parent := map[model.Cell]model.Cell{}
	visited := map[model.Cell]bool{}
	var layers [][]model.Cell
	push := func(d int, c model.Cell) {
		for len(layers) <= d {
			layers = append(layers, nil)
		}
		layers[d] = append(layers[d], c)
	}
	push(dist[start], start)

	// layers[d] grows while it is drained, so its length is re-read each step.
	for d := 0; d < len(layers) && !visited[end]; d++ {
		for i := 0; i < len(layers[d]); i++ {
			cur := layers[d][i]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			if cur == end {
				break
			}
			for _, step := range frontier {
				n := model.Cell{X: cur.X + step.X, Y: cur.Y + step.Y}
				if !g.InBounds(n) || !ownHalf(n) || visited[n] {
					continue
				}
				nd := d + cost(n)
				if old, seen := dist[n]; !seen || nd < old {
					dist[n] = nd
					parent[n] = cur
				}
				push(nd, n)
			}
		}
	}
	if !visited[end] {
		return nil, fmt.Errorf("frontier line for player %d: %s unreachable from %s", player, end, start)
	}

	line := []model.Cell{end}
	for c := end; c != start; {
		c = parent[c]
		line = append(line, c)
	}
	return line, nil
}

// Openings returns the cells of line that hold no stationary unit.
func Openings(g Grid, line []model.Cell) []model.Cell {
	var out []model.Cell
	for _, c := range line {
		if !g.Blocked(c) {
			out = append(out, c)
		}
	}
	return out
}

// BlockingCells returns, for every free cell on the opponent's front row, the
// cell directly below it on our front row. Building there closes the gap.
func BlockingCells(g Grid) []model.Cell {
	var out []model.Cell
	y := g.Half()
	for x := 0; x < g.Size(); x++ {
		c := model.Cell{X: x, Y: y}
		if g.InBounds(c) && !g.Blocked(c) {
			out = append(out, model.Cell{X: x, Y: y - 1})
		}
	}
	return out
}

// CanBlockOpenings reports whether every opening lies on the opponent's front
// row, where BlockingCells can answer it.
func CanBlockOpenings(g Grid, openings []model.Cell) bool {
	for _, c := range openings {
		if c.Y != g.Half() {
			return false
		}
	}
	return true
}

// Nearest returns the cell of cells closest to c, first wins on ties.
func Nearest(c model.Cell, cells []model.Cell) (model.Cell, bool) {
	best, bestDist := model.Cell{}, math.Inf(1)
	for _, o := range cells {
		if d := board.Distance(c, o); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best, len(cells) > 0
}
