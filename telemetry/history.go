package telemetry

import (
	"slices"

	"github.com/nstehr/rampart/rampart-core/model"
)

// CellHistory is everything recorded about one cell over a match. The turn
// lists only grow; a turn appears once per event, so repeats are meaningful.
type CellHistory struct {
	AttackTurns []int                   `json:"attackTurns,omitempty"` // a unit here dealt damage
	DamageTurns []int                   `json:"damageTurns,omitempty"` // a unit here took damage
	BreachTurns []int                   `json:"breachTurns,omitempty"`
	RemoveTurns []int                   `json:"removeTurns,omitempty"`
	SpawnCounts [model.NumUnitTypes]int `json:"spawnCounts"`
}

func (h CellHistory) clone() CellHistory {
	h.AttackTurns = slices.Clone(h.AttackTurns)
	h.DamageTurns = slices.Clone(h.DamageTurns)
	h.BreachTurns = slices.Clone(h.BreachTurns)
	h.RemoveTurns = slices.Clone(h.RemoveTurns)
	return h
}

// Kind selects one of the per-cell turn lists.
type Kind int

const (
	Attacks Kind = iota
	Damage
	Breaches
	Removals
)

func (h *CellHistory) turns(k Kind) []int {
	switch k {
	case Attacks:
		return h.AttackTurns
	case Damage:
		return h.DamageTurns
	case Breaches:
		return h.BreachTurns
	default:
		return h.RemoveTurns
	}
}

func (h *CellHistory) appendTurn(k Kind, turn int) {
	switch k {
	case Attacks:
		h.AttackTurns = append(h.AttackTurns, turn)
	case Damage:
		h.DamageTurns = append(h.DamageTurns, turn)
	case Breaches:
		h.BreachTurns = append(h.BreachTurns, turn)
	default:
		h.RemoveTurns = append(h.RemoveTurns, turn)
	}
}

// History holds the per-cell counters of one player for a whole match. It has
// a single writer, the decoder, and is read by the policy between decodes.
type History struct {
	size  int
	cells []CellHistory
}

func NewHistory(size int) *History {
	return &History{size: size, cells: make([]CellHistory, size*size)}
}

func (h *History) index(c model.Cell) (int, bool) {
	if c.X < 0 || c.Y < 0 || c.X >= h.size || c.Y >= h.size {
		return 0, false
	}
	return c.Y*h.size + c.X, true
}

// At returns a copy of the history of c.
func (h *History) At(c model.Cell) CellHistory {
	i, ok := h.index(c)
	if !ok {
		return CellHistory{}
	}
	return h.cells[i].clone()
}

// Count returns how many k events at c happened on or after turn since.
func (h *History) Count(k Kind, c model.Cell, since int) int {
	i, ok := h.index(c)
	if !ok {
		return 0
	}
	n := 0
	for _, turn := range h.cells[i].turns(k) {
		if turn >= since {
			n++
		}
	}
	return n
}

// Spawned returns the lifetime spawn count of t at c.
func (h *History) Spawned(c model.Cell, t model.UnitType) int {
	i, ok := h.index(c)
	if !ok || !t.Valid() {
		return 0
	}
	return h.cells[i].SpawnCounts[t]
}

// Hot returns, in row-major order, the cells with at least min k events on or
// after turn since.
func (h *History) Hot(k Kind, since, min int) []model.Cell {
	var out []model.Cell
	for i := range h.cells {
		c := model.Cell{X: i % h.size, Y: i / h.size}
		if h.Count(k, c, since) >= min {
			out = append(out, c)
		}
	}
	return out
}

// spawned is the op kind that bumps a lifetime spawn count.
const spawned Kind = -1

// op is one staged history update. A decode collects ops and applies them only
// once every frame has parsed.
type op struct {
	cell model.Cell
	kind Kind
	turn int
	unit model.UnitType
}

func (h *History) apply(ops []op) {
	for _, o := range ops {
		i, ok := h.index(o.cell)
		if !ok {
			continue
		}
		if o.kind == spawned {
			if o.unit.Valid() {
				h.cells[i].SpawnCounts[o.unit]++
			}
			continue
		}
		h.cells[i].appendTurn(o.kind, o.turn)
	}
}
