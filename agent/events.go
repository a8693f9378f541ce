package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

// EventKind identifies the category of a match event that should trigger
// doctrine re-evaluation by the strategist.
type EventKind string

const (
	EventBreachTaken        EventKind = "breach_taken"
	EventHealthLost         EventKind = "health_lost"
	EventEnemyWall          EventKind = "enemy_wall"
	EventRemovalPattern     EventKind = "removal_pattern"
	EventHorizontalFirewall EventKind = "horizontal_firewall"
)

// Memory flags set by events. Rule conditions read them with Flag("...").
const (
	FlagEnemyWall       = "enemyWall"
	FlagEnemyRemovals   = "enemyRemovals"
	FlagEnemyHorizontal = "enemyHorizontal"
	FlagUnderPressure   = "underPressure"
)

// Event is a significant change detected by diffing consecutive turn states.
type Event struct {
	Kind   EventKind
	Turn   int
	Detail string
}

// stateSnapshot captures the diffable fields of one turn start.
type stateSnapshot struct {
	health       float64
	wallRows     map[int]bool        // enemy rows 14–18 holding a wall
	removalCells map[model.Cell]bool // cells the enemy keeps rebuilding
}

const (
	wallMinFirewalls = 8 // filters + destructors on one row
	wallFirstRow     = model.HalfArena
	wallLastRow      = model.HalfArena + 4
	removalRepeats   = 3
)

// Horizontal opening layout: destructors at the flanks and in pairs along
// row 16, filters closing the rest of the line.
var (
	horizontalDestructors = []model.Cell{
		{X: 0, Y: 14}, {X: 27, Y: 14},
		{X: 6, Y: 16}, {X: 7, Y: 16}, {X: 11, Y: 16}, {X: 12, Y: 16},
		{X: 15, Y: 16}, {X: 16, Y: 16}, {X: 19, Y: 16}, {X: 20, Y: 16},
	}
	horizontalFilters = horizontalFilterCells()
)

func horizontalFilterCells() []model.Cell {
	cells := []model.Cell{{X: 1, Y: 14}, {X: 2, Y: 14}, {X: 25, Y: 14}, {X: 26, Y: 14}, {X: 3, Y: 15}, {X: 24, Y: 15}}
	for x := 4; x <= 23; x++ {
		cells = append(cells, model.Cell{X: x, Y: 16})
	}
	return cells
}

// templateShare is the fraction of cells holding an enemy firewall of type t.
func templateShare(l *ledger.Ledger, t model.UnitType, cells []model.Cell) float64 {
	n := 0
	for _, c := range cells {
		if u, ok := l.StationaryAt(c); ok && u.Owner == 1 && u.Type == t {
			n++
		}
	}
	return float64(n) / float64(len(cells))
}

func matchesHorizontal(l *ledger.Ledger) bool {
	return templateShare(l, model.Destructor, horizontalDestructors) > 0.2 &&
		templateShare(l, model.Filter, horizontalFilters) > 0.2
}

// takeSnapshot captures the current diffable state for next turn's comparison.
func takeSnapshot(l *ledger.Ledger, enemy *telemetry.History) stateSnapshot {
	snap := stateSnapshot{
		health:       l.Health(0),
		wallRows:     make(map[int]bool),
		removalCells: make(map[model.Cell]bool),
	}

	b := l.Board()
	for y := wallFirstRow; y <= wallLastRow; y++ {
		n := 0
		for _, c := range b.Row(y) {
			if u, ok := b.StationaryAt(c); ok && u.Owner == 1 && (u.Type == model.Filter || u.Type == model.Destructor) {
				n++
			}
		}
		if n >= wallMinFirewalls {
			snap.wallRows[y] = true
		}
	}

	if enemy != nil {
		for _, c := range enemy.Hot(telemetry.Removals, 0, removalRepeats) {
			snap.removalCells[c] = true
		}
	}
	return snap
}

// detectEvents compares the turn ledger against the previous snapshot and
// returns any triggered events. report is the enemy's decoded last turn and
// may be nil. Returns nil if prev is nil (first turn).
func detectEvents(l *ledger.Ledger, enemy *telemetry.History, report *telemetry.TurnReport, prev *stateSnapshot) []Event {
	if prev == nil {
		return nil
	}

	var events []Event
	turn := l.Turn()
	cur := takeSnapshot(l, enemy)

	if report != nil {
		if n := report.TotalBreaches(); n > 0 {
			events = append(events, Event{
				Kind:   EventBreachTaken,
				Turn:   turn,
				Detail: fmt.Sprintf("%d enemy units breached our edges on turn %d", n, report.Turn),
			})
		}
	}

	if cur.health < prev.health {
		events = append(events, Event{
			Kind:   EventHealthLost,
			Turn:   turn,
			Detail: fmt.Sprintf("health %.0f → %.0f", prev.health, cur.health),
		})
	}

	if rows := newKeys(prev.wallRows, cur.wallRows); len(rows) > 0 {
		sort.Ints(rows)
		events = append(events, Event{
			Kind:   EventEnemyWall,
			Turn:   turn,
			Detail: fmt.Sprintf("enemy wall on rows %v", rows),
		})
	}

	if cells := newKeys(prev.removalCells, cur.removalCells); len(cells) > 0 {
		sort.Slice(cells, func(i, j int) bool {
			if cells[i].Y != cells[j].Y {
				return cells[i].Y < cells[j].Y
			}
			return cells[i].X < cells[j].X
		})
		events = append(events, Event{
			Kind:   EventRemovalPattern,
			Turn:   turn,
			Detail: fmt.Sprintf("enemy keeps removing %v", cells),
		})
	}

	// The opening layout is only meaningful right after the first build.
	if turn == 1 && matchesHorizontal(l) {
		events = append(events, Event{
			Kind:   EventHorizontalFirewall,
			Turn:   turn,
			Detail: "enemy opened with a horizontal firewall line",
		})
	}

	return events
}

// newKeys returns the keys set in cur but not in prev.
func newKeys[K comparable](prev, cur map[K]bool) []K {
	var out []K
	for k := range cur {
		if !prev[k] {
			out = append(out, k)
		}
	}
	return out
}

// applyFlags records events in rule memory. Pressure is cleared on a quiet
// turn; enemy layout flags stick for the rest of the match.
func applyFlags(memory map[string]any, events []Event) {
	pressure := false
	for _, e := range events {
		switch e.Kind {
		case EventBreachTaken, EventHealthLost:
			pressure = true
		case EventEnemyWall:
			memory[FlagEnemyWall] = true
		case EventRemovalPattern:
			memory[FlagEnemyRemovals] = true
		case EventHorizontalFirewall:
			memory[FlagEnemyHorizontal] = true
		}
	}
	memory[FlagUnderPressure] = pressure
}

// formatEvents renders events as one log-friendly line.
func formatEvents(events []Event) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, fmt.Sprintf("[turn %d] %s: %s", e.Turn, e.Kind, e.Detail))
	}
	return strings.Join(parts, "; ")
}
