package rules

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/pathing"
)

// Spawn cells on each of our bottom edges.
var (
	LeftSpawn  = model.Cell{X: 13, Y: 0}
	RightSpawn = model.Cell{X: 14, Y: 0}
)

// breachNeighbors are the offsets reinforced around a breached cell.
var breachNeighbors = []model.Cell{{X: 1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}}

func firewallType(env RuleEnv, unit string) (model.UnitType, error) {
	t, ok := env.unit(unit)
	if !ok || !t.Stationary() {
		return 0, fmt.Errorf("%q is not a firewall type", unit)
	}
	return t, nil
}

func mobileType(env RuleEnv, unit string) (model.UnitType, error) {
	t, ok := env.unit(unit)
	if !ok || !t.Mobile() {
		return 0, fmt.Errorf("%q is not a mobile type", unit)
	}
	return t, nil
}

// placeWhere places one t at each cell that still accepts it, in order.
// Cells the ledger would refuse are skipped quietly.
func placeWhere(l *ledger.Ledger, t model.UnitType, cells []model.Cell) (int, error) {
	placed := 0
	for _, c := range cells {
		ok, err := l.CanPlace(t, c, 1)
		if err != nil {
			return placed, err
		}
		if !ok {
			continue
		}
		n, err := l.Place(t, []model.Cell{c}, 1)
		placed += n
		if err != nil {
			return placed, err
		}
	}
	return placed, nil
}

// HoldCells keeps a firewall of the named type on each cell, rebuilding any
// that were destroyed.
func HoldCells(unit string, cells []model.Cell) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		t, err := firewallType(env, unit)
		if err != nil {
			return err
		}
		n, err := placeWhere(l, t, cells)
		if n > 0 {
			slog.Debug("holding cells", "type", unit, "placed", n)
		}
		return err
	}
}

// DeployWave sends count mobile units, or as many as we can afford when count
// is 0, from the first spawn cell that accepts them.
func DeployWave(unit string, spawns []model.Cell, count int) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		t, err := mobileType(env, unit)
		if err != nil {
			return err
		}
		n, err := l.AffordableCount(t)
		if err != nil {
			return err
		}
		if count > 0 {
			if n < count {
				return nil
			}
			n = count
		}
		if n == 0 {
			return nil
		}
		for _, spawn := range spawns {
			if ok, err := l.CanPlace(t, spawn, n); err != nil || !ok {
				continue
			}
			placed, err := l.Place(t, []model.Cell{spawn}, n)
			slog.Info("deploying wave", "type", unit, "cell", spawn, "count", placed)
			return err
		}
		slog.Debug("no spawn cell accepts wave", "type", unit, "count", n)
		return nil
	}
}

// ReinforceBreaches builds firewalls around every cell of ours the enemy has
// breached at least min times.
func ReinforceBreaches(unit string, min int) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		t, err := firewallType(env, unit)
		if err != nil {
			return err
		}
		var cells []model.Cell
		for _, c := range env.breachHotspots(min) {
			for _, d := range breachNeighbors {
				cells = append(cells, model.Cell{X: c.X + d.X, Y: c.Y + d.Y})
			}
		}
		n, err := placeWhere(l, t, cells)
		if n > 0 {
			slog.Info("reinforcing breach hotspots", "type", unit, "placed", n)
		}
		return err
	}
}

// BlockOpenings builds under every free cell of the enemy's front row, which
// closes their frontier openings when they all sit on that row.
func BlockOpenings(unit string) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		t, err := firewallType(env, unit)
		if err != nil {
			return err
		}
		n, err := placeWhere(l, t, pathing.BlockingCells(l.Board()))
		if n > 0 {
			slog.Info("blocking enemy openings", "type", unit, "placed", n)
		}
		return err
	}
}

// FillOpenings builds on our own frontier openings, centre first, while
// keeping reserve cores in the pool. The leave outermost openings stay open as
// lanes for our own units.
func FillOpenings(unit string, reserve float64, leave int) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		t, err := firewallType(env, unit)
		if err != nil {
			return err
		}
		cost, err := l.Cost(t)
		if err != nil {
			return err
		}
		openings := env.Openings(0)
		centre := float64(l.Board().Size()-1) / 2
		slices.SortStableFunc(openings, func(a, b model.Cell) int {
			da, db := math.Abs(float64(a.X)-centre), math.Abs(float64(b.X)-centre)
			switch {
			case da < db:
				return -1
			case da > db:
				return 1
			}
			return 0
		})
		if len(openings) <= leave {
			return nil
		}
		placed := 0
		for _, c := range openings[:len(openings)-leave] {
			if l.Resources(0).Cores-cost < reserve {
				break
			}
			n, err := placeWhere(l, t, []model.Cell{c})
			placed += n
			if err != nil {
				return err
			}
		}
		if placed > 0 {
			slog.Debug("filling openings", "type", unit, "placed", placed)
		}
		return nil
	}
}

// RemoveIdle removes our firewalls that sat at full health for turns turn
// starts, freeing their cells for something that sees combat.
func RemoveIdle(turns int) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		cells := idleFirewalls(env, turns)
		if len(cells) == 0 {
			return nil
		}
		n, err := l.Remove(cells)
		slog.Info("removing idle firewalls", "turns", turns, "removed", n)
		return err
	}
}

// RemoveCells removes our firewalls on cells that still hold one.
func RemoveCells(cells []model.Cell) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		var present []model.Cell
		for _, c := range cells {
			if u, ok := l.StationaryAt(c); ok && u.Owner == 0 && !u.PendingRemoval {
				present = append(present, c)
			}
		}
		if len(present) == 0 {
			return nil
		}
		_, err := l.Remove(present)
		return err
	}
}

// SetFlag records a flag in rule memory for Flag conditions to read.
func SetFlag(name string) ActionFunc {
	return func(env RuleEnv, l *ledger.Ledger) error {
		env.Memory[name] = true
		return nil
	}
}

// actionBuilders maps doctrine action names to builders.
var actionBuilders = map[string]func(RuleSpec) (ActionFunc, error){
	"hold": func(s RuleSpec) (ActionFunc, error) {
		if s.Unit == "" || len(s.Cells) == 0 {
			return nil, fmt.Errorf("hold needs unit and cells")
		}
		return HoldCells(s.Unit, specCells(s.Cells)), nil
	},
	"deploy": func(s RuleSpec) (ActionFunc, error) {
		if s.Unit == "" {
			return nil, fmt.Errorf("deploy needs unit")
		}
		spawns := specCells(s.Cells)
		if len(spawns) == 0 {
			spawns = []model.Cell{LeftSpawn, RightSpawn}
		}
		return DeployWave(s.Unit, spawns, s.Count), nil
	},
	"reinforce-breaches": func(s RuleSpec) (ActionFunc, error) {
		return ReinforceBreaches(unitOr(s.Unit, "turret"), max(s.Min, 1)), nil
	},
	"block-openings": func(s RuleSpec) (ActionFunc, error) {
		return BlockOpenings(unitOr(s.Unit, "wall")), nil
	},
	"fill-openings": func(s RuleSpec) (ActionFunc, error) {
		return FillOpenings(unitOr(s.Unit, "wall"), s.Reserve, s.Count), nil
	},
	"remove-idle": func(s RuleSpec) (ActionFunc, error) {
		if s.Turns < 1 {
			return nil, fmt.Errorf("remove-idle needs turns")
		}
		return RemoveIdle(s.Turns), nil
	},
	"remove": func(s RuleSpec) (ActionFunc, error) {
		if len(s.Cells) == 0 {
			return nil, fmt.Errorf("remove needs cells")
		}
		return RemoveCells(specCells(s.Cells)), nil
	},
	"set-flag": func(s RuleSpec) (ActionFunc, error) {
		if s.Flag == "" {
			return nil, fmt.Errorf("set-flag needs flag")
		}
		return SetFlag(s.Flag), nil
	},
}

func specCells(raw [][2]int) []model.Cell {
	cells := make([]model.Cell, len(raw))
	for i, xy := range raw {
		cells[i] = model.Cell{X: xy[0], Y: xy[1]}
	}
	return cells
}

func unitOr(unit, fallback string) string {
	if unit == "" {
		return fallback
	}
	return unit
}

// BuildRule turns a doctrine rule into an uncompiled Rule.
func BuildRule(s RuleSpec) (*Rule, error) {
	build, ok := actionBuilders[s.Action]
	if !ok {
		return nil, fmt.Errorf("rule %q: unknown action %q", s.Name, s.Action)
	}
	action, err := build(s)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", s.Name, err)
	}
	return &Rule{
		Name:         s.Name,
		Priority:     s.Priority,
		Category:     s.Category,
		Exclusive:    s.Exclusive,
		ConditionSrc: s.Condition,
		Action:       action,
	}, nil
}
