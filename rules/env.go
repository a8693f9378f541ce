package rules

import (
	"github.com/nstehr/rampart/rampart-core/board"
	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/pathing"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

// RuleEnv wraps the turn ledger and match history and exposes helper methods
// callable from expr expressions. Unit arguments accept a catalog shorthand
// ("DF") or a role name ("turret").
type RuleEnv struct {
	Ledger *ledger.Ledger
	// Own and Enemy are the decoded histories of each player's actions. Enemy
	// damage turns mark our cells that took hits.
	Own    *telemetry.History
	Enemy  *telemetry.History
	Memory map[string]any
}

func (e RuleEnv) Turn() int { return e.Ledger.Turn() }

func (e RuleEnv) Cores() float64      { return e.Ledger.Resources(0).Cores }
func (e RuleEnv) Bits() float64       { return e.Ledger.Resources(0).Bits }
func (e RuleEnv) EnemyCores() float64 { return e.Ledger.Resources(1).Cores }
func (e RuleEnv) EnemyBits() float64  { return e.Ledger.Resources(1).Bits }

func (e RuleEnv) Health() float64      { return e.Ledger.Health(0) }
func (e RuleEnv) EnemyHealth() float64 { return e.Ledger.Health(1) }

// unit resolves a rule's unit argument; ok is false for unknown names.
func (e RuleEnv) unit(name string) (model.UnitType, bool) {
	return resolveUnit(e.Ledger.Catalog(), name)
}

// Affordable is how many units of the named type we can buy now.
func (e RuleEnv) Affordable(name string) int {
	t, ok := e.unit(name)
	if !ok {
		return 0
	}
	n, err := e.Ledger.AffordableCount(t)
	if err != nil {
		return 0
	}
	return n
}

func (e RuleEnv) CanPlace(name string, x, y int) bool {
	t, ok := e.unit(name)
	if !ok {
		return false
	}
	can, err := e.Ledger.CanPlace(t, model.Cell{X: x, Y: y}, 1)
	return err == nil && can
}

func (e RuleEnv) HasStationary(x, y int) bool {
	_, ok := e.Ledger.StationaryAt(model.Cell{X: x, Y: y})
	return ok
}

// StationaryCount counts the named firewall type on a player's half.
func (e RuleEnv) StationaryCount(name string, player int) int {
	t, ok := e.unit(name)
	if !ok || !t.Stationary() {
		return 0
	}
	b := e.Ledger.Board()
	n := 0
	for y := range b.Size() {
		for _, c := range b.Row(y) {
			if u, ok := b.StationaryAt(c); ok && u.Type == t && u.Owner == player {
				n++
			}
		}
	}
	return n
}

// BitsInTurns projects our bits n turns ahead.
func (e RuleEnv) BitsInTurns(n int) float64 {
	v, err := e.Ledger.ProjectFutureBits(n, 0, nil)
	if err != nil {
		return 0
	}
	return v
}

func (e RuleEnv) EnemyBitsInTurns(n int) float64 {
	v, err := e.Ledger.ProjectFutureBits(n, 1, nil)
	if err != nil {
		return 0
	}
	return v
}

// Openings returns the free cells on a player's frontier line.
func (e RuleEnv) Openings(player int) []model.Cell {
	line, err := e.Ledger.FrontierLine(player)
	if err != nil {
		return nil
	}
	return pathing.Openings(e.Ledger.Board(), line)
}

func (e RuleEnv) OpeningCount() int      { return len(e.Openings(0)) }
func (e RuleEnv) EnemyOpeningCount() int { return len(e.Openings(1)) }

// CanBlockEnemyOpenings reports whether every enemy opening sits on the centre
// row, where a firewall directly below closes it.
func (e RuleEnv) CanBlockEnemyOpenings() bool {
	openings := e.Openings(1)
	return len(openings) > 0 && pathing.CanBlockOpenings(e.Ledger.Board(), openings)
}

// PathLength is the number of cells a unit spawned at (x, y) walks toward the
// edge opposite its spawn edge; 0 when the spawn is blocked.
func (e RuleEnv) PathLength(x, y int) int {
	start := model.Cell{X: x, Y: y}
	edge := board.TopRight
	if e.Ledger.Board().OnEdge(start, board.BottomRight) {
		edge = board.TopLeft
	}
	path, err := e.Ledger.PathToEdge(start, edge)
	if err != nil {
		return 0
	}
	return len(path)
}

// BreachHotspots counts our cells the enemy breached at least min times.
func (e RuleEnv) BreachHotspots(min int) int {
	return len(e.breachHotspots(min))
}

func (e RuleEnv) breachHotspots(min int) []model.Cell {
	if e.Enemy == nil {
		return nil
	}
	var out []model.Cell
	for _, c := range e.Enemy.Hot(telemetry.Breaches, 0, min) {
		if e.Ledger.Board().OwnHalf(c, 0) {
			out = append(out, c)
		}
	}
	return out
}

// DamagedCells counts our cells hit at least min times since turn since.
func (e RuleEnv) DamagedCells(since, min int) int {
	if e.Enemy == nil {
		return 0
	}
	n := 0
	for _, c := range e.Enemy.Hot(telemetry.Damage, since, min) {
		if e.Ledger.Board().OwnHalf(c, 0) {
			n++
		}
	}
	return n
}

// IdleFirewalls counts our firewalls that have sat undamaged for turns turns.
func (e RuleEnv) IdleFirewalls(turns int) int {
	return len(idleFirewalls(e, turns))
}

// Flag reads a boolean from rule memory.
func (e RuleEnv) Flag(name string) bool {
	v, _ := e.Memory[name].(bool)
	return v
}
