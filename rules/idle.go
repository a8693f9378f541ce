package rules

import (
	"slices"

	"github.com/nstehr/rampart/rampart-core/model"
)

// idleRecord gives a firewall identity across turns. The engine reissues unit
// ids freely, so firewalls are tracked by cell and type.
type idleRecord struct {
	Type  model.UnitType
	Turns int // consecutive turn starts at full health
}

func getIdle(memory map[string]any) map[model.Cell]*idleRecord {
	if v, ok := memory["idle"].(map[model.Cell]*idleRecord); ok {
		return v
	}
	return make(map[model.Cell]*idleRecord)
}

// updateIdle runs once per turn. Firewalls at full health age by one turn,
// damaged ones reset, and records of destroyed or replaced firewalls are dropped.
func updateIdle(env RuleEnv) {
	idle := getIdle(env.Memory)
	b := env.Ledger.Board()
	cat := env.Ledger.Catalog()

	seen := make(map[model.Cell]bool)
	for y := range b.Half() {
		for _, c := range b.Row(y) {
			u, ok := b.StationaryAt(c)
			if !ok || u.Owner != 0 || u.ID == "" {
				continue
			}
			seen[c] = true
			rec, ok := idle[c]
			if !ok || rec.Type != u.Type {
				rec = &idleRecord{Type: u.Type}
				idle[c] = rec
			}
			if max := cat.Stability(u.Type); max > 0 && u.HP >= max {
				rec.Turns++
			} else {
				rec.Turns = 0
			}
		}
	}
	for c := range idle {
		if !seen[c] {
			delete(idle, c)
		}
	}
	env.Memory["idle"] = idle
}

// idleFirewalls returns, in row-major order, our firewalls that have been at
// full health for at least turns turn starts.
func idleFirewalls(env RuleEnv, turns int) []model.Cell {
	var out []model.Cell
	for c, rec := range getIdle(env.Memory) {
		if rec.Turns >= turns {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.Cell) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return out
}
