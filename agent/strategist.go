package agent

import (
	"log/slog"
	"sync"

	"github.com/nstehr/rampart/rampart-core/rules"
)

// Weight nudges applied per event kind.
const (
	pressureStep = 0.1  // breaches or health loss push toward defense
	wallStep     = 0.15 // walls push toward saving bits for larger waves
	flankStep    = 0.1  // a horizontal opener invites earlier attacks
)

// swapCooldownTurns is the minimum gap between doctrine swaps.
const swapCooldownTurns = 3

// Strategist shifts the active doctrine in response to match events and
// swaps the rule engine's rule set when the posture changes.
type Strategist struct {
	mu       sync.Mutex
	engine   *rules.Engine
	base     rules.Doctrine
	current  rules.Doctrine
	lastSwap int
	pending  []Event
}

// NewStrategist starts from doctrine d, whose rules the engine already runs.
func NewStrategist(engine *rules.Engine, d rules.Doctrine) *Strategist {
	d.Validate()
	return &Strategist{engine: engine, base: d, current: d, lastSwap: -swapCooldownTurns}
}

// Doctrine returns the doctrine currently in force.
func (s *Strategist) Doctrine() rules.Doctrine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Observe accumulates events and, outside the cooldown, recompiles the
// doctrine with adjusted weights. It reports whether rules were swapped.
func (s *Strategist) Observe(turn int, events []Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, events...)
	if len(s.pending) == 0 || turn-s.lastSwap < swapCooldownTurns {
		return false
	}

	next := s.current
	for _, e := range s.pending {
		switch e.Kind {
		case EventBreachTaken, EventHealthLost:
			next.DefensePriority += pressureStep
		case EventEnemyWall:
			next.EconomyPriority += wallStep
		case EventHorizontalFirewall:
			next.Aggression += flankStep
		}
	}
	next.Validate()

	if sameWeights(next, s.current) {
		s.pending = nil
		return false
	}

	compiled, err := rules.CompileDoctrine(next)
	if err != nil {
		slog.Error("strategist doctrine compile failed", "error", err)
		return false
	}
	if err := s.engine.Swap(compiled); err != nil {
		slog.Error("strategist rule swap failed", "error", err)
		return false
	}

	slog.Info("doctrine adjusted",
		"name", next.Name,
		"turn", turn,
		"events", formatEvents(s.pending),
		"aggression", next.Aggression,
		"defense", next.DefensePriority,
		"economy", next.EconomyPriority,
		"rules", len(compiled),
	)
	s.current = next
	s.lastSwap = turn
	s.pending = nil
	return true
}

// Reset restores the starting doctrine for a new match.
func (s *Strategist) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.lastSwap = -swapCooldownTurns
	if sameWeights(s.current, s.base) {
		return nil
	}
	compiled, err := rules.CompileDoctrine(s.base)
	if err != nil {
		return err
	}
	if err := s.engine.Swap(compiled); err != nil {
		return err
	}
	s.current = s.base
	return nil
}

func sameWeights(a, b rules.Doctrine) bool {
	return a.Aggression == b.Aggression &&
		a.DefensePriority == b.DefensePriority &&
		a.EconomyPriority == b.EconomyPriority
}
