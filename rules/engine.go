package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

// Engine runs compiled rules against the turn ledger once per turn.
// Rules fire in priority order; exclusive rules block lower-priority rules
// in the same category so two rules never spend the same pool twice.
type Engine struct {
	mu     sync.RWMutex
	rules  []*Rule
	Memory map[string]any
	memMu  sync.Mutex // guards all reads/writes to Memory
}

// NewEngine compiles all rule conditions into expr bytecode and sorts by priority.
func NewEngine(rules []*Rule) (*Engine, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{
		rules:  compiled,
		Memory: make(map[string]any),
	}, nil
}

// Evaluate runs all rules against the ledger. Actions queue placements and
// removals on l; the caller submits afterwards.
func (e *Engine) Evaluate(l *ledger.Ledger, own, enemy *telemetry.History) error {
	if l == nil {
		return fmt.Errorf("evaluate: nil ledger")
	}
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	e.memMu.Lock()
	defer e.memMu.Unlock()

	env := RuleEnv{Ledger: l, Own: own, Enemy: enemy, Memory: e.Memory}
	updateIdle(env)
	fired := make(map[string]bool) // category → exclusive rule already fired

	anyFired := false
	for _, r := range rules {
		if fired[r.Category] {
			continue
		}

		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "error", err)
			continue
		}

		match, ok := result.(bool)
		if !ok || !match {
			continue
		}

		anyFired = true
		slog.Debug("rule fired", "rule", r.Name, "priority", r.Priority, "category", r.Category)

		if err := r.Action(env, l); err != nil {
			slog.Error("rule action error", "rule", r.Name, "error", err)
		}

		if r.Exclusive {
			fired[r.Category] = true
		}
	}

	if !anyFired {
		logIdleDiagnostics(l)
	}
	return nil
}

// Swap atomically replaces the rule set. Compiles first; if compilation fails
// the old rules remain active. Idle tracking survives the swap.
func (e *Engine) Swap(newRules []*Rule) error {
	compiled, err := compileRules(newRules)
	if err != nil {
		return err
	}
	names := make([]string, len(compiled))
	for i, r := range compiled {
		names[i] = r.Name
	}
	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	slog.Info("rule set swapped", "count", len(compiled), "rules", names)
	return nil
}

// Rules returns the active rules in evaluation order.
func (e *Engine) Rules() []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Rule(nil), e.rules...)
}

// LockMemory acquires the memory mutex. Callers must pair with UnlockMemory.
func (e *Engine) LockMemory()   { e.memMu.Lock() }
func (e *Engine) UnlockMemory() { e.memMu.Unlock() }

// logIdleDiagnostics dumps the pools when no rule fires.
func logIdleDiagnostics(l *ledger.Ledger) {
	r := l.Resources(0)
	slog.Info("idle diagnostics",
		"turn", l.Turn(),
		"cores", r.Cores,
		"bits", r.Bits,
		"health", l.Health(0),
		"built", len(l.BuildQueue()),
		"deployed", len(l.DeployQueue()),
	)
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		if r.Action == nil {
			return nil, fmt.Errorf("compile rule %q: no action", r.Name)
		}
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}
