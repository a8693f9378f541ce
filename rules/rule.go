package rules

import (
	"github.com/expr-lang/expr/vm"

	"github.com/nstehr/rampart/rampart-core/ledger"
)

// ActionFunc queues orders on the turn ledger when a rule's condition is true.
type ActionFunc func(env RuleEnv, l *ledger.Ledger) error

// Rule is the atomic unit of policy: a condition → action pair.
// The engine evaluates rules by priority and uses Category + Exclusive
// to keep two rules from spending the same resource pool in one turn.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Category     string      // grouping for exclusive semantics
	Exclusive    bool        // if true, blocks lower-priority rules in same category
	ConditionSrc string      // expr source (preserved for serialization)
	program      *vm.Program // compiled bytecode
	Action       ActionFunc
}
