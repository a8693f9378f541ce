package rules

import (
	"fmt"

	"github.com/nstehr/rampart/rampart-core/model"
)

// Corner cells of our front row.
var corners = []model.Cell{{X: 0, Y: 13}, {X: 27, Y: 13}}

// DefaultRules is the rule set compiled from DefaultDoctrine.
func DefaultRules() []*Rule {
	d := DefaultDoctrine()
	d.Validate()
	return doctrineRules(d)
}

// CompileDoctrine generates a complete rule set from a doctrine's weights and
// appends the doctrine's own rules. When the doctrine sets Replace, its rules
// are the whole set.
func CompileDoctrine(d Doctrine) ([]*Rule, error) {
	d.Validate()
	var rules []*Rule
	if !d.Replace {
		rules = doctrineRules(d)
	}
	for _, spec := range d.Rules {
		r, err := BuildRule(spec)
		if err != nil {
			return nil, fmt.Errorf("doctrine %q: %w", d.Name, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// doctrineRules builds the weighted rules. All conditions are built via
// fmt.Sprintf with interpolated values, so the compiler never generates
// invalid expr.
func doctrineRules(d Doctrine) []*Rule {
	var rules []*Rule

	// --- Defense (always present) ---

	rules = append(rules, &Rule{
		Name:         "hold-corners",
		Priority:     900,
		Category:     "defense",
		Exclusive:    false,
		ConditionSrc: `(!HasStationary(0, 13) || !HasStationary(27, 13)) && Affordable("turret") > 0`,
		Action:       HoldCells("turret", corners),
	})

	breachMin := lerp(4, 2, d.DefensePriority)
	rules = append(rules, &Rule{
		Name:         "reinforce-breaches",
		Priority:     850,
		Category:     "defense",
		Exclusive:    false,
		ConditionSrc: fmt.Sprintf(`BreachHotspots(%d) > 0 && Affordable("turret") > 0`, breachMin),
		Action:       ReinforceBreaches("turret", breachMin),
	})

	// Closing the enemy's last few gaps forces their units to spend time on
	// our turrets. With many gaps the walls would cost more than they hold.
	maxEnemyOpenings := lerp(2, 6, d.DefensePriority)
	rules = append(rules, &Rule{
		Name:         "block-enemy-openings",
		Priority:     800,
		Category:     "defense",
		Exclusive:    false,
		ConditionSrc: fmt.Sprintf(`CanBlockEnemyOpenings() && EnemyOpeningCount() <= %d && Affordable("wall") > 0`, maxEnemyOpenings),
		Action:       BlockOpenings("wall"),
	})

	if d.DefensePriority >= 0.6 {
		reserve := lerpf(10, 2, d.DefensePriority)
		rules = append(rules, &Rule{
			Name:         "fill-openings",
			Priority:     700,
			Category:     "defense",
			Exclusive:    false,
			ConditionSrc: fmt.Sprintf(`OpeningCount() > 2 && Cores() >= %.1f`, reserve),
			Action:       FillOpenings("wall", reserve, 2),
		})
	}

	// --- Maintenance ---

	rules = append(rules, &Rule{
		Name:         "remove-idle-firewalls",
		Priority:     600,
		Category:     "maintenance",
		Exclusive:    false,
		ConditionSrc: fmt.Sprintf(`IdleFirewalls(%d) > 0`, d.IdleTurns),
		Action:       RemoveIdle(d.IdleTurns),
	})

	// --- Attack (parameterized by Aggression and EconomyPriority) ---

	if d.Aggression >= 0.3 {
		rules = append(rules, &Rule{
			Name:         "ping-rush",
			Priority:     500,
			Category:     "attack",
			Exclusive:    true,
			ConditionSrc: `Turn() == 0 && Affordable("fast") > 0`,
			Action:       DeployWave("fast", []model.Cell{RightSpawn, LeftSpawn}, 0),
		})
	}

	// Saving raises the wave size; bits decay, so the cap stays low.
	waveSize := clampInt(lerp(6, 2, d.Aggression)+lerp(-1, 2, d.EconomyPriority), 1, 10)
	rules = append(rules, &Rule{
		Name:         "emp-wave",
		Priority:     450,
		Category:     "attack",
		Exclusive:    true,
		ConditionSrc: fmt.Sprintf(`Affordable("siege") >= %d`, waveSize),
		Action:       DeployWave("siege", []model.Cell{LeftSpawn, RightSpawn}, 0),
	})

	enemyBits := lerp(16, 8, d.DefensePriority)
	rules = append(rules, &Rule{
		Name:         "scrambler-screen",
		Priority:     400,
		Category:     "screen",
		Exclusive:    true,
		ConditionSrc: fmt.Sprintf(`Turn() > 0 && EnemyBitsInTurns(1) >= %d && Affordable("interceptor") >= 2`, enemyBits),
		Action:       DeployWave("interceptor", []model.Cell{RightSpawn, LeftSpawn}, 2),
	})

	return rules
}
