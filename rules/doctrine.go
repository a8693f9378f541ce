package rules

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Doctrine is a high-level strategic posture. Weights are 0.0–1.0; the
// compiler maps them to concrete rule parameters. Rules adds hand-written
// rules on top of the compiled set, or replaces it when Replace is set.
type Doctrine struct {
	Name            string     `yaml:"name" json:"name"`
	Rationale       string     `yaml:"rationale" json:"rationale"`
	Aggression      float64    `yaml:"aggression" json:"aggression"`
	DefensePriority float64    `yaml:"defense_priority" json:"defense_priority"`
	EconomyPriority float64    `yaml:"economy_priority" json:"economy_priority"`
	IdleTurns       int        `yaml:"idle_turns" json:"idle_turns"`
	Replace         bool       `yaml:"replace" json:"replace"`
	Rules           []RuleSpec `yaml:"rules" json:"rules" validate:"dive"`
}

// RuleSpec is a rule written in a doctrine file. Action names one of the
// registered action builders; the remaining fields are its parameters.
type RuleSpec struct {
	Name      string   `yaml:"name" json:"name" validate:"required"`
	Priority  int      `yaml:"priority" json:"priority"`
	Category  string   `yaml:"category" json:"category" validate:"required"`
	Exclusive bool     `yaml:"exclusive" json:"exclusive"`
	Condition string   `yaml:"condition" json:"condition" validate:"required"`
	Action    string   `yaml:"action" json:"action" validate:"required"`
	Unit      string   `yaml:"unit" json:"unit"`
	Cells     [][2]int `yaml:"cells" json:"cells"`
	Count     int      `yaml:"count" json:"count" validate:"gte=0"`
	Turns     int      `yaml:"turns" json:"turns" validate:"gte=0"`
	Min       int      `yaml:"min" json:"min" validate:"gte=0"`
	Reserve   float64  `yaml:"reserve" json:"reserve" validate:"gte=0"`
	Flag      string   `yaml:"flag" json:"flag"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:            "Balanced",
		Rationale:       "Default balanced strategy",
		Aggression:      0.5,
		DefensePriority: 0.5,
		EconomyPriority: 0.5,
		IdleTurns:       8,
	}
}

// Validate clamps all weights to their valid ranges.
func (d *Doctrine) Validate() {
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.DefensePriority = clamp(d.DefensePriority, 0, 1)
	d.EconomyPriority = clamp(d.EconomyPriority, 0, 1)
	d.IdleTurns = clampInt(d.IdleTurns, 2, 40)
}

// ParseDoctrine decodes a YAML doctrine. Fields the document leaves out keep
// their DefaultDoctrine values.
func ParseDoctrine(data []byte) (Doctrine, error) {
	d := DefaultDoctrine()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Doctrine{}, fmt.Errorf("unmarshal doctrine: %w", err)
	}
	if err := validate.Struct(d); err != nil {
		return Doctrine{}, fmt.Errorf("invalid doctrine %q: %w", d.Name, err)
	}
	for _, spec := range d.Rules {
		if _, ok := actionBuilders[spec.Action]; !ok {
			return Doctrine{}, fmt.Errorf("doctrine %q rule %q: unknown action %q", d.Name, spec.Name, spec.Action)
		}
	}
	d.Validate()
	return d, nil
}

// LoadDoctrine reads and parses a YAML doctrine file.
func LoadDoctrine(path string) (Doctrine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Doctrine{}, fmt.Errorf("read doctrine: %w", err)
	}
	return ParseDoctrine(data)
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lerp linearly interpolates between min and max by t (0–1), returning an int.
func lerp(min, max int, t float64) int {
	return min + int(math.Round(float64(max-min)*t))
}

// lerpf linearly interpolates between min and max by t (0–1), returning a float64.
func lerpf(min, max, t float64) float64 {
	return min + (max-min)*t
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
