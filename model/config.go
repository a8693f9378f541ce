package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Arena geometry. The engine always plays on a 28x28 diamond.
const (
	ArenaSize = 28
	HalfArena = ArenaSize / 2
)

var validate = validator.New()

// Config is the game configuration the engine sends once, before turn 0.
// Only the fields the core consumes are decoded.
type Config struct {
	UnitInformation []UnitInfo    `json:"unitInformation" validate:"len=7,dive"`
	Resources       ResourceRules `json:"resources"`
}

// ResourceRules holds the per-round accrual constants.
type ResourceRules struct {
	BitsPerRound               float64 `json:"bitsPerRound" validate:"gte=0"`
	CoresPerRound              float64 `json:"coresPerRound" validate:"gte=0"`
	BitDecayPerRound           float64 `json:"bitDecayPerRound" validate:"gte=0,lte=1"`
	TurnIntervalForBitSchedule int     `json:"turnIntervalForBitSchedule" validate:"gt=0"`
}

// ParseConfig decodes and validates the config line and builds its catalog.
func ParseConfig(data []byte) (Config, *Catalog, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("%w: unmarshal config: %v", ErrProtocol, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, nil, fmt.Errorf("%w: invalid config: %v", ErrProtocol, err)
	}
	cat, err := NewCatalog(cfg.UnitInformation)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, cat, nil
}

// ProjectBits applies the engine's bit accrual formula turnsAhead times starting
// from turn. Each step decays, adds the scheduled income for the turn being
// entered, and rounds to one decimal. The per-step rounding is part of the engine
// formula; skipping it drifts affordability predictions.
func ProjectBits(r ResourceRules, turn int, bits float64, turnsAhead int) float64 {
	for i := 1; i <= turnsAhead; i++ {
		current := turn + i
		bits *= 1 - r.BitDecayPerRound
		bits += r.BitsPerRound + float64(current/r.TurnIntervalForBitSchedule)
		bits = Round1(bits)
	}
	return bits
}

// Round1 rounds v to one decimal place, half to even on the exact decimal value
// of v. strconv's exact decimal formatting agrees with the engine's rounding;
// math.Round(v*10)/10 does not for values like 0.15 and 0.25.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}
