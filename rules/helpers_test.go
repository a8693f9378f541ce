package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

const emptyUnits = `[[],[],[],[],[],[],[]]`

func testConfig(t *testing.T) (model.Config, *model.Catalog) {
	t.Helper()
	cfg := model.Config{
		UnitInformation: []model.UnitInfo{
			{Shorthand: "FF", Cost: 1, Stability: 60},
			{Shorthand: "EF", Cost: 4, Stability: 30},
			{Shorthand: "DF", Cost: 2, Stability: 75},
			{Shorthand: "PI", Cost: 1, Stability: 15},
			{Shorthand: "EI", Cost: 3, Stability: 5},
			{Shorthand: "SI", Cost: 1, Stability: 40},
			{Shorthand: "RM", Cost: 0},
		},
		Resources: model.ResourceRules{
			BitsPerRound:               5,
			CoresPerRound:              4,
			BitDecayPerRound:           0.25,
			TurnIntervalForBitSchedule: 10,
		},
	}
	cat, err := model.NewCatalog(cfg.UnitInformation)
	require.NoError(t, err)
	return cfg, cat
}

// testLedger builds a turn-start ledger. setup may add units or change stats.
func testLedger(t *testing.T, turn int, cores, bits float64, setup func(gs *model.GameState)) *ledger.Ledger {
	t.Helper()
	cfg, cat := testConfig(t)
	gs := model.GameState{Phase: model.PhaseTurnStart, Turn: turn}
	gs.Stats[0] = model.Stats{Health: 30, Cores: cores, Bits: bits}
	gs.Stats[1] = model.Stats{Health: 30, Cores: 10, Bits: 10}
	if setup != nil {
		setup(&gs)
	}
	l, err := ledger.New(cat, cfg, gs)
	require.NoError(t, err)
	return l
}

func testEnv(l *ledger.Ledger) RuleEnv {
	return RuleEnv{Ledger: l, Memory: make(map[string]any)}
}

// enemyBreaches returns an opponent history with one breach at c on each of
// the given turns.
func enemyBreaches(t *testing.T, c model.Cell, turns ...int) *telemetry.History {
	t.Helper()
	_, cat := testConfig(t)
	h := telemetry.NewHistory(model.ArenaSize)
	for _, turn := range turns {
		frames := [][]byte{
			enemyFrame(turn, 0, `{"spawn":[[[14,27],3,"e1",2]]}`),
			enemyFrame(turn, 1, fmt.Sprintf(`{"breach":[[[%d,%d],1,3,"e1",2]]}`, c.X, c.Y)),
		}
		_, err := telemetry.NewDecoder(cat, h, 1).Decode(frames, nil)
		require.NoError(t, err)
	}
	return h
}

func enemyFrame(turn, idx int, events string) []byte {
	return []byte(fmt.Sprintf(
		`{"turnInfo":[1,%d,%d],"p1Stats":[30,5,5,0],"p2Stats":[30,5,5,0],"p1Units":%s,"p2Units":%s,"events":%s}`,
		turn, idx, emptyUnits, emptyUnits, events))
}

// fullRow fills a player's row with filters except at the skipped columns.
func fullRow(gs *model.GameState, player, y int, skip ...int) {
	next := 0
	for x := range model.ArenaSize {
		if next < len(skip) && skip[next] == x {
			next++
			continue
		}
		gs.Units[player][model.Filter] = append(gs.Units[player][model.Filter],
			model.UnitEntry{X: x, Y: y, HP: 60, ID: fmt.Sprintf("w%d-%d", x, y)})
	}
}
