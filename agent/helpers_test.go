package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

const configLine = `{"unitInformation":[` +
	`{"shorthand":"FF","cost":1,"stability":60},` +
	`{"shorthand":"EF","cost":4,"stability":30},` +
	`{"shorthand":"DF","cost":2,"stability":75},` +
	`{"shorthand":"PI","cost":1,"stability":15},` +
	`{"shorthand":"EI","cost":3,"stability":5},` +
	`{"shorthand":"SI","cost":1,"stability":40},` +
	`{"shorthand":"RM"}],` +
	`"resources":{"bitsPerRound":5,"coresPerRound":4,"bitDecayPerRound":0.25,"turnIntervalForBitSchedule":10}}`

const emptyUnits = `[[],[],[],[],[],[],[]]`

func testCatalog(t *testing.T) (model.Config, *model.Catalog) {
	t.Helper()
	cfg, cat, err := model.ParseConfig([]byte(configLine))
	require.NoError(t, err)
	return cfg, cat
}

// testLedger builds a turn-start ledger for turn with our health set to
// health. setup may add units.
func testLedger(t *testing.T, turn int, health float64, setup func(gs *model.GameState)) *ledger.Ledger {
	t.Helper()
	cfg, cat := testCatalog(t)
	gs := model.GameState{Phase: model.PhaseTurnStart, Turn: turn}
	gs.Stats[0] = model.Stats{Health: health}
	gs.Stats[1] = model.Stats{Health: 30}
	if setup != nil {
		setup(&gs)
	}
	l, err := ledger.New(cat, cfg, gs)
	require.NoError(t, err)
	return l
}

func enemyUnit(gs *model.GameState, t model.UnitType, x, y int) {
	gs.Units[1][t] = append(gs.Units[1][t], model.UnitEntry{X: x, Y: y, HP: 60, ID: fmt.Sprintf("e%d-%d", x, y)})
}

func frameLine(turn, idx int, events string) string {
	return fmt.Sprintf(
		`{"turnInfo":[1,%d,%d],"p1Stats":[30,5,5,0],"p2Stats":[30,5,5,0],"p1Units":%s,"p2Units":%s,"events":%s}`,
		turn, idx, emptyUnits, emptyUnits, events)
}

// enemyRemovals returns an opponent history with a removal at c on each of
// the given turns.
func enemyRemovals(t *testing.T, c model.Cell, turns ...int) *telemetry.History {
	t.Helper()
	_, cat := testCatalog(t)
	h := telemetry.NewHistory(model.ArenaSize)
	for _, turn := range turns {
		frame := frameLine(turn, 0, fmt.Sprintf(`{"spawn":[[[%d,%d],6,"r%d",2]]}`, c.X, c.Y, turn))
		_, err := telemetry.NewDecoder(cat, h, 1).Decode([][]byte{[]byte(frame)}, nil)
		require.NoError(t, err)
	}
	return h
}
