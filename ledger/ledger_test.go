package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstehr/rampart/rampart-core/board"
	"github.com/nstehr/rampart/rampart-core/model"
)

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

func newLedger(t *testing.T, cores, bits float64, setup func(gs *model.GameState)) *Ledger {
	t.Helper()
	cfg, cat := testConfig(t)
	gs := model.GameState{Phase: model.PhaseTurnStart}
	gs.Stats[0] = model.Stats{Health: 30, Cores: cores, Bits: bits}
	gs.Stats[1] = model.Stats{Health: 30, Cores: 10, Bits: 10}
	if setup != nil {
		setup(&gs)
	}
	l, err := New(cat, cfg, gs)
	require.NoError(t, err)
	return l
}

type recordingSubmitter struct {
	sent []any
	err  error
}

func (r *recordingSubmitter) SendCommand(v any) error {
	r.sent = append(r.sent, v)
	return r.err
}

func TestPlaceStationaryDeductsAndBlocks(t *testing.T) {
	l := newLedger(t, 5, 0, nil)
	c := model.Cell{X: 13, Y: 10}

	placed, err := l.Place(model.Destructor, []model.Cell{c}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, placed)
	cores, _ := l.Resource(Cores, 0)
	assert.Equal(t, 3.0, cores)

	placed, err = l.Place(model.Destructor, []model.Cell{c}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, placed, "second placement on an occupied cell")
	cores, _ = l.Resource(Cores, 0)
	assert.Equal(t, 3.0, cores)

	assert.Equal(t, []Intent{{Type: model.Destructor, X: 13, Y: 10}}, l.BuildQueue())
	u, ok := l.StationaryAt(c)
	require.True(t, ok)
	assert.Equal(t, 75.0, u.HP)
}

func TestRemoveEmptyCellIsNoop(t *testing.T) {
	l := newLedger(t, 5, 5, nil)

	removed, err := l.Remove([]model.Cell{{X: 5, Y: 12}})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Empty(t, l.BuildQueue())
}

func TestAffordableCount(t *testing.T) {
	l := newLedger(t, 5, 2.9, nil)

	tests := []struct {
		unit model.UnitType
		want int
	}{
		{model.Filter, 5},
		{model.Destructor, 2},
		{model.Encryptor, 1},
		{model.Ping, 2},
		{model.EMP, 0},
	}
	for _, tc := range tests {
		got, err := l.AffordableCount(tc.unit)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "AffordableCount(%d)", tc.unit)
	}

	_, err := l.AffordableCount(model.Remove)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = l.AffordableCount(model.UnitType(9))
	assert.ErrorIs(t, err, model.ErrUnknownUnit)
}

func TestCanPlace(t *testing.T) {
	l := newLedger(t, 10, 10, func(gs *model.GameState) {
		gs.Units[0][model.Filter] = []model.UnitEntry{{X: 14, Y: 0, HP: 60, ID: "1"}}
		gs.Units[1][model.Filter] = []model.UnitEntry{{X: 13, Y: 14, HP: 60, ID: "2"}}
	})
	l.SetForbidden([]model.Cell{{X: 6, Y: 10}}, true)

	tests := []struct {
		name  string
		unit  model.UnitType
		cell  model.Cell
		count int
		want  bool
	}{
		{"stationary on own half", model.Filter, model.Cell{X: 10, Y: 10}, 1, true},
		{"outside arena", model.Filter, model.Cell{X: 0, Y: 0}, 1, false},
		{"enemy half", model.Filter, model.Cell{X: 10, Y: 15}, 1, false},
		{"occupied by stationary", model.Filter, model.Cell{X: 14, Y: 0}, 1, false},
		{"stationary needs count one", model.Filter, model.Cell{X: 10, Y: 10}, 2, false},
		{"forbidden", model.Filter, model.Cell{X: 6, Y: 10}, 1, false},
		{"unaffordable", model.Encryptor, model.Cell{X: 10, Y: 10}, 3, false},
		{"mobile on deploy edge", model.Ping, model.Cell{X: 13, Y: 0}, 3, true},
		{"mobile off edge", model.Ping, model.Cell{X: 13, Y: 5}, 1, false},
		{"mobile on enemy edge", model.Ping, model.Cell{X: 27, Y: 14}, 1, false},
		{"mobile onto stationary", model.Ping, model.Cell{X: 14, Y: 0}, 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.CanPlace(tc.unit, tc.cell, tc.count)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			err = l.Check(tc.unit, tc.cell, tc.count)
			if tc.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrIllegalPlacement)
			}
		})
	}
}

func TestCanPlaceInvalidArguments(t *testing.T) {
	l := newLedger(t, 10, 10, nil)
	c := model.Cell{X: 13, Y: 0}

	for _, tc := range []struct {
		unit  model.UnitType
		count int
	}{
		{model.Remove, 1},
		{model.UnitType(-1), 1},
		{model.Ping, 0},
	} {
		ok, err := l.CanPlace(tc.unit, c, tc.count)
		assert.False(t, ok)
		assert.ErrorIs(t, err, model.ErrInvalidArgument)

		placed, err := l.Place(tc.unit, []model.Cell{c}, tc.count)
		assert.Zero(t, placed)
		assert.ErrorIs(t, err, model.ErrInvalidArgument)
	}
}

func TestStationaryBlockedByMobile(t *testing.T) {
	l := newLedger(t, 10, 10, nil)
	c := model.Cell{X: 13, Y: 0}

	placed, err := l.Place(model.Ping, []model.Cell{c}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, placed)

	ok, err := l.CanPlace(model.Filter, c, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// More mobile units can still join.
	ok, err = l.CanPlace(model.Ping, c, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanPlaceImpliesPlace(t *testing.T) {
	l := newLedger(t, 5, 3, nil)

	cells := append(l.Board().Row(10), l.Board().EdgeCells(board.BottomLeft)...)
	for _, unit := range []model.UnitType{model.Destructor, model.Ping} {
		for _, c := range cells {
			ok, err := l.CanPlace(unit, c, 1)
			require.NoError(t, err)
			placed, err := l.Place(unit, []model.Cell{c}, 1)
			require.NoError(t, err)
			assert.Equal(t, ok, placed == 1, "%d at %s", unit, c)

			res := l.Resources(0)
			assert.GreaterOrEqual(t, res.Cores, 0.0)
			assert.GreaterOrEqual(t, res.Bits, 0.0)
		}
	}
	assert.Len(t, l.BuildQueue(), 2)
	assert.Len(t, l.DeployQueue(), 3)
}

func TestPlaceBatchStopsAtBudget(t *testing.T) {
	l := newLedger(t, 0, 2, nil)
	c := model.Cell{X: 20, Y: 6}
	require.True(t, l.Board().OnEdge(c, board.BottomRight))

	placed, err := l.Place(model.Ping, []model.Cell{c}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, placed)
	assert.Equal(t, 0.0, l.Resources(0).Bits)
	assert.Len(t, l.Board().UnitsAt(c), 2)
}

func TestRevokePlacement(t *testing.T) {
	l := newLedger(t, 5, 5, nil)
	c := model.Cell{X: 13, Y: 0}

	_, err := l.Place(model.Ping, []model.Cell{c}, 2)
	require.NoError(t, err)
	require.Equal(t, 3.0, l.Resources(0).Bits)

	revoked, err := l.RevokePlacement(model.Ping, []model.Cell{c}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, revoked)
	assert.Equal(t, 4.0, l.Resources(0).Bits)
	assert.Len(t, l.DeployQueue(), 1)
	assert.Len(t, l.Board().UnitsAt(c), 1)

	revoked, err = l.RevokePlacement(model.Filter, []model.Cell{{X: 10, Y: 10}}, 1)
	require.NoError(t, err)
	assert.Zero(t, revoked)
}

func TestRemove(t *testing.T) {
	own := model.Cell{X: 5, Y: 12}
	guarded := model.Cell{X: 6, Y: 12}
	enemy := model.Cell{X: 5, Y: 15}
	l := newLedger(t, 5, 5, func(gs *model.GameState) {
		gs.Units[0][model.Filter] = []model.UnitEntry{
			{X: own.X, Y: own.Y, HP: 60, ID: "1"},
			{X: guarded.X, Y: guarded.Y, HP: 60, ID: "2"},
		}
		gs.Units[1][model.Filter] = []model.UnitEntry{{X: enemy.X, Y: enemy.Y, HP: 60, ID: "3"}}
	})
	l.SetProtected([]model.Cell{guarded}, true)

	removed, err := l.Remove([]model.Cell{own, guarded, enemy, own})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []Intent{{Type: model.Remove, X: own.X, Y: own.Y}}, l.BuildQueue())

	u, ok := l.StationaryAt(own)
	require.True(t, ok)
	assert.True(t, u.PendingRemoval)

	l.ResetProtected()
	removed, err = l.Remove([]model.Cell{guarded})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestNewFlagsPendingRemoval(t *testing.T) {
	c := model.Cell{X: 9, Y: 9}
	l := newLedger(t, 1, 1, func(gs *model.GameState) {
		gs.Units[0][model.Encryptor] = []model.UnitEntry{{X: c.X, Y: c.Y, HP: 30, ID: "7"}}
		gs.Units[0][model.Remove] = []model.UnitEntry{{X: c.X, Y: c.Y, HP: 0, ID: "8"}}
	})

	u, ok := l.StationaryAt(c)
	require.True(t, ok)
	assert.True(t, u.PendingRemoval)
	assert.Empty(t, l.BuildQueue())
}

func TestNewRejectsStackedFirewalls(t *testing.T) {
	cfg, cat := testConfig(t)
	var gs model.GameState
	gs.Units[0][model.Filter] = []model.UnitEntry{{X: 9, Y: 9}}
	gs.Units[0][model.Destructor] = []model.UnitEntry{{X: 9, Y: 9}}

	_, err := New(cat, cfg, gs)
	assert.ErrorIs(t, err, model.ErrProtocol)
}

func TestProjectFutureBits(t *testing.T) {
	l := newLedger(t, 0, 10, nil)

	got, err := l.ProjectFutureBits(1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, got)

	got, err = l.ProjectFutureBits(2, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 14.4, got)

	zero := 0.0
	got, err = l.ProjectFutureBits(1, 0, &zero)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	for _, turns := range []int{0, 100} {
		_, err = l.ProjectFutureBits(turns, 0, nil)
		assert.ErrorIs(t, err, model.ErrInvalidArgument)
	}
	_, err = l.ProjectFutureBits(1, 2, nil)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	negative := -1.0
	_, err = l.ProjectFutureBits(1, 0, &negative)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestSubmitOnce(t *testing.T) {
	l := newLedger(t, 5, 5, nil)
	_, err := l.Place(model.Destructor, []model.Cell{{X: 13, Y: 10}}, 1)
	require.NoError(t, err)

	var s recordingSubmitter
	require.NoError(t, l.Submit(&s))
	require.Len(t, s.sent, 2)

	build, err := json.Marshal(s.sent[0])
	require.NoError(t, err)
	assert.JSONEq(t, `[["DF",13,10]]`, string(build))
	deploy, err := json.Marshal(s.sent[1])
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(deploy))

	assert.ErrorIs(t, l.Submit(&s), ErrAlreadySubmitted)
	assert.Len(t, s.sent, 2)

	_, err = l.Place(model.Ping, []model.Cell{{X: 13, Y: 0}}, 1)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = l.Remove([]model.Cell{{X: 13, Y: 10}})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	ok, err := l.CanPlace(model.Ping, model.Cell{X: 13, Y: 0}, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitSendFailureStillCloses(t *testing.T) {
	l := newLedger(t, 5, 5, nil)
	s := recordingSubmitter{err: errors.New("broken pipe")}

	assert.Error(t, l.Submit(&s))
	assert.True(t, l.Submitted())
	assert.ErrorIs(t, l.Submit(&s), ErrAlreadySubmitted)
}

func TestInheritOverlays(t *testing.T) {
	prev := newLedger(t, 5, 5, nil)
	c := model.Cell{X: 3, Y: 11}
	prev.SetForbidden([]model.Cell{c}, true)
	prev.SetProtected([]model.Cell{c}, true)

	next := newLedger(t, 5, 5, nil)
	next.InheritOverlays(prev)
	assert.True(t, next.Forbidden(c))
	assert.True(t, next.Protected(c))

	next.ResetForbidden()
	assert.False(t, next.Forbidden(c))
	assert.True(t, prev.Forbidden(c))
}

func TestPathToEdgeSeesPendingPlacements(t *testing.T) {
	l := newLedger(t, 5, 5, nil)
	start := model.Cell{X: 13, Y: 0}

	_, err := l.Place(model.Filter, []model.Cell{{X: 13, Y: 1}}, 1)
	require.NoError(t, err)

	path, err := l.PathToEdge(start, board.TopRight)
	require.NoError(t, err)
	assert.NotContains(t, path, model.Cell{X: 13, Y: 1})
	assert.True(t, l.Board().OnEdge(path[len(path)-1], board.TopRight))
}
