package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Phase values carried in turnInfo[0].
const (
	PhaseTurnStart   = 0 // the engine waits for our submission
	PhaseActionFrame = 1 // one frame of combat replay
	PhaseGameOver    = 2
)

// Cell is a board coordinate. On the wire it is a two-element array [x, y].
type Cell struct {
	X int
	Y int
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.X, c.Y})
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	var xy []flexNum
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("cell: %w", err)
	}
	if len(xy) < 2 {
		return fmt.Errorf("cell: want [x, y], got %s", b)
	}
	c.X, c.Y = int(xy[0]), int(xy[1])
	return nil
}

// GameState is one line from the engine: either the turn-start snapshot or a
// single action frame. Both share the same layout.
type GameState struct {
	Phase  int
	Turn   int
	Frame  int
	Stats  [2]Stats
	Units  [2][NumUnitTypes][]UnitEntry
	Events Events
}

// Stats is a player's [health, cores, bits, time] quadruple.
type Stats struct {
	Health float64
	Cores  float64
	Bits   float64
	Time   float64
}

// UnitEntry is one placed unit as listed in p1Units/p2Units: [x, y, hp, id].
type UnitEntry struct {
	X  int
	Y  int
	HP float64
	ID string
}

func (u UnitEntry) Cell() Cell { return Cell{X: u.X, Y: u.Y} }

func (u *UnitEntry) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 3)
	if err != nil {
		return fmt.Errorf("unit entry: %w", err)
	}
	var x, y, hp flexNum
	if err := decodeFields(raw, &x, &y, &hp); err != nil {
		return fmt.Errorf("unit entry: %w", err)
	}
	u.X, u.Y, u.HP = int(x), int(y), float64(hp)
	if len(raw) > 3 {
		var id flexID
		if err := json.Unmarshal(raw[3], &id); err != nil {
			return fmt.Errorf("unit entry id: %w", err)
		}
		u.ID = string(id)
	}
	return nil
}

type wireState struct {
	TurnInfo []flexNum       `json:"turnInfo"`
	P1Stats  []flexNum       `json:"p1Stats"`
	P2Stats  []flexNum       `json:"p2Stats"`
	P1Units  [][]UnitEntry   `json:"p1Units"`
	P2Units  [][]UnitEntry   `json:"p2Units"`
	Events   json.RawMessage `json:"events"`
}

// ParseGameState decodes a turn-start or action-frame line.
func ParseGameState(data []byte) (GameState, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return GameState{}, fmt.Errorf("%w: unmarshal game state: %v", ErrProtocol, err)
	}
	if len(w.TurnInfo) < 2 {
		return GameState{}, fmt.Errorf("%w: turnInfo has %d fields", ErrProtocol, len(w.TurnInfo))
	}

	gs := GameState{
		Phase: int(w.TurnInfo[0]),
		Turn:  int(w.TurnInfo[1]),
	}
	if len(w.TurnInfo) > 2 {
		gs.Frame = int(w.TurnInfo[2])
	}

	for i, raw := range [][]flexNum{w.P1Stats, w.P2Stats} {
		if len(raw) < 4 {
			return GameState{}, fmt.Errorf("%w: p%dStats has %d fields, want 4", ErrProtocol, i+1, len(raw))
		}
		gs.Stats[i] = Stats{
			Health: float64(raw[0]),
			Cores:  float64(raw[1]),
			Bits:   float64(raw[2]),
			Time:   float64(raw[3]),
		}
	}

	for i, lists := range [][][]UnitEntry{w.P1Units, w.P2Units} {
		if len(lists) > NumUnitTypes {
			return GameState{}, fmt.Errorf("%w: p%dUnits has %d lists", ErrProtocol, i+1, len(lists))
		}
		for t, entries := range lists {
			gs.Units[i][t] = entries
		}
	}

	if len(w.Events) > 0 && string(w.Events) != "null" {
		if err := json.Unmarshal(w.Events, &gs.Events); err != nil {
			return GameState{}, fmt.Errorf("%w: events: %v", ErrProtocol, err)
		}
	}
	return gs, nil
}

// UnitsOf returns the entries of type t owned by player.
func (gs GameState) UnitsOf(player int, t UnitType) []UnitEntry {
	if !ValidPlayer(player) || !t.Valid() {
		return nil
	}
	return gs.Units[player][t]
}

// tupleFields splits a JSON array and checks it has at least min elements.
func tupleFields(b []byte, min int) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if len(raw) < min {
		return nil, fmt.Errorf("tuple has %d fields, want at least %d", len(raw), min)
	}
	return raw, nil
}

// decodeFields unmarshals raw[i] into dst[i]. A nil destination skips the field.
func decodeFields(raw []json.RawMessage, dst ...any) error {
	for i, d := range dst {
		if d == nil {
			continue
		}
		if i >= len(raw) {
			return fmt.Errorf("missing field %d", i)
		}
		if err := json.Unmarshal(raw[i], d); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
	}
	return nil
}

// flexNum accepts 3, 3.5 or "3". Replays written by older engines quote
// numeric fields inconsistently.
type flexNum float64

func (n *flexNum) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = flexNum(f)
	return nil
}

// flexID accepts an id as a string or a bare number.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("not an id: %s", b)
	}
	*id = flexID(n.String())
	return nil
}

// flexBool accepts true/false or 1/0.
type flexBool bool

func (v *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.TrimSpace(string(b)), `"`) {
	case "true", "1":
		*v = true
	case "false", "0", "null":
		*v = false
	default:
		return fmt.Errorf("not a bool: %s", b)
	}
	return nil
}
