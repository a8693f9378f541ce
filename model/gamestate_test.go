package model

import (
	"errors"
	"testing"
)

const turnStartJSON = `{
	"turnInfo": [0, 3, -1],
	"p1Stats": [30, 12.5, "7.3", 1520],
	"p2Stats": [28, 4, 11, 900],
	"p1Units": [[[3, 12, 60, "11"], [4, 12, 60, "12"]], [], [[13, 11, 75, 13]], [], [], [], [[3, 12, 60, "11"]]],
	"p2Units": [[], [], [[13, 16, "75.0", "21"]], [], [], [], []],
	"events": {
		"breach": [[[5, 8], 1, 3, "31", 2]],
		"spawn": [], "move": [], "attack": [], "selfDestruct": [], "shield": [], "death": []
	}
}`

func TestParseGameState(t *testing.T) {
	gs, err := ParseGameState([]byte(turnStartJSON))
	if err != nil {
		t.Fatalf("ParseGameState: %v", err)
	}
	if gs.Phase != PhaseTurnStart || gs.Turn != 3 || gs.Frame != -1 {
		t.Errorf("turnInfo = %d/%d/%d, want 0/3/-1", gs.Phase, gs.Turn, gs.Frame)
	}
	if gs.Stats[0].Bits != 7.3 || gs.Stats[0].Cores != 12.5 {
		t.Errorf("p1 stats = %+v", gs.Stats[0])
	}
	if gs.Stats[1].Health != 28 {
		t.Errorf("p2 health = %v, want 28", gs.Stats[1].Health)
	}

	filters := gs.UnitsOf(0, Filter)
	if len(filters) != 2 || filters[1] != (UnitEntry{X: 4, Y: 12, HP: 60, ID: "12"}) {
		t.Errorf("p1 filters = %+v", filters)
	}
	if d := gs.UnitsOf(0, Destructor); len(d) != 1 || d[0].ID != "13" {
		t.Errorf("p1 destructors = %+v, want numeric id decoded as \"13\"", d)
	}
	if d := gs.UnitsOf(1, Destructor); len(d) != 1 || d[0].HP != 75 || d[0].Cell() != (Cell{X: 13, Y: 16}) {
		t.Errorf("p2 destructors = %+v", d)
	}
	if rm := gs.UnitsOf(0, Remove); len(rm) != 1 {
		t.Errorf("p1 removals = %+v", rm)
	}
	if gs.UnitsOf(2, Filter) != nil || gs.UnitsOf(0, UnitType(7)) != nil {
		t.Error("UnitsOf should return nil for invalid arguments")
	}

	if len(gs.Events.Breach) != 1 {
		t.Fatalf("breaches = %+v", gs.Events.Breach)
	}
	br := gs.Events.Breach[0]
	if br.Cell != (Cell{X: 5, Y: 8}) || br.Damage != 1 || br.Type != Ping || br.UnitID != "31" || br.Player != 1 {
		t.Errorf("breach = %+v", br)
	}
}

func TestParseGameStateRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", `not json`},
		{"short turnInfo", `{"turnInfo":[0],"p1Stats":[1,2,3,4],"p2Stats":[1,2,3,4]}`},
		{"short stats", `{"turnInfo":[0,1],"p1Stats":[1,2,3],"p2Stats":[1,2,3,4]}`},
		{"too many unit lists", `{"turnInfo":[0,1],"p1Stats":[1,2,3,4],"p2Stats":[1,2,3,4],"p1Units":[[],[],[],[],[],[],[],[]]}`},
		{"bad unit entry", `{"turnInfo":[0,1],"p1Stats":[1,2,3,4],"p2Stats":[1,2,3,4],"p1Units":[[[1]]]}`},
		{"bad event player", `{"turnInfo":[1,1,0],"p1Stats":[1,2,3,4],"p2Stats":[1,2,3,4],"events":{"spawn":[[[13,0],3,"1",3]]}}`},
		{"non-finite stat", `{"turnInfo":[0,1],"p1Stats":[1,"Inf",3,4],"p2Stats":[1,2,3,4]}`},
		{"NaN unit coordinate", `{"turnInfo":[0,1],"p1Stats":[1,2,3,4],"p2Stats":[1,2,3,4],"p1Units":[[["NaN",12,60,"1"]]]}`},
		{"NaN event player", `{"turnInfo":[1,1,0],"p1Stats":[1,2,3,4],"p2Stats":[1,2,3,4],"events":{"spawn":[[[13,0],3,"1","nan"]]}}`},
		{"bad event unit type", `{"turnInfo":[1,1,0],"p1Stats":[1,2,3,4],"p2Stats":[1,2,3,4],"events":{"spawn":[[[13,0],12,"1",1]]}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseGameState([]byte(tc.data)); !errors.Is(err, ErrProtocol) {
				t.Errorf("ParseGameState error = %v, want ErrProtocol", err)
			}
		})
	}
}

func TestParseFrameEvents(t *testing.T) {
	frame := `{
		"turnInfo": [1, 4, 2],
		"p1Stats": [30, 0, 0, 0],
		"p2Stats": [30, 0, 0, 0],
		"events": {
			"spawn": [[[13, 0], 3, "101", 1]],
			"move": [[[13, 0], [13, 1], [0, 0], 3, "101", 1]],
			"attack": [[[13, 1], [13, 15], 2.5, 3, "101", 202, 1]],
			"breach": [],
			"selfDestruct": [[[9, 4], [[9, 5], [10, 4]], 6, 4, "103", 1]],
			"shield": [[[12, 3], [13, 1], 3, 1, "9", "101", 1]],
			"death": [[[13, 15], 0, "202", 2, false], [[4, 12], 0, "44", 1, 1]]
		}
	}`
	gs, err := ParseGameState([]byte(frame))
	if err != nil {
		t.Fatalf("ParseGameState: %v", err)
	}
	ev := gs.Events

	if len(ev.Spawn) != 1 || ev.Spawn[0] != (SpawnEvent{Cell: Cell{13, 0}, Type: Ping, UnitID: "101", Player: 0}) {
		t.Errorf("spawn = %+v", ev.Spawn)
	}
	if len(ev.Move) != 1 || ev.Move[0].From != (Cell{13, 0}) || ev.Move[0].To != (Cell{13, 1}) {
		t.Errorf("move = %+v", ev.Move)
	}
	if a := ev.Attack[0]; a.Damage != 2.5 || a.AttackerID != "101" || a.ReceiverID != "202" || a.AttackerType != Ping {
		t.Errorf("attack = %+v", a)
	}
	if sd := ev.SelfDestruct[0]; len(sd.Receivers) != 2 || sd.Damage != 6 || sd.Type != EMP {
		t.Errorf("selfDestruct = %+v", sd)
	}
	if sh := ev.Shield[0]; sh.Amount != 3 || sh.ReceiverID != "101" || sh.Type != Encryptor {
		t.Errorf("shield = %+v", sh)
	}
	if len(ev.Death) != 2 || ev.Death[0].Player != 1 || ev.Death[0].RemovedByOwner || !ev.Death[1].RemovedByOwner {
		t.Errorf("death = %+v", ev.Death)
	}
}

func TestCellJSON(t *testing.T) {
	var c Cell
	if err := c.UnmarshalJSON([]byte(`["4", 9]`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if c != (Cell{X: 4, Y: 9}) {
		t.Errorf("cell = %s, want (4,9)", c)
	}
	b, err := c.MarshalJSON()
	if err != nil || string(b) != "[4,9]" {
		t.Errorf("MarshalJSON = %s, %v", b, err)
	}
	if err := c.UnmarshalJSON([]byte(`[4]`)); err == nil {
		t.Error("UnmarshalJSON of one coordinate should fail")
	}
	for _, in := range []string{`["NaN", 9]`, `[4, "+Inf"]`, `["-inf", 0]`} {
		if err := c.UnmarshalJSON([]byte(in)); err == nil {
			t.Errorf("UnmarshalJSON(%s) should fail", in)
		}
	}
}
