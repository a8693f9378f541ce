package telemetry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
)

var (
	// ErrMalformedFrame means a frame line did not parse. The decode fails as a
	// whole and the History is left untouched.
	ErrMalformedFrame = fmt.Errorf("%w: malformed frame", model.ErrProtocol)

	// ErrUnknownUnit matches every *UnknownUnitError.
	ErrUnknownUnit = errors.New("unknown unit in telemetry")

	// ErrUnmatchedRemoval is a removal spawn with no firewall under it.
	ErrUnmatchedRemoval = errors.New("removal without a matching firewall")

	ErrDecoderUsed = errors.New("decoder already used")
)

// UnknownUnitError is an event naming a unit id that no spawn introduced.
type UnknownUnitError struct {
	Event  string
	UnitID string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("%s event references unknown unit %q", e.Event, e.UnitID)
}

func (e *UnknownUnitError) Is(target error) bool { return target == ErrUnknownUnit }

// UnitGroup is the set of mobile units one player spawned on one cell with one
// type in a single turn. The engine moves them in lockstep, so they share a path.
type UnitGroup struct {
	Type               model.UnitType `json:"type"`
	Spawn              model.Cell     `json:"spawn"`
	Count              int            `json:"count"`
	Path               []model.Cell   `json:"path"`
	Damage             float64        `json:"damage"`
	Breaches           int            `json:"breaches"`
	SelfDestructDamage float64        `json:"selfDestructDamage"`
	ShieldReceived     float64        `json:"shieldReceived"`
	Deaths             int            `json:"deaths"`
}

// Removal is a firewall its owner removed this turn and the hit points it had.
type Removal struct {
	Type model.UnitType `json:"type"`
	Cell model.Cell     `json:"cell"`
	HP   float64        `json:"hp"`
}

// SkippedEvent is an event the decoder logged and ignored.
type SkippedEvent struct {
	Frame  int    `json:"frame"`
	Event  string `json:"event"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// TurnReport is what one player did during one elapsed turn.
type TurnReport struct {
	Turn   int `json:"turn"`
	Player int `json:"player"`
	Frames int `json:"frames"`

	Groups  []UnitGroup     `json:"groups"`
	Built   [3][]model.Cell `json:"built"` // stationary spawns by type
	Removed [3][]Removal    `json:"removed"`
	Lost    []model.Cell    `json:"lost"` // firewalls destroyed by the other side

	CoresSpent float64 `json:"coresSpent"`
	BitsSpent  float64 `json:"bitsSpent"`

	Skipped []SkippedEvent `json:"skipped,omitempty"`
}

// Group returns the group spawned at c with type t.
func (r *TurnReport) Group(c model.Cell, t model.UnitType) (UnitGroup, bool) {
	for _, g := range r.Groups {
		if g.Spawn == c && g.Type == t {
			return g, true
		}
	}
	return UnitGroup{}, false
}

func (r *TurnReport) TotalDamage() float64 {
	total := 0.0
	for _, g := range r.Groups {
		total += g.Damage + g.SelfDestructDamage
	}
	return total
}

func (r *TurnReport) TotalBreaches() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Breaches
	}
	return n
}

// Decoder folds one turn of frames into a TurnReport and the player's History.
// A Decoder owns the unit id index of a single turn and is used once.
type Decoder struct {
	cat     *model.Catalog
	history *History
	player  int

	used    bool
	groups  []*UnitGroup
	byID    map[string]*UnitGroup
	pending []op
	report  *TurnReport
}

// NewDecoder returns a decoder for player's events. history may be nil when
// only the report is wanted.
func NewDecoder(cat *model.Catalog, history *History, player int) *Decoder {
	return &Decoder{
		cat:     cat,
		history: history,
		player:  player,
		byID:    make(map[string]*UnitGroup),
	}
}

// Decode parses every frame of the elapsed turn, frame 0 first. prev is the
// ledger of that turn, used for the resources-spent figures; it may be nil.
func (d *Decoder) Decode(frames [][]byte, prev *ledger.Ledger) (*TurnReport, error) {
	if d.used {
		return nil, ErrDecoderUsed
	}
	d.used = true
	if err := model.CheckPlayer(d.player); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrMalformedFrame)
	}

	states := make([]model.GameState, len(frames))
	for i, f := range frames {
		gs, err := model.ParseGameState(f)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrMalformedFrame, i, err)
		}
		states[i] = gs
	}

	first := states[0]
	d.report = &TurnReport{Turn: first.Turn, Player: d.player, Frames: len(states)}
	d.spawns(first)
	for i, gs := range states {
		d.combat(i, first.Turn, gs.Events)
	}

	if prev != nil {
		before := prev.Stats(d.player)
		after := first.Stats[d.player]
		d.report.CoresSpent = before.Cores - after.Cores
		d.report.BitsSpent = before.Bits - after.Bits
	}

	d.report.Groups = make([]UnitGroup, len(d.groups))
	for i, g := range d.groups {
		d.report.Groups[i] = *g
	}
	if d.history != nil {
		d.history.apply(d.pending)
	}
	d.pending = nil
	return d.report, nil
}

func (d *Decoder) stage(o op) { d.pending = append(d.pending, o) }

func (d *Decoder) skip(frame int, event string, err error) {
	slog.Warn("skipping telemetry event", "turn", d.report.Turn, "frame", frame, "event", event, "error", err)
	d.report.Skipped = append(d.report.Skipped, SkippedEvent{Frame: frame, Event: event, Reason: err.Error(), Err: err})
}

// spawns reads frame 0: mobile spawns become groups, removal spawns are
// matched against the firewall they remove, firewall spawns are listed.
func (d *Decoder) spawns(gs model.GameState) {
	byCell := make(map[model.UnitType]map[model.Cell]*UnitGroup)
	for _, ev := range gs.Events.Spawn {
		if ev.Player != d.player {
			continue
		}
		d.stage(op{cell: ev.Cell, kind: spawned, unit: ev.Type})

		switch {
		case ev.Type.Stationary():
			d.report.Built[ev.Type] = append(d.report.Built[ev.Type], ev.Cell)
		case ev.Type == model.Remove:
			d.stage(op{cell: ev.Cell, kind: Removals, turn: gs.Turn})
			d.matchRemoval(gs, ev.Cell)
		default:
			cells := byCell[ev.Type]
			if cells == nil {
				cells = make(map[model.Cell]*UnitGroup)
				byCell[ev.Type] = cells
			}
			g, ok := cells[ev.Cell]
			if !ok {
				g = &UnitGroup{Type: ev.Type, Spawn: ev.Cell, Path: []model.Cell{ev.Cell}}
				cells[ev.Cell] = g
				d.groups = append(d.groups, g)
				slog.Debug("unit group spawned", "turn", gs.Turn, "player", d.player, "type", d.cat.Name(ev.Type), "cell", ev.Cell)
			}
			g.Count++
			d.byID[ev.UnitID] = g
		}
	}
}

func (d *Decoder) matchRemoval(gs model.GameState, c model.Cell) {
	matched := false
	for _, t := range model.StationaryTypes() {
		for _, u := range gs.UnitsOf(d.player, t) {
			if u.Cell() == c {
				d.report.Removed[t] = append(d.report.Removed[t], Removal{Type: t, Cell: c, HP: u.HP})
				matched = true
			}
		}
	}
	if !matched {
		d.skip(0, "spawn", fmt.Errorf("%w at %s", ErrUnmatchedRemoval, c))
	}
}

func (d *Decoder) lookup(event, id string) (*UnitGroup, error) {
	g, ok := d.byID[id]
	if !ok {
		return nil, &UnknownUnitError{Event: event, UnitID: id}
	}
	return g, nil
}

// combat attributes one frame's events to groups and cells. Events of the
// other player are ignored.
func (d *Decoder) combat(frame, turn int, ev model.Events) {
	for _, a := range ev.Attack {
		if a.Player != d.player {
			continue
		}
		if a.AttackerType.Mobile() {
			g, err := d.lookup("attack", a.AttackerID)
			if err != nil {
				d.skip(frame, "attack", err)
				continue
			}
			g.Damage += a.Damage
		}
		d.stage(op{cell: a.Attacker, kind: Attacks, turn: turn})
		d.stage(op{cell: a.Receiver, kind: Damage, turn: turn})
	}

	for _, m := range ev.Move {
		if m.Player != d.player {
			continue
		}
		g, err := d.lookup("move", m.UnitID)
		if err != nil {
			d.skip(frame, "move", err)
			continue
		}
		g.Path = append(g.Path, m.To)
	}

	for _, b := range ev.Breach {
		if b.Player != d.player {
			continue
		}
		g, err := d.lookup("breach", b.UnitID)
		if err != nil {
			d.skip(frame, "breach", err)
			continue
		}
		g.Breaches++
		d.stage(op{cell: b.Cell, kind: Breaches, turn: turn})
	}

	for _, s := range ev.SelfDestruct {
		if s.Player != d.player {
			continue
		}
		g, err := d.lookup("selfDestruct", s.UnitID)
		if err != nil {
			d.skip(frame, "selfDestruct", err)
			continue
		}
		g.SelfDestructDamage += s.Damage * float64(len(s.Receivers))
	}

	// Shields target mobile units only; one landing on a unit we did not spawn
	// this turn is not an inconsistency worth reporting.
	for _, s := range ev.Shield {
		if s.Player != d.player {
			continue
		}
		if g, ok := d.byID[s.ReceiverID]; ok {
			g.ShieldReceived += s.Amount
		}
	}

	for _, x := range ev.Death {
		if x.Player != d.player {
			continue
		}
		if x.Type.Stationary() {
			if !x.RemovedByOwner {
				d.report.Lost = append(d.report.Lost, x.Cell)
			}
			continue
		}
		if g, ok := d.byID[x.UnitID]; ok {
			g.Deaths++
		}
	}
}
