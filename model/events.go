package model

import (
	"encoding/json"
	"fmt"
)

// Events groups the per-category event tuples of one frame. Each tuple ends with
// the engine player number (1 or 2), stored here as the player index (0 or 1).
type Events struct {
	Spawn        []SpawnEvent        `json:"spawn"`
	Move         []MoveEvent         `json:"move"`
	Attack       []AttackEvent       `json:"attack"`
	Breach       []BreachEvent       `json:"breach"`
	SelfDestruct []SelfDestructEvent `json:"selfDestruct"`
	Shield       []ShieldEvent       `json:"shield"`
	Death        []DeathEvent        `json:"death"`
}

// SpawnEvent: [cell, type, id, player].
type SpawnEvent struct {
	Cell   Cell
	Type   UnitType
	UnitID string
	Player int
}

// MoveEvent: [from, to, unused, type, id, player].
type MoveEvent struct {
	From   Cell
	To     Cell
	Type   UnitType
	UnitID string
	Player int
}

// AttackEvent: [attacker, receiver, damage, attackerType, attackerId, receiverId, player].
type AttackEvent struct {
	Attacker     Cell
	Receiver     Cell
	Damage       float64
	AttackerType UnitType
	AttackerID   string
	ReceiverID   string
	Player       int
}

// BreachEvent: [cell, damage, type, id, player].
type BreachEvent struct {
	Cell   Cell
	Damage float64
	Type   UnitType
	UnitID string
	Player int
}

// SelfDestructEvent: [cell, receivers, damage, type, id, player].
type SelfDestructEvent struct {
	Cell      Cell
	Receivers []Cell
	Damage    float64
	Type      UnitType
	UnitID    string
	Player    int
}

// ShieldEvent: [shielder, receiver, amount, type, shielderId, receiverId, player].
type ShieldEvent struct {
	Shielder   Cell
	Receiver   Cell
	Amount     float64
	Type       UnitType
	ShielderID string
	ReceiverID string
	Player     int
}

// DeathEvent: [cell, type, id, player, removedByOwner].
type DeathEvent struct {
	Cell           Cell
	Type           UnitType
	UnitID         string
	Player         int
	RemovedByOwner bool
}

// playerIndex converts the engine's player number to an index.
func playerIndex(n flexNum) (int, error) {
	p := int(n) - 1
	if !ValidPlayer(p) {
		return 0, fmt.Errorf("player number %v, want 1 or 2", float64(n))
	}
	return p, nil
}

func unitType(n flexNum) (UnitType, error) {
	t := UnitType(int(n))
	if !t.Valid() {
		return 0, fmt.Errorf("unit type index %v", float64(n))
	}
	return t, nil
}

func (e *SpawnEvent) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 4)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	var typ, player flexNum
	var id flexID
	if err := decodeFields(raw, &e.Cell, &typ, &id, &player); err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	if e.Type, err = unitType(typ); err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	if e.Player, err = playerIndex(player); err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	e.UnitID = string(id)
	return nil
}

func (e *MoveEvent) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 6)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	var typ, player flexNum
	var id flexID
	if err := decodeFields(raw, &e.From, &e.To, nil, &typ, &id, &player); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if e.Type, err = unitType(typ); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if e.Player, err = playerIndex(player); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	e.UnitID = string(id)
	return nil
}

func (e *AttackEvent) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 7)
	if err != nil {
		return fmt.Errorf("attack: %w", err)
	}
	var dmg, typ, player flexNum
	var attacker, receiver flexID
	if err := decodeFields(raw, &e.Attacker, &e.Receiver, &dmg, &typ, &attacker, &receiver, &player); err != nil {
		return fmt.Errorf("attack: %w", err)
	}
	if e.AttackerType, err = unitType(typ); err != nil {
		return fmt.Errorf("attack: %w", err)
	}
	if e.Player, err = playerIndex(player); err != nil {
		return fmt.Errorf("attack: %w", err)
	}
	e.Damage = float64(dmg)
	e.AttackerID, e.ReceiverID = string(attacker), string(receiver)
	return nil
}

func (e *BreachEvent) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 5)
	if err != nil {
		return fmt.Errorf("breach: %w", err)
	}
	var dmg, typ, player flexNum
	var id flexID
	if err := decodeFields(raw, &e.Cell, &dmg, &typ, &id, &player); err != nil {
		return fmt.Errorf("breach: %w", err)
	}
	if e.Type, err = unitType(typ); err != nil {
		return fmt.Errorf("breach: %w", err)
	}
	if e.Player, err = playerIndex(player); err != nil {
		return fmt.Errorf("breach: %w", err)
	}
	e.Damage = float64(dmg)
	e.UnitID = string(id)
	return nil
}

func (e *SelfDestructEvent) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 6)
	if err != nil {
		return fmt.Errorf("selfDestruct: %w", err)
	}
	var dmg, typ, player flexNum
	var id flexID
	if err := decodeFields(raw, &e.Cell, &e.Receivers, &dmg, &typ, &id, &player); err != nil {
		return fmt.Errorf("selfDestruct: %w", err)
	}
	if e.Type, err = unitType(typ); err != nil {
		return fmt.Errorf("selfDestruct: %w", err)
	}
	if e.Player, err = playerIndex(player); err != nil {
		return fmt.Errorf("selfDestruct: %w", err)
	}
	e.Damage = float64(dmg)
	e.UnitID = string(id)
	return nil
}

func (e *ShieldEvent) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 7)
	if err != nil {
		return fmt.Errorf("shield: %w", err)
	}
	var amount, typ, player flexNum
	var shielder, receiver flexID
	if err := decodeFields(raw, &e.Shielder, &e.Receiver, &amount, &typ, &shielder, &receiver, &player); err != nil {
		return fmt.Errorf("shield: %w", err)
	}
	if e.Type, err = unitType(typ); err != nil {
		return fmt.Errorf("shield: %w", err)
	}
	if e.Player, err = playerIndex(player); err != nil {
		return fmt.Errorf("shield: %w", err)
	}
	e.Amount = float64(amount)
	e.ShielderID, e.ReceiverID = string(shielder), string(receiver)
	return nil
}

func (e *DeathEvent) UnmarshalJSON(b []byte) error {
	raw, err := tupleFields(b, 4)
	if err != nil {
		return fmt.Errorf("death: %w", err)
	}
	var typ, player flexNum
	var id flexID
	if err := decodeFields(raw, &e.Cell, &typ, &id, &player); err != nil {
		return fmt.Errorf("death: %w", err)
	}
	if e.Type, err = unitType(typ); err != nil {
		return fmt.Errorf("death: %w", err)
	}
	if e.Player, err = playerIndex(player); err != nil {
		return fmt.Errorf("death: %w", err)
	}
	e.UnitID = string(id)
	if len(raw) > 4 {
		var removed flexBool
		if err := json.Unmarshal(raw[4], &removed); err != nil {
			return fmt.Errorf("death: %w", err)
		}
		e.RemovedByOwner = bool(removed)
	}
	return nil
}
