package model

import (
	"fmt"
)

// UnitType is the catalog index of a unit. The engine config lists the seven
// descriptors in this exact order, and every payload refers to units by index.
type UnitType int

const (
	Filter     UnitType = 0 // stationary wall
	Encryptor  UnitType = 1 // stationary shield
	Destructor UnitType = 2 // stationary turret
	Ping       UnitType = 3 // fast mobile
	EMP        UnitType = 4 // long-range mobile
	Scrambler  UnitType = 5 // anti-mobile mobile
	Remove     UnitType = 6 // pseudo-type: removal intent for a friendly firewall
)

// NumUnitTypes is the length of the unit catalog.
const NumUnitTypes = 7

// Valid reports whether t indexes the catalog.
func (t UnitType) Valid() bool { return t >= Filter && t <= Remove }

// Stationary reports whether t is a firewall type that occupies a cell.
func (t UnitType) Stationary() bool { return t >= Filter && t <= Destructor }

// Mobile reports whether t is an information type deployed on an edge.
func (t UnitType) Mobile() bool { return t >= Ping && t <= Scrambler }

// UnitInfo is one entry of the config's unitInformation list.
type UnitInfo struct {
	Shorthand string  `json:"shorthand" validate:"required"`
	Cost      float64 `json:"cost" validate:"gte=0"`
	Stability float64 `json:"stability" validate:"gte=0"` // starting hit points
}

// Catalog is the immutable unit table for one match. It is built once from the
// game config and handed to every component that needs to name or price units.
type Catalog struct {
	infos   [NumUnitTypes]UnitInfo
	byShort map[string]UnitType
}

// NewCatalog builds a catalog from the seven config descriptors.
func NewCatalog(infos []UnitInfo) (*Catalog, error) {
	if len(infos) != NumUnitTypes {
		return nil, fmt.Errorf("%w: unit catalog has %d entries, want %d", ErrProtocol, len(infos), NumUnitTypes)
	}
	c := &Catalog{byShort: make(map[string]UnitType, NumUnitTypes)}
	for i, info := range infos {
		if info.Shorthand == "" {
			return nil, fmt.Errorf("%w: unit %d has no shorthand", ErrProtocol, i)
		}
		if _, dup := c.byShort[info.Shorthand]; dup {
			return nil, fmt.Errorf("%w: duplicate shorthand %q", ErrProtocol, info.Shorthand)
		}
		c.infos[i] = info
		c.byShort[info.Shorthand] = UnitType(i)
	}
	return c, nil
}

// Type resolves a shorthand such as "DF" to its unit type.
func (c *Catalog) Type(shorthand string) (UnitType, error) {
	t, ok := c.byShort[shorthand]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, shorthand)
	}
	return t, nil
}

// Shorthand returns the engine code for t.
func (c *Catalog) Shorthand(t UnitType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: index %d", ErrUnknownUnit, int(t))
	}
	return c.infos[t].Shorthand, nil
}

// Cost returns the price of t in its resource.
func (c *Catalog) Cost(t UnitType) (float64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: index %d", ErrUnknownUnit, int(t))
	}
	return c.infos[t].Cost, nil
}

// Stability returns the starting hit points of t, zero when the config omits it.
func (c *Catalog) Stability(t UnitType) float64 {
	if !t.Valid() {
		return 0
	}
	return c.infos[t].Stability
}

// Name returns the shorthand for t, or a placeholder for invalid types.
// Intended for log lines.
func (c *Catalog) Name(t UnitType) string {
	s, err := c.Shorthand(t)
	if err != nil {
		return fmt.Sprintf("unit(%d)", int(t))
	}
	return s
}

// StationaryTypes returns the firewall types in catalog order.
func StationaryTypes() []UnitType { return []UnitType{Filter, Encryptor, Destructor} }

// MobileTypes returns the information types in catalog order.
func MobileTypes() []UnitType { return []UnitType{Ping, EMP, Scrambler} }
