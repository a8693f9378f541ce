package rules

import (
	"strings"

	"github.com/nstehr/rampart/rampart-core/model"
)

// roles maps logical role names to catalog positions. Shorthands come from the
// game config and can change between seasons; the catalog order does not.
var roles = map[string]model.UnitType{
	"wall":        model.Filter,
	"shield":      model.Encryptor,
	"turret":      model.Destructor,
	"fast":        model.Ping,
	"siege":       model.EMP,
	"interceptor": model.Scrambler,
}

// resolveUnit accepts a shorthand such as "DF" or a role name such as
// "turret", case-insensitively. The remove pseudo-type is not resolvable.
func resolveUnit(cat *model.Catalog, name string) (model.UnitType, bool) {
	if t, ok := roles[strings.ToLower(name)]; ok {
		return t, true
	}
	for _, t := range append(model.StationaryTypes(), model.MobileTypes()...) {
		if s, err := cat.Shorthand(t); err == nil && strings.EqualFold(s, name) {
			return t, true
		}
	}
	return 0, false
}

// RoleName returns the role name of t, or "" for the remove pseudo-type.
func RoleName(t model.UnitType) string {
	for name, rt := range roles {
		if rt == t {
			return name
		}
	}
	return ""
}
