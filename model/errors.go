package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks a caller mistake: an unknown unit type, a bad player
	// index or an out-of-range count. The requested operation is a no-op.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownUnit is returned for unit types or shorthands outside the catalog.
	// It always wraps ErrInvalidArgument.
	ErrUnknownUnit = fmt.Errorf("%w: unknown unit type", ErrInvalidArgument)

	// ErrProtocol marks a malformed config, turn-state or frame payload.
	ErrProtocol = errors.New("protocol error")
)

// ValidPlayer reports whether p is 0 (self) or 1 (opponent).
func ValidPlayer(p int) bool { return p == 0 || p == 1 }

// CheckPlayer returns ErrInvalidArgument for player indexes other than 0 and 1.
func CheckPlayer(p int) error {
	if !ValidPlayer(p) {
		return fmt.Errorf("%w: player index %d, want 0 (self) or 1 (opponent)", ErrInvalidArgument, p)
	}
	return nil
}
