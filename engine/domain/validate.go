package domain

import (
	"fmt"
	"strings"
)

// ValidateAssignment checks that every lead of both pickups has a color,
// that no color repeats within one pickup, and that each coil carries a
// known polarity. Colors may repeat across the two pickups.
func ValidateAssignment(a WireColorAssignment) error {
	for _, p := range Positions {
		if err := ValidatePickupColors(p, a.Pickup(p)); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePickupColors validates the four leads of a single pickup.
func ValidatePickupColors(p Position, pc PickupColors) error {
	seen := make(map[string]Lead, 4)
	for _, s := range Slots {
		coil := pc.Coil(s)
		if !coil.Polarity.Valid() {
			return NewValidationError(fmt.Sprintf("%s.%s.polarity", p, s), string(coil.Polarity), ErrInvalidAssignment)
		}
		for _, r := range []Role{Start, Finish} {
			l := Lead{Position: p, Slot: s, Role: r}
			color := strings.TrimSpace(coil.Color(r))
			if color == "" {
				return NewValidationError(l.ID(), color, ErrInvalidAssignment)
			}
			key := strings.ToLower(color)
			if prev, dup := seen[key]; dup {
				return NewValidationError(l.ID(), fmt.Sprintf("%s (already on %s)", color, prev.ID()), ErrInvalidAssignment)
			}
			seen[key] = l
		}
	}
	return nil
}

// ValidateColorPair checks a user-selected pair of colors for one coil.
func ValidateColorPair(field string, pair []string) error {
	if len(pair) != 2 {
		return NewValidationError(field, strings.Join(pair, ","), ErrInvalidAssignment)
	}
	a, b := strings.TrimSpace(pair[0]), strings.TrimSpace(pair[1])
	if a == "" || b == "" || strings.EqualFold(a, b) {
		return NewValidationError(field, strings.Join(pair, ","), ErrInvalidAssignment)
	}
	return nil
}
