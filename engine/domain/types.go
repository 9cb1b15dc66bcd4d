// Package domain defines the humbucker data model shared by the wiring
// engine: pickup positions, coil slots, lead roles, magnet polarity, and the
// color assignment that ties physical wire colors to leads. It also owns the
// preset registry and the validation gate for user-entered assignments.
package domain

import (
	"fmt"
	"strings"
)

// Position is the physical location of a pickup in the guitar.
type Position string

const (
	Neck   Position = "neck"
	Bridge Position = "bridge"
)

// Positions lists pickup positions in render order.
var Positions = []Position{Neck, Bridge}

// Slot is one of the two coils inside a humbucker.
type Slot string

const (
	Upper Slot = "upper"
	Lower Slot = "lower"
)

// Slots lists coil slots in render order.
var Slots = []Slot{Upper, Lower}

// Role names one end of a coil winding.
type Role string

const (
	Start  Role = "start"
	Finish Role = "finish"
)

// Polarity is the magnet orientation of a coil, fixed by the manufacturer.
type Polarity string

const (
	North Polarity = "north"
	South Polarity = "south"
)

// Opposite returns the other polarity.
func (p Polarity) Opposite() Polarity {
	if p == North {
		return South
	}
	return North
}

// Valid reports whether p is north or south.
func (p Polarity) Valid() bool { return p == North || p == South }

// Title returns "North" or "South".
func (p Polarity) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// ParsePolarity accepts north/south in any case, plus the n/s, slug and screw
// shorthands used on the form.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "n", "slug":
		return North, nil
	case "south", "s", "screw":
		return South, nil
	}
	return "", NewValidationError("polarity", s, ErrInvalidAssignment)
}

// Lead identifies one wire end: which pickup, which coil, which end.
type Lead struct {
	Position Position `json:"position"`
	Slot     Slot     `json:"slot"`
	Role     Role     `json:"role"`
}

// ID returns the stable identifier, e.g. "neck-upper-start".
func (l Lead) ID() string {
	return fmt.Sprintf("%s-%s-%s", l.Position, l.Slot, l.Role)
}

func (l Lead) String() string { return l.ID() }

// ParseLead parses an identifier produced by Lead.ID.
func ParseLead(id string) (Lead, error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return Lead{}, NewValidationError("lead", id, ErrInvalidAssignment)
	}
	l := Lead{Position: Position(parts[0]), Slot: Slot(parts[1]), Role: Role(parts[2])}
	if (l.Position != Neck && l.Position != Bridge) ||
		(l.Slot != Upper && l.Slot != Lower) ||
		(l.Role != Start && l.Role != Finish) {
		return Lead{}, NewValidationError("lead", id, ErrInvalidAssignment)
	}
	return l, nil
}

// Orientation records which magnet polarity sits in the upper and lower slot.
type Orientation struct {
	Upper Polarity `json:"upper"`
	Lower Polarity `json:"lower"`
}

// String renders the orientation as "South-North".
func (o Orientation) String() string {
	return o.Upper.Title() + "-" + o.Lower.Title()
}

// Humbucking reports whether the two coils have opposite polarity.
func (o Orientation) Humbucking() bool {
	return o.Upper.Valid() && o.Lower.Valid() && o.Upper != o.Lower
}

// ParseOrientation parses "North-South", "south/north" and similar.
func ParseOrientation(s string) (Orientation, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' || r == ' ' })
	if len(parts) != 2 {
		return Orientation{}, NewValidationError("orientation", s, ErrInvalidAssignment)
	}
	up, err := ParsePolarity(parts[0])
	if err != nil {
		return Orientation{}, NewValidationError("orientation", s, ErrInvalidAssignment)
	}
	lo, err := ParsePolarity(parts[1])
	if err != nil {
		return Orientation{}, NewValidationError("orientation", s, ErrInvalidAssignment)
	}
	return Orientation{Upper: up, Lower: lo}, nil
}

// CoilColors holds one coil's polarity and the colors of its two leads.
type CoilColors struct {
	Polarity Polarity `json:"polarity"`
	Start    string   `json:"start"`
	Finish   string   `json:"finish"`
}

// Color returns the color for the given role.
func (c CoilColors) Color(r Role) string {
	if r == Start {
		return c.Start
	}
	return c.Finish
}

// PickupColors is the four-lead color mapping of one pickup.
type PickupColors struct {
	Upper CoilColors `json:"upper"`
	Lower CoilColors `json:"lower"`
}

// Coil returns the colors of the coil in slot s.
func (p PickupColors) Coil(s Slot) CoilColors {
	if s == Upper {
		return p.Upper
	}
	return p.Lower
}

// Orientation returns the polarity layout of the pickup.
func (p PickupColors) Orientation() Orientation {
	return Orientation{Upper: p.Upper.Polarity, Lower: p.Lower.Polarity}
}

// Colors returns the four lead colors in slot/role order.
func (p PickupColors) Colors() []string {
	return []string{p.Upper.Start, p.Upper.Finish, p.Lower.Start, p.Lower.Finish}
}

// WireColorAssignment maps every lead of both pickups to a wire color.
type WireColorAssignment struct {
	Preset string       `json:"preset,omitempty"`
	Neck   PickupColors `json:"neck"`
	Bridge PickupColors `json:"bridge"`
}

// Pickup returns the colors for the pickup at position p.
func (a WireColorAssignment) Pickup(p Position) PickupColors {
	if p == Neck {
		return a.Neck
	}
	return a.Bridge
}

// ColorOf returns the color assigned to lead l.
func (a WireColorAssignment) ColorOf(l Lead) string {
	return a.Pickup(l.Position).Coil(l.Slot).Color(l.Role)
}

// LeadFor finds which lead of the pickup at position p carries color.
// Colors compare case-insensitively.
func (a WireColorAssignment) LeadFor(p Position, color string) (Lead, bool) {
	pc := a.Pickup(p)
	for _, s := range Slots {
		for _, r := range []Role{Start, Finish} {
			if sameColor(pc.Coil(s).Color(r), color) {
				return Lead{Position: p, Slot: s, Role: r}, true
			}
		}
	}
	return Lead{}, false
}

// Entry is one color/lead pair of an assignment.
type Entry struct {
	Color string `json:"color"`
	Lead  Lead   `json:"lead"`
}

// Entries lists all eight color/lead pairs, neck first, upper before lower,
// start before finish.
func (a WireColorAssignment) Entries() []Entry {
	out := make([]Entry, 0, 8)
	for _, p := range Positions {
		for _, s := range Slots {
			for _, r := range []Role{Start, Finish} {
				l := Lead{Position: p, Slot: s, Role: r}
				out = append(out, Entry{Color: a.ColorOf(l), Lead: l})
			}
		}
	}
	return out
}

func sameColor(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
