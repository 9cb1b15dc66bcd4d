// Package wiring turns two resolved pickups and a wiring mode into a
// connection graph, and renders that graph as ordered soldering steps.
package wiring

import (
	"errors"
	"strings"

	"github.com/humwire/humwire/engine/domain"
)

// Mode selects how the conductors of both pickups are joined.
type Mode string

const (
	Standard   Mode = "standard"
	CoilSplit  Mode = "split"
	Series     Mode = "series"
	Parallel   Mode = "parallel"
	OutOfPhase Mode = "out-of-phase"
)

// Modes lists every mode in menu order.
var Modes = []Mode{Standard, CoilSplit, Series, Parallel, OutOfPhase}

// ErrUnknownMode is returned for a mode name outside Modes.
var ErrUnknownMode = errors.New("unknown wiring mode")

var modeTitles = map[Mode]string{
	Standard:   "Standard humbucking",
	CoilSplit:  "Coil split",
	Series:     "Series (both pickups chained)",
	Parallel:   "Parallel (both pickups to one output)",
	OutOfPhase: "Out of phase",
}

// Title returns the display name of m.
func (m Mode) Title() string {
	if t, ok := modeTitles[m]; ok {
		return t
	}
	return string(m)
}

// Humbucking reports whether m keeps both coils of each pickup active.
func (m Mode) Humbucking() bool { return m != CoilSplit }

// ParseMode accepts mode names, display titles, and a few common aliases.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	switch key {
	case "standard", "standard-humbucking", "humbucking", "series-humbucking":
		return Standard, nil
	case "split", "coil-split", "single-coil":
		return CoilSplit, nil
	case "series":
		return Series, nil
	case "parallel", "parallel-humbucking":
		return Parallel, nil
	case "out-of-phase", "outofphase", "oop":
		return OutOfPhase, nil
	}
	return "", domain.NewValidationError("mode", s, ErrUnknownMode)
}
