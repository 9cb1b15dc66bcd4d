package wiring

import (
	"fmt"

	"github.com/humwire/humwire/engine/domain"
)

// Terminal is a non-lead destination: a selector lug, the output node or
// ground.
type Terminal string

const (
	SwitchNeck   Terminal = "switch-neck"
	SwitchBridge Terminal = "switch-bridge"
	Output       Terminal = "output"
	Ground       Terminal = "ground"
)

var terminalTitles = map[Terminal]string{
	SwitchNeck:   "the neck lug of the pickup selector",
	SwitchBridge: "the bridge lug of the pickup selector",
	Output:       "the output (volume pot input)",
	Ground:       "ground (back of the pot)",
}

// switchFor returns the selector lug serving position p.
func switchFor(p domain.Position) Terminal {
	if p == domain.Neck {
		return SwitchNeck
	}
	return SwitchBridge
}

// Endpoint is the destination of an edge: either a lead or a terminal.
type Endpoint struct {
	Lead     *domain.Lead `json:"lead,omitempty"`
	Terminal Terminal     `json:"terminal,omitempty"`
}

// ID returns the lead ID or terminal name.
func (e Endpoint) ID() string {
	if e.Lead != nil {
		return e.Lead.ID()
	}
	return string(e.Terminal)
}

// EdgeKind classifies an edge for rendering order.
type EdgeKind string

const (
	KindInternal EdgeKind = "internal"
	KindCross    EdgeKind = "cross"
	KindTerminal EdgeKind = "terminal"
)

// Edge is one solder joint from a lead to its single destination.
type Edge struct {
	From      domain.Lead `json:"from"`
	FromColor string      `json:"from_color"`
	To        Endpoint    `json:"to"`
	ToColor   string      `json:"to_color,omitempty"`
	Kind      EdgeKind    `json:"kind"`
}

func (e Edge) String() string {
	return e.From.ID() + " -> " + e.To.ID()
}

// ConnectionGraph is the resolved wiring for both pickups. Bare names the
// color of the uninsulated shield lead when the pickups have one; it is
// grounded before anything else.
type ConnectionGraph struct {
	Mode  Mode   `json:"mode"`
	Edges []Edge `json:"edges"`
	Bare  string `json:"bare,omitempty"`
}

// Outgoing returns the edges leaving lead l.
func (g ConnectionGraph) Outgoing(l domain.Lead) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == l {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the graph invariants: every edge's kind matches its
// destination, no lead has two outgoing edges and every coil finish lead has
// exactly one.
func (g ConnectionGraph) Validate() error {
	counts := make(map[domain.Lead]int, len(g.Edges))
	for _, e := range g.Edges {
		if e.To.Lead != nil && *e.To.Lead == e.From {
			return fmt.Errorf("wiring: %s connected to itself", e.From.ID())
		}
		if e.To.Lead == nil && e.To.Terminal == "" {
			return fmt.Errorf("wiring: %s has no destination", e.From.ID())
		}
		if (e.Kind == KindTerminal) != (e.To.Lead == nil) {
			return fmt.Errorf("wiring: %s edge %s does not match its destination", e.Kind, e)
		}
		counts[e.From]++
		if counts[e.From] > 1 {
			return fmt.Errorf("wiring: %s has %d outgoing edges", e.From.ID(), counts[e.From])
		}
	}
	for _, p := range domain.Positions {
		for _, s := range domain.Slots {
			l := domain.Lead{Position: p, Slot: s, Role: domain.Finish}
			if counts[l] != 1 {
				return fmt.Errorf("wiring: finish lead %s has %d outgoing edges", l.ID(), counts[l])
			}
		}
	}
	return nil
}
