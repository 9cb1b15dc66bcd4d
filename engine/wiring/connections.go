package wiring

import (
	"fmt"
	"strings"

	"github.com/humwire/humwire/engine/domain"
)

// Pickup is one humbucker with resolved start/finish colors per coil.
type Pickup struct {
	Position domain.Position   `json:"position"`
	Upper    domain.CoilColors `json:"upper"`
	Lower    domain.CoilColors `json:"lower"`
}

// PickupsFrom splits an assignment into neck and bridge pickups.
func PickupsFrom(a domain.WireColorAssignment) (neck, bridge Pickup) {
	neck = Pickup{Position: domain.Neck, Upper: a.Neck.Upper, Lower: a.Neck.Lower}
	bridge = Pickup{Position: domain.Bridge, Upper: a.Bridge.Upper, Lower: a.Bridge.Lower}
	return neck, bridge
}

// Orientation returns the polarity layout of the pickup.
func (p Pickup) Orientation() domain.Orientation {
	return domain.Orientation{Upper: p.Upper.Polarity, Lower: p.Lower.Polarity}
}

func (p Pickup) coil(s domain.Slot) domain.CoilColors {
	if s == domain.Upper {
		return p.Upper
	}
	return p.Lower
}

// slotOf returns the slot holding the coil with polarity pol.
func (p Pickup) slotOf(pol domain.Polarity) domain.Slot {
	if p.Upper.Polarity == pol {
		return domain.Upper
	}
	return domain.Lower
}

func (p Pickup) lead(s domain.Slot, r domain.Role) domain.Lead {
	return domain.Lead{Position: p.Position, Slot: s, Role: r}
}

// hot is the start of the south coil, the first coil in the internal chain.
func (p Pickup) hot() domain.Lead { return p.lead(p.slotOf(domain.South), domain.Start) }

// cold is the finish of the north coil, the last coil in the internal chain.
func (p Pickup) cold() domain.Lead { return p.lead(p.slotOf(domain.North), domain.Finish) }

func (p Pickup) color(l domain.Lead) string {
	return p.coil(l.Slot).Color(l.Role)
}

// Option tunes BuildConnections.
type Option func(*options)

type options struct {
	splitKeep domain.Polarity
	bare      string
}

// WithSplitCoil selects which coil stays active in CoilSplit mode. The
// default keeps the north (slug) coil.
func WithSplitCoil(p domain.Polarity) Option {
	return func(o *options) {
		if p.Valid() {
			o.splitKeep = p
		}
	}
}

// WithBareLead records the color of the pickups' bare shield lead so that
// rendering grounds it first.
func WithBareLead(color string) Option {
	return func(o *options) {
		o.bare = strings.TrimSpace(color)
	}
}

// BuildConnections applies the template for mode to the two pickups.
// Humbucking modes need one north and one south coil per pickup; Standard
// additionally needs mirrored pickups whose inner coils share polarity so the
// pair cancels hum. Either failure is domain.ErrPolarityMismatch.
func BuildConnections(neck, bridge Pickup, mode Mode, opts ...Option) (ConnectionGraph, error) {
	o := options{splitKeep: domain.North}
	for _, opt := range opts {
		opt(&o)
	}
	neck.Position, bridge.Position = domain.Neck, domain.Bridge

	for _, p := range []Pickup{neck, bridge} {
		if !p.Upper.Polarity.Valid() || !p.Lower.Polarity.Valid() {
			return ConnectionGraph{}, domain.NewValidationError(string(p.Position)+".polarity", p.Orientation().String(), domain.ErrInvalidAssignment)
		}
	}

	b := &builder{graph: ConnectionGraph{Mode: mode, Bare: o.bare}}
	switch mode {
	case Standard, OutOfPhase, Series, Parallel:
		for _, p := range []Pickup{neck, bridge} {
			if !p.Orientation().Humbucking() {
				return ConnectionGraph{}, domain.NewValidationError(string(p.Position), p.Orientation().String(), domain.ErrPolarityMismatch)
			}
		}
	case CoilSplit:
	default:
		return ConnectionGraph{}, domain.NewValidationError("mode", string(mode), ErrUnknownMode)
	}

	switch mode {
	case Standard:
		if neck.Lower.Polarity != bridge.Upper.Polarity {
			return ConnectionGraph{}, domain.NewValidationError("orientation",
				fmt.Sprintf("neck %s, bridge %s", neck.Orientation(), bridge.Orientation()), domain.ErrPolarityMismatch)
		}
		b.seriesLink(neck)
		b.seriesLink(bridge)
		b.toTerminal(neck, neck.hot(), SwitchNeck)
		b.toTerminal(bridge, bridge.hot(), SwitchBridge)
		b.toTerminal(neck, neck.cold(), Ground)
		b.toTerminal(bridge, bridge.cold(), Ground)
	case OutOfPhase:
		b.seriesLink(neck)
		b.seriesLink(bridge)
		b.toTerminal(neck, neck.hot(), SwitchNeck)
		b.toTerminal(neck, neck.cold(), Ground)
		// bridge hot and cold swap places at the output stage
		b.toTerminal(bridge, bridge.cold(), SwitchBridge)
		b.toTerminal(bridge, bridge.hot(), Ground)
	case Series:
		b.seriesLink(neck)
		b.seriesLink(bridge)
		b.toTerminal(neck, neck.hot(), Output)
		b.join(neck, neck.cold(), bridge, bridge.hot(), KindCross)
		b.toTerminal(bridge, bridge.cold(), Ground)
	case Parallel:
		b.seriesLink(neck)
		b.seriesLink(bridge)
		b.toTerminal(neck, neck.hot(), Output)
		b.toTerminal(bridge, bridge.hot(), Output)
		b.toTerminal(neck, neck.cold(), Ground)
		b.toTerminal(bridge, bridge.cold(), Ground)
	case CoilSplit:
		b.split(neck, o.splitKeep)
		b.split(bridge, o.splitKeep)
	}

	if err := b.graph.Validate(); err != nil {
		panic(fmt.Sprintf("wiring: %s template produced an invalid graph: %v", mode, err))
	}
	return b.graph, nil
}

type builder struct {
	graph ConnectionGraph
}

func (b *builder) join(fromP Pickup, from domain.Lead, toP Pickup, to domain.Lead, kind EdgeKind) {
	dst := to
	b.graph.Edges = append(b.graph.Edges, Edge{
		From:      from,
		FromColor: fromP.color(from),
		To:        Endpoint{Lead: &dst},
		ToColor:   toP.color(to),
		Kind:      kind,
	})
}

func (b *builder) toTerminal(p Pickup, from domain.Lead, t Terminal) {
	b.graph.Edges = append(b.graph.Edges, Edge{
		From:      from,
		FromColor: p.color(from),
		To:        Endpoint{Terminal: t},
		Kind:      KindTerminal,
	})
}

// seriesLink joins the south coil's finish to the north coil's start.
func (b *builder) seriesLink(p Pickup) {
	from := p.lead(p.slotOf(domain.South), domain.Finish)
	to := p.lead(p.slotOf(domain.North), domain.Start)
	b.join(p, from, p, to, KindInternal)
}

// KeptSlot returns the slot whose coil stays active when p is split keeping
// polarity keep. When both coils share a polarity the upper coil is kept.
func (p Pickup) KeptSlot(keep domain.Polarity) domain.Slot {
	if p.Upper.Polarity != keep && p.Lower.Polarity == keep {
		return domain.Lower
	}
	return domain.Upper
}

// split routes the kept coil to the pickup's selector lug and grounds both
// leads of the other coil.
func (b *builder) split(p Pickup, keep domain.Polarity) {
	active := p.KeptSlot(keep)
	idle := domain.Lower
	if active == domain.Lower {
		idle = domain.Upper
	}
	b.toTerminal(p, p.lead(active, domain.Start), switchFor(p.Position))
	b.toTerminal(p, p.lead(active, domain.Finish), Ground)
	b.toTerminal(p, p.lead(idle, domain.Start), Ground)
	b.toTerminal(p, p.lead(idle, domain.Finish), Ground)
}
