package session

import (
	"context"
	"fmt"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/phase"
	"github.com/humwire/humwire/engine/wiring"
	"github.com/humwire/humwire/pkg/fn"
)

// Analysis is the outcome of running a State through the wiring engine.
type Analysis struct {
	Assignment domain.WireColorAssignment            `json:"assignment"`
	Mode       wiring.Mode                           `json:"mode"`
	Graph      wiring.ConnectionGraph                `json:"graph"`
	Steps      []wiring.Step                         `json:"steps"`
	Resistance map[domain.Position]wiring.Resistance `json:"resistance,omitempty"`
	Summary    string                                `json:"summary"`
}

type draft struct {
	state    State
	registry *domain.Registry
	conv     domain.SignConvention
	bare     string
	keep     domain.Polarity
	out      Analysis
}

// Analyze resolves the assignment (from the preset or from the manual probe
// input), validates it, builds the connection graph for the selected mode
// and renders the steps. Each stage runs in its own span.
func Analyze(ctx context.Context, r *domain.Registry, s State) (Analysis, error) {
	run := fn.Pipeline(
		fn.TracedStage("session.assignment", fn.Stage[draft, draft](assignmentStage)),
		fn.TracedStage("session.validate", fn.Stage[draft, draft](validateStage)),
		fn.TracedStage("session.connections", fn.Stage[draft, draft](connectionsStage)),
		fn.TracedStage("session.render", fn.MapStage(renderStage)),
	)
	res := run(ctx, draft{state: s.Normalize(), registry: r})
	d, err := res.Unwrap()
	if err != nil {
		return Analysis{}, err
	}
	return d.out, nil
}

// Resolve runs only the assignment and validation stages.
func Resolve(ctx context.Context, r *domain.Registry, s State) (domain.WireColorAssignment, error) {
	run := fn.Then(fn.Stage[draft, draft](assignmentStage), fn.Stage[draft, draft](validateStage))
	d, err := run(ctx, draft{state: s.Normalize(), registry: r}).Unwrap()
	if err != nil {
		return domain.WireColorAssignment{}, err
	}
	return d.out.Assignment, nil
}

func assignmentStage(_ context.Context, d draft) fn.Result[draft] {
	conv, err := domain.ParseSignConvention(d.state.Convention)
	if err != nil {
		return fn.Err[draft](err)
	}
	d.conv = conv

	if d.state.Preset != "" && d.state.Neck == nil && d.state.Bridge == nil {
		if d.registry == nil {
			return fn.Err[draft](domain.NewValidationError("preset", d.state.Preset, domain.ErrUnknownPreset))
		}
		p, err := d.registry.Preset(d.state.Preset)
		if err != nil {
			return fn.Err[draft](err)
		}
		d.out.Assignment = p.Assignment()
		d.conv = p.Scheme.Convention
		d.bare = p.Scheme.Bare
		return fn.Ok(d)
	}

	a := domain.WireColorAssignment{Preset: d.state.Preset}
	for _, pos := range domain.Positions {
		in := d.state.Pickup(pos)
		if in == nil {
			return fn.Err[draft](domain.NewValidationError(string(pos), "", domain.ErrInvalidAssignment))
		}
		pc, err := resolvePickup(pos, *in, d.conv)
		if err != nil {
			return fn.Err[draft](err)
		}
		if pos == domain.Neck {
			a.Neck = pc
		} else {
			a.Bridge = pc
		}
	}
	d.out.Assignment = a
	return fn.Ok(d)
}

func resolvePickup(pos domain.Position, in PickupInput, conv domain.SignConvention) (domain.PickupColors, error) {
	o, err := domain.ParseOrientation(in.Orientation)
	if err != nil {
		return domain.PickupColors{}, fmt.Errorf("%s: %w", pos, err)
	}
	var pc domain.PickupColors
	for _, slot := range domain.Slots {
		c := in.coil(slot)
		pol := o.Upper
		if slot == domain.Lower {
			pol = o.Lower
		}
		res, err := phase.Resolve(phase.Coil{
			Position: pos,
			Slot:     slot,
			Polarity: pol,
			Leads:    c.Leads,
			Swap:     c.Swap,
		}, c.Probes, conv)
		if err != nil {
			return domain.PickupColors{}, err
		}
		if slot == domain.Upper {
			pc.Upper = res.Colors(pol)
		} else {
			pc.Lower = res.Colors(pol)
		}
	}
	return pc, nil
}

func validateStage(_ context.Context, d draft) fn.Result[draft] {
	if err := domain.ValidateAssignment(d.out.Assignment); err != nil {
		return fn.Err[draft](err)
	}
	return fn.Ok(d)
}

func connectionsStage(_ context.Context, d draft) fn.Result[draft] {
	mode := wiring.Standard
	if d.state.Mode != "" {
		m, err := wiring.ParseMode(d.state.Mode)
		if err != nil {
			return fn.Err[draft](err)
		}
		mode = m
	}
	d.keep = domain.North
	if d.state.SplitCoil != "" {
		pol, err := domain.ParsePolarity(d.state.SplitCoil)
		if err != nil {
			return fn.Err[draft](err)
		}
		d.keep = pol
	}
	opts := []wiring.Option{wiring.WithSplitCoil(d.keep)}
	if d.bare != "" {
		opts = append(opts, wiring.WithBareLead(d.bare))
	}
	neck, bridge := wiring.PickupsFrom(d.out.Assignment)
	g, err := wiring.BuildConnections(neck, bridge, mode, opts...)
	if err != nil {
		return fn.Err[draft](err)
	}
	d.out.Mode = mode
	d.out.Graph = g
	return fn.Ok(d)
}

func renderStage(d draft) draft {
	d.out.Steps = wiring.Render(d.out.Graph)
	neck, bridge := wiring.PickupsFrom(d.out.Assignment)
	for _, p := range []wiring.Pickup{neck, bridge} {
		in := d.state.Pickup(p.Position)
		if in == nil {
			continue
		}
		if r, ok := wiring.EstimateResistance(in.Upper.Resistance, in.Lower.Resistance); ok {
			r.Expected = r.For(d.out.Mode, p.KeptSlot(d.keep))
			if d.out.Resistance == nil {
				d.out.Resistance = make(map[domain.Position]wiring.Resistance, 2)
			}
			d.out.Resistance[p.Position] = r
		}
	}
	d.out.Summary = d.state.Summary(d.registry)
	return d
}
