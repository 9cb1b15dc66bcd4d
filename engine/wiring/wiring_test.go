package wiring

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/humwire/humwire/engine/domain"
)

func pickups(t *testing.T, preset string) (Pickup, Pickup) {
	t.Helper()
	a, err := domain.NewRegistry().Lookup(preset)
	if err != nil {
		t.Fatal(err)
	}
	return PickupsFrom(a)
}

func TestBuildConnections_ConfigurationAStandard(t *testing.T) {
	neck, bridge := pickups(t, "Configuration A")
	g, err := BuildConnections(neck, bridge, Standard)
	if err != nil {
		t.Fatal(err)
	}
	steps := Render(g)
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d: %+v", len(steps), steps)
	}
	for i, s := range steps {
		if s.Number != i+1 {
			t.Errorf("step %d numbered %d", i+1, s.Number)
		}
	}
	// neck is North-South, so the lower (south) finish joins the upper (north) start
	first := steps[0].Edges[0]
	if first.From.ID() != "neck-lower-finish" || first.To.ID() != "neck-upper-start" {
		t.Fatalf("unexpected first join %s", first)
	}
	if first.FromColor != "Green" || first.ToColor != "Black" {
		t.Fatalf("unexpected colors %s/%s", first.FromColor, first.ToColor)
	}
	if !strings.Contains(steps[2].Text, "Neck pickup") || !strings.Contains(steps[3].Text, "Bridge pickup") {
		t.Fatalf("terminal steps out of order: %q / %q", steps[2].Text, steps[3].Text)
	}
	// the pickups meet only at the selector; each one links its south finish to its north start
	for _, e := range g.Edges {
		if e.Kind == KindCross {
			t.Fatalf("standard mode should have no cross join: %s", e)
		}
	}
	link := g.Outgoing(bridge.lead(bridge.slotOf(domain.South), domain.Finish))
	if len(link) != 1 || link[0].To.ID() != "bridge-lower-start" {
		t.Fatalf("bridge south finish should join its north start, got %v", link)
	}
}

func TestBuildConnections_ConfigurationBStandardMismatch(t *testing.T) {
	neck, bridge := pickups(t, "Configuration B")
	_, err := BuildConnections(neck, bridge, Standard)
	if !errors.Is(err, domain.ErrPolarityMismatch) {
		t.Fatalf("expected polarity mismatch, got %v", err)
	}
}

func TestBuildConnections_AllModesValid(t *testing.T) {
	neck, bridge := pickups(t, "Bare Knuckle")
	for _, m := range Modes {
		t.Run(string(m), func(t *testing.T) {
			g, err := BuildConnections(neck, bridge, m)
			if err != nil {
				t.Fatal(err)
			}
			if err := g.Validate(); err != nil {
				t.Fatal(err)
			}
			if g.Mode != m {
				t.Fatalf("mode = %s", g.Mode)
			}
			steps := Render(g)
			covered := 0
			for _, s := range steps {
				covered += len(s.Edges)
			}
			if covered != len(g.Edges) {
				t.Fatalf("render covers %d of %d edges", covered, len(g.Edges))
			}
		})
	}
}

func TestBuildConnections_NonHumbuckingPickup(t *testing.T) {
	neck, bridge := pickups(t, "Bare Knuckle")
	neck.Lower.Polarity = neck.Upper.Polarity
	for _, m := range []Mode{Standard, Series, Parallel, OutOfPhase} {
		if _, err := BuildConnections(neck, bridge, m); !errors.Is(err, domain.ErrPolarityMismatch) {
			t.Errorf("%s: expected polarity mismatch, got %v", m, err)
		}
	}
	if _, err := BuildConnections(neck, bridge, CoilSplit); err != nil {
		t.Errorf("split should not need humbucking pickups: %v", err)
	}
}

func TestBuildConnections_UnknownMode(t *testing.T) {
	neck, bridge := pickups(t, "Bare Knuckle")
	if _, err := BuildConnections(neck, bridge, Mode("tapped")); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestBuildConnections_Series(t *testing.T) {
	neck, bridge := pickups(t, "Bare Knuckle")
	g, err := BuildConnections(neck, bridge, Series)
	if err != nil {
		t.Fatal(err)
	}
	var cross []Edge
	for _, e := range g.Edges {
		if e.Kind == KindCross {
			cross = append(cross, e)
		}
	}
	if len(cross) != 1 {
		t.Fatalf("expected one cross join, got %d", len(cross))
	}
	if cross[0].From.Position != domain.Neck || cross[0].To.Lead.Position != domain.Bridge {
		t.Fatalf("cross join should run neck to bridge: %s", cross[0])
	}
	steps := Render(g)
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}
}

func TestBuildConnections_OutOfPhaseSwapsBridge(t *testing.T) {
	neck, bridge := pickups(t, "Bare Knuckle")
	std, _ := BuildConnections(neck, bridge, Standard)
	oop, err := BuildConnections(neck, bridge, OutOfPhase)
	if err != nil {
		t.Fatal(err)
	}
	hot := bridge.hot()
	if got := std.Outgoing(hot)[0].To.Terminal; got != SwitchBridge {
		t.Fatalf("standard bridge hot -> %s", got)
	}
	if got := oop.Outgoing(hot)[0].To.Terminal; got != Ground {
		t.Fatalf("out-of-phase bridge hot -> %s", got)
	}
	if got := oop.Outgoing(bridge.cold())[0].To.Terminal; got != SwitchBridge {
		t.Fatalf("out-of-phase bridge cold -> %s", got)
	}
}

func TestBuildConnections_SplitKeepsChosenCoil(t *testing.T) {
	neck, bridge := pickups(t, "Bare Knuckle")
	g, err := BuildConnections(neck, bridge, CoilSplit, WithSplitCoil(domain.South))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []Pickup{neck, bridge} {
		live := 0
		for _, s := range domain.Slots {
			l := domain.Lead{Position: p.Position, Slot: s, Role: domain.Start}
			out := g.Outgoing(l)
			if len(out) != 1 {
				t.Fatalf("%s has %d edges", l, len(out))
			}
			if out[0].To.Terminal != Ground {
				live++
				if p.coil(s).Polarity != domain.South {
					t.Fatalf("%s: kept the wrong coil", p.Position)
				}
				if out[0].To.Terminal != switchFor(p.Position) {
					t.Fatalf("%s live lead on %s", p.Position, out[0].To.Terminal)
				}
			}
		}
		if live != 1 {
			t.Fatalf("%s: %d live leads", p.Position, live)
		}
	}
}

func TestValidate_RejectsDoubleEdges(t *testing.T) {
	l := domain.Lead{Position: domain.Neck, Slot: domain.Upper, Role: domain.Finish}
	g := ConnectionGraph{Edges: []Edge{
		{From: l, To: Endpoint{Terminal: Ground}},
		{From: l, To: Endpoint{Terminal: Output}},
	}}
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for two outgoing edges")
	}
}

func TestValidate_RejectsSelfLoop(t *testing.T) {
	l := domain.Lead{Position: domain.Neck, Slot: domain.Upper, Role: domain.Finish}
	g := ConnectionGraph{Edges: []Edge{{From: l, To: Endpoint{Lead: &l}}}}
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for self loop")
	}
}

func TestValidate_RequiresEveryFinish(t *testing.T) {
	if err := (ConnectionGraph{}).Validate(); err == nil {
		t.Fatal("expected error for empty graph")
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"standard":     Standard,
		"Coil Split":   CoilSplit,
		"SERIES":       Series,
		"parallel":     Parallel,
		"out_of_phase": OutOfPhase,
		"oop":          OutOfPhase,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("tapped"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestEstimateResistance(t *testing.T) {
	r, ok := EstimateResistance(4, 4)
	if !ok {
		t.Fatal("expected ok")
	}
	if r.Series != 8 || math.Abs(r.Parallel-2) > 1e-9 {
		t.Fatalf("unexpected %+v", r)
	}
	if r.For(CoilSplit, domain.Upper) != 4 || r.For(Standard, domain.Upper) != 8 {
		t.Fatalf("unexpected per-mode reading")
	}
	if _, ok := EstimateResistance(0, 4); ok {
		t.Fatal("expected missing reading to fail")
	}
}

func TestResistance_SplitUsesKeptCoil(t *testing.T) {
	_, bridge := pickups(t, "Configuration A")
	r, ok := EstimateResistance(7.5, 4.0)
	if !ok {
		t.Fatal("expected ok")
	}
	// bridge is South-North: the north coil sits in the lower slot
	if got := r.For(CoilSplit, bridge.KeptSlot(domain.North)); got != 4.0 {
		t.Fatalf("split keeping north = %.1f, want 4.0", got)
	}
	if got := r.For(CoilSplit, bridge.KeptSlot(domain.South)); got != 7.5 {
		t.Fatalf("split keeping south = %.1f, want 7.5", got)
	}
	if got := r.For(Series, bridge.KeptSlot(domain.North)); got != 11.5 {
		t.Fatalf("series = %.1f, want 11.5", got)
	}
}

func TestBuildConnections_OutOfPhaseConfigurations(t *testing.T) {
	for _, preset := range []string{"Configuration A", "Configuration B"} {
		t.Run(preset, func(t *testing.T) {
			neck, bridge := pickups(t, preset)
			g, err := BuildConnections(neck, bridge, OutOfPhase)
			if err != nil {
				t.Fatal(err)
			}
			if err := g.Validate(); err != nil {
				t.Fatal(err)
			}
			if len(g.Edges) != 6 {
				t.Fatalf("expected 6 edges, got %d", len(g.Edges))
			}
			want := map[string]string{
				neck.hot().ID():    string(SwitchNeck),
				neck.cold().ID():   string(Ground),
				bridge.cold().ID(): string(SwitchBridge),
				bridge.hot().ID():  string(Ground),
			}
			for from, to := range want {
				var found bool
				for _, e := range g.Edges {
					if e.From.ID() == from {
						found = true
						if e.To.ID() != to {
							t.Errorf("%s -> %s, want %s", from, e.To.ID(), to)
						}
					}
				}
				if !found {
					t.Errorf("no edge from %s", from)
				}
			}
			for _, p := range []Pickup{neck, bridge} {
				link := g.Outgoing(p.lead(p.slotOf(domain.South), domain.Finish))
				if len(link) != 1 || link[0].Kind != KindInternal || *link[0].To.Lead != p.lead(p.slotOf(domain.North), domain.Start) {
					t.Errorf("%s: south finish should join north start, got %v", p.Position, link)
				}
			}
		})
	}
}

func TestRender_BareLeadFirst(t *testing.T) {
	neck, bridge := pickups(t, "Configuration A")
	g, err := BuildConnections(neck, bridge, Standard, WithBareLead("Bare"))
	if err != nil {
		t.Fatal(err)
	}
	steps := Render(g)
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}
	if len(steps[0].Edges) != 0 || !strings.Contains(steps[0].Text, "bare shield wire (Bare)") || !strings.Contains(steps[0].Text, "ground") {
		t.Fatalf("first step should ground the bare lead: %+v", steps[0])
	}
	if steps[1].Number != 2 || steps[1].Edges[0].Kind != KindInternal {
		t.Fatalf("coil joins should follow: %+v", steps[1])
	}
}

func TestRender_MismatchedEdgeKind(t *testing.T) {
	neck := domain.Lead{Position: domain.Neck, Slot: domain.Upper, Role: domain.Start}
	g := ConnectionGraph{Mode: Standard, Edges: []Edge{
		{From: neck, FromColor: "Red", To: Endpoint{Terminal: SwitchNeck}, Kind: KindInternal},
		{From: neck, FromColor: "Red", To: Endpoint{Terminal: Ground}, Kind: KindCross},
	}}
	if err := g.Validate(); err == nil {
		t.Fatal("expected validation error for internal edge to a terminal")
	}
	steps := Render(g)
	if len(steps) != 1 || len(steps[0].Edges) != 2 {
		t.Fatalf("mismatched edges should render with the terminal step: %+v", steps)
	}
	if !strings.Contains(steps[0].Text, "ground") {
		t.Fatalf("unexpected text %q", steps[0].Text)
	}
}
