package wiring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/humwire/humwire/engine/domain"
)

// Step is one soldering instruction.
type Step struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Edges  []Edge `json:"edges"`
}

// Render orders the graph into soldering steps: the bare shield lead to
// ground when there is one, coil-to-coil joins in coil order (neck-upper,
// neck-lower, bridge-upper, bridge-lower), then joins between pickups, then
// one output/ground step per pickup. An edge whose kind does not match its
// destination is rendered with the pickup's terminal step.
func Render(g ConnectionGraph) []Step {
	var internal, cross []Edge
	terminals := make(map[domain.Position][]Edge, 2)
	for _, e := range g.Edges {
		switch {
		case e.Kind == KindInternal && e.To.Lead != nil:
			internal = append(internal, e)
		case e.Kind == KindCross && e.To.Lead != nil:
			cross = append(cross, e)
		default:
			terminals[e.From.Position] = append(terminals[e.From.Position], e)
		}
	}
	sortEdges(internal)
	sortEdges(cross)

	var steps []Step
	add := func(text string, edges []Edge) {
		steps = append(steps, Step{Number: len(steps) + 1, Text: text, Edges: edges})
	}
	if g.Bare != "" {
		add(fmt.Sprintf("Solder the bare shield wire (%s) of both pickups to %s first.", g.Bare, terminalTitles[Ground]), nil)
	}
	for _, e := range internal {
		add(fmt.Sprintf("Solder %s to %s and insulate the joint.", leadLabel(e.From, e.FromColor), destination(e)), []Edge{e})
	}
	for _, e := range cross {
		add(fmt.Sprintf("Solder %s to %s.", leadLabel(e.From, e.FromColor), destination(e)), []Edge{e})
	}
	for _, p := range domain.Positions {
		edges := terminals[p]
		if len(edges) == 0 {
			continue
		}
		sortEdges(edges)
		parts := make([]string, len(edges))
		for i, e := range edges {
			parts[i] = fmt.Sprintf("%s %s (%s) to %s", e.From.Slot, e.From.Role, e.FromColor, destination(e))
		}
		add(fmt.Sprintf("%s pickup: solder %s.", title(string(p)), strings.Join(parts, "; ")), edges)
	}
	return steps
}

func destination(e Edge) string {
	if e.To.Lead != nil {
		return leadLabel(*e.To.Lead, e.ToColor)
	}
	if t, ok := terminalTitles[e.To.Terminal]; ok {
		return t
	}
	return string(e.To.Terminal)
}

func leadLabel(l domain.Lead, color string) string {
	return fmt.Sprintf("%s %s-coil %s (%s)", l.Position, l.Slot, l.Role, color)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// leadRank orders leads neck before bridge, upper before lower, start
// before finish.
func leadRank(l domain.Lead) int {
	r := 0
	if l.Position == domain.Bridge {
		r += 4
	}
	if l.Slot == domain.Lower {
		r += 2
	}
	if l.Role == domain.Finish {
		r++
	}
	return r
}

func sortEdges(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		return leadRank(edges[i].From) < leadRank(edges[j].From)
	})
}
