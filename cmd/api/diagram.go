package main

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/session"
	"github.com/humwire/humwire/engine/wiring"
)

var swatches = map[string]string{
	"red":    "#d62728",
	"white":  "#ffffff",
	"green":  "#2ca02c",
	"black":  "#111111",
	"yellow": "#ffbf00",
	"blue":   "#1f77b4",
	"bare":   "#888888",
}

// swatch returns the display hex for a wire color name.
func swatch(color string) string {
	if hex, ok := swatches[strings.ToLower(strings.TrimSpace(color))]; ok {
		return hex
	}
	return "#999999"
}

const (
	diagramWidth  = 640
	diagramHeight = 420
	leadX         = 150
	terminalX     = 520
	rowGap        = 22
)

type point struct{ x, y int }

// leadPoints places the eight leads down the left side, neck on top.
func leadPoints() map[domain.Lead]point {
	pts := make(map[domain.Lead]point, 8)
	y := 60
	for _, p := range domain.Positions {
		for _, s := range domain.Slots {
			for _, r := range []domain.Role{domain.Start, domain.Finish} {
				pts[domain.Lead{Position: p, Slot: s, Role: r}] = point{leadX, y}
				y += rowGap
			}
		}
		y += 2 * rowGap
	}
	return pts
}

var terminalPoints = map[wiring.Terminal]point{
	wiring.SwitchNeck:   {terminalX, 90},
	wiring.SwitchBridge: {terminalX, 250},
	wiring.Output:       {terminalX, 330},
	wiring.Ground:       {terminalX, 380},
}

// renderDiagram draws the connection graph of a as an SVG document.
func renderDiagram(w io.Writer, a session.Analysis) error {
	bw := bufio.NewWriter(w)
	leads := leadPoints()

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="12">`,
		diagramWidth, diagramHeight, diagramWidth, diagramHeight)
	fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="#fafafa"/>`)
	fmt.Fprintf(bw, `<text x="20" y="28" font-size="16" font-weight="bold">%s</text>`, html.EscapeString(a.Mode.Title()))

	for _, p := range domain.Positions {
		first := leads[domain.Lead{Position: p, Slot: domain.Upper, Role: domain.Start}]
		fmt.Fprintf(bw, `<rect x="20" y="%d" width="110" height="%d" rx="8" fill="#222" opacity="0.85"/>`, first.y-14, 4*rowGap+6)
		fmt.Fprintf(bw, `<text x="30" y="%d" fill="#fff">%s</text>`, first.y+rowGap, html.EscapeString(strings.ToUpper(string(p))))
		fmt.Fprintf(bw, `<text x="30" y="%d" fill="#ccc" font-size="10">%s</text>`, first.y+2*rowGap, html.EscapeString(a.Assignment.Pickup(p).Orientation().String()))
	}

	for _, e := range a.Graph.Edges {
		from, ok := leads[e.From]
		if !ok {
			continue
		}
		to, ok := endpointPoint(leads, e.To)
		if !ok {
			continue
		}
		midX := (from.x + to.x) / 2
		if e.To.Lead != nil {
			midX = from.x + 60
			if e.From.Position == domain.Bridge {
				midX += 10
			}
		}
		fmt.Fprintf(bw, `<path d="M%d %d C%d %d %d %d %d %d" stroke="%s" stroke-width="3" fill="none" opacity="0.9"><title>%s</title></path>`,
			from.x, from.y, midX, from.y, midX, to.y, to.x, to.y, swatch(e.FromColor), html.EscapeString(e.String()))
	}

	for _, e := range a.Assignment.Entries() {
		l, pt, color := e.Lead, leads[e.Lead], e.Color
		fmt.Fprintf(bw, `<circle cx="%d" cy="%d" r="6" fill="%s" stroke="#333"/>`, pt.x, pt.y, swatch(color))
		fmt.Fprintf(bw, `<text x="%d" y="%d">%s %s</text>`, pt.x+10, pt.y+4, html.EscapeString(string(l.Slot)), html.EscapeString(string(l.Role)))
	}

	for _, t := range []wiring.Terminal{wiring.SwitchNeck, wiring.SwitchBridge, wiring.Output, wiring.Ground} {
		pt := terminalPoints[t]
		fmt.Fprintf(bw, `<rect x="%d" y="%d" width="12" height="12" fill="#555"/>`, pt.x-6, pt.y-6)
		fmt.Fprintf(bw, `<text x="%d" y="%d">%s</text>`, pt.x+12, pt.y+4, html.EscapeString(string(t)))
	}

	fmt.Fprint(bw, `</svg>`)
	return bw.Flush()
}

func endpointPoint(leads map[domain.Lead]point, e wiring.Endpoint) (point, bool) {
	if e.Lead != nil {
		pt, ok := leads[*e.Lead]
		return pt, ok
	}
	pt, ok := terminalPoints[e.Terminal]
	return pt, ok
}
