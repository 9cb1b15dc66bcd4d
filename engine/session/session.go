// Package session holds the client-carried wizard state and runs the
// analysis pipeline that turns it into a soldering plan.
package session

import (
	"fmt"
	"strings"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/phase"
)

// MaxStep is the last wizard step.
const MaxStep = 6

// HistoryLimit caps the assistant chat history kept in a State.
const HistoryLimit = 10

var stepTitles = [MaxStep + 1]string{
	1: "Welcome",
	2: "Define wire colors",
	3: "Polarity (top of pickup)",
	4: "Measurements",
	5: "Phase checks",
	6: "Soldering plan",
}

// StepTitle returns the heading of wizard step n, or "" when out of range.
func StepTitle(n int) string {
	if n < 1 || n > MaxStep {
		return ""
	}
	return stepTitles[n]
}

// CoilInput is what the user entered for one coil when not using a preset.
type CoilInput struct {
	Leads      [2]string           `json:"leads"`
	Probes     []phase.ProbeResult `json:"probes,omitempty"`
	Swap       bool                `json:"swap,omitempty"`
	Resistance float64             `json:"resistance_kohm,omitempty"`
}

// PickupInput is the manual description of one pickup.
type PickupInput struct {
	Orientation string    `json:"orientation"`
	Upper       CoilInput `json:"upper"`
	Lower       CoilInput `json:"lower"`
}

func (p PickupInput) coil(s domain.Slot) CoilInput {
	if s == domain.Upper {
		return p.Upper
	}
	return p.Lower
}

// Message is one chat turn with the assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is the whole wizard state. The client keeps it and sends it back on
// every request, so the server holds nothing between calls.
type State struct {
	ID         string       `json:"id,omitempty"`
	Step       int          `json:"step"`
	Preset     string       `json:"preset,omitempty"`
	Neck       *PickupInput `json:"neck,omitempty"`
	Bridge     *PickupInput `json:"bridge,omitempty"`
	Convention string       `json:"convention,omitempty"`
	Mode       string       `json:"mode,omitempty"`
	SplitCoil  string       `json:"split_coil,omitempty"`
	History    []Message    `json:"history,omitempty"`
}

// New returns a state on step 1.
func New() State { return State{Step: 1} }

// Pickup returns the manual input for position p, or nil.
func (s State) Pickup(p domain.Position) *PickupInput {
	if p == domain.Neck {
		return s.Neck
	}
	return s.Bridge
}

// Normalize clamps the step into 1..MaxStep and trims the history.
func (s State) Normalize() State {
	s.Step = clampStep(s.Step)
	if len(s.History) > HistoryLimit {
		s.History = append([]Message(nil), s.History[len(s.History)-HistoryLimit:]...)
	}
	return s
}

// Advance moves to the next step, stopping at MaxStep.
func (s State) Advance() State {
	s.Step = clampStep(s.Step + 1)
	return s
}

// Back moves to the previous step, stopping at 1.
func (s State) Back() State {
	s.Step = clampStep(s.Step - 1)
	return s
}

// AddMessage appends a chat turn and keeps only the newest HistoryLimit.
func (s State) AddMessage(role, content string) State {
	h := make([]Message, 0, len(s.History)+1)
	h = append(h, s.History...)
	h = append(h, Message{Role: role, Content: content})
	s.History = h
	return s.Normalize()
}

func clampStep(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxStep:
		return MaxStep
	}
	return n
}

// ColorsOf lists the colors entered for a pickup, manual input first, then
// the preset. It is used to give the assistant context.
func (s State) ColorsOf(r *domain.Registry, p domain.Position) []string {
	if in := s.Pickup(p); in != nil {
		var out []string
		for _, c := range []CoilInput{in.Upper, in.Lower} {
			for _, l := range c.Leads {
				if strings.TrimSpace(l) != "" {
					out = append(out, l)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if s.Preset != "" && r != nil {
		if a, err := r.Lookup(s.Preset); err == nil {
			return a.Pickup(p).Colors()
		}
	}
	return nil
}

// Summary is a short plain-text description of the state.
func (s State) Summary(r *domain.Registry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step: %d/%d (%s)\n", clampStep(s.Step), MaxStep, StepTitle(clampStep(s.Step)))
	if s.Preset != "" {
		fmt.Fprintf(&b, "Preset: %s\n", s.Preset)
	}
	for _, p := range domain.Positions {
		if c := s.ColorsOf(r, p); len(c) > 0 {
			fmt.Fprintf(&b, "%s coil colors: %s\n", upperFirst(string(p)), strings.Join(c, ", "))
		}
	}
	if s.Mode != "" {
		fmt.Fprintf(&b, "Wiring mode: %s\n", s.Mode)
	}
	return strings.TrimRight(b.String(), "\n")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
