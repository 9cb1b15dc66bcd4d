// Package phase orders a coil's two leads into START and FINISH from
// multimeter probe readings. Polarity is never derived here: it is a fixed
// manufacturer attribute of the coil.
package phase

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/humwire/humwire/engine/domain"
)

// Change is the direction of the resistance reading when the pole piece is
// tapped.
type Change int

const (
	Steady Change = iota
	Increase
	Decrease
)

func (c Change) String() string {
	switch c {
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	default:
		return "steady"
	}
}

var changeWords = map[string]Change{
	"increase": Increase, "increasing": Increase, "rising": Increase, "rise": Increase, "up": Increase,
	"normal": Increase, "nousee": Increase, "normaali": Increase,
	"decrease": Decrease, "decreasing": Decrease, "falling": Decrease, "fall": Decrease, "down": Decrease,
	"reverse": Decrease, "reversed": Decrease, "laskee": Decrease, "käänteinen": Decrease, "käänte": Decrease,
	"steady": Steady, "constant": Steady, "none": Steady, "unchanged": Steady,
}

var steadyPhrases = map[string]bool{"no change": true, "ei muutosta": true}

// ParseChange maps a form label to a Change. It understands the English and
// Finnish labels of the original form. Every word of the label must be a
// known label word naming the same direction; negated or mixed labels are
// rejected as ambiguous.
func ParseChange(s string) (Change, error) {
	c := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if steadyPhrases[c] {
		return Steady, nil
	}
	words := strings.FieldsFunc(c, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(words) == 0 {
		return Steady, domain.NewValidationError("observation", s, domain.ErrAmbiguousPhase)
	}
	got, seen := Steady, false
	for _, w := range words {
		ch, ok := changeWords[w]
		if !ok || (seen && ch != got) {
			return Steady, domain.NewValidationError("observation", s, domain.ErrAmbiguousPhase)
		}
		got, seen = ch, true
	}
	return got, nil
}

// ProbeResult is one measurement: which lead was on the positive (red) probe,
// which was grounded on the black probe, and the signed resistance change in
// kΩ observed while tapping the pole piece.
type ProbeResult struct {
	Positive string  `json:"positive"`
	Ground   string  `json:"ground"`
	Delta    float64 `json:"delta"`
}

// Change classifies the reading by the sign of Delta.
func (p ProbeResult) Change() Change {
	switch {
	case p.Delta > 0:
		return Increase
	case p.Delta < 0:
		return Decrease
	}
	return Steady
}

// FromObservation builds a ProbeResult from a form label, using a unit delta
// in the observed direction.
func FromObservation(positive, ground, observation string) (ProbeResult, error) {
	c, err := ParseChange(observation)
	if err != nil {
		return ProbeResult{}, err
	}
	pr := ProbeResult{Positive: positive, Ground: ground}
	switch c {
	case Increase:
		pr.Delta = 1
	case Decrease:
		pr.Delta = -1
	}
	return pr, nil
}

// Coil is the resolver input: the unordered pair of lead colors belonging to
// one coil, its fixed polarity, and an optional manual inversion applied
// after resolution.
type Coil struct {
	Position domain.Position `json:"position"`
	Slot     domain.Slot     `json:"slot"`
	Polarity domain.Polarity `json:"polarity"`
	Leads    [2]string       `json:"leads"`
	Swap     bool            `json:"swap,omitempty"`
}

func (c Coil) name() string {
	return fmt.Sprintf("%s-%s", c.Position, c.Slot)
}

// Assignment is the resolved lead order of one coil.
type Assignment struct {
	Start  string `json:"start"`
	Finish string `json:"finish"`
}

// Colors returns the coil colors with the coil's polarity.
func (a Assignment) Colors(p domain.Polarity) domain.CoilColors {
	return domain.CoilColors{Polarity: p, Start: a.Start, Finish: a.Finish}
}

// Resolve orders coil's leads from the probe results that touched both of
// its leads. Results for other coils are ignored. It fails with
// domain.ErrAmbiguousPhase when no result applies, when a reading is steady,
// or when readings disagree.
func Resolve(coil Coil, probes []ProbeResult, conv domain.SignConvention) (Assignment, error) {
	if err := domain.ValidateColorPair(coil.name(), coil.Leads[:]); err != nil {
		return Assignment{}, err
	}
	if conv == "" {
		conv = domain.RisingMarksPositive
	}

	var (
		start   string
		applied int
	)
	for _, p := range probes {
		if !coil.pairMatches(p) {
			continue
		}
		applied++
		s, ok := startLead(p, conv)
		if !ok {
			return Assignment{}, domain.NewValidationError(coil.name(), fmt.Sprintf("%s/%s steady", p.Positive, p.Ground), domain.ErrAmbiguousPhase)
		}
		if start != "" && !strings.EqualFold(start, s) {
			return Assignment{}, domain.NewValidationError(coil.name(), "contradictory probe results", domain.ErrAmbiguousPhase)
		}
		start = s
	}
	if applied == 0 {
		return Assignment{}, domain.NewValidationError(coil.name(), "no probe results", domain.ErrAmbiguousPhase)
	}

	a := Assignment{Start: coil.canonical(start), Finish: coil.other(start)}
	if coil.Swap {
		a.Start, a.Finish = a.Finish, a.Start
	}
	return a, nil
}

// startLead applies the sign convention to one reading.
func startLead(p ProbeResult, conv domain.SignConvention) (string, bool) {
	var positiveIsStart bool
	switch p.Change() {
	case Increase:
		positiveIsStart = true
	case Decrease:
		positiveIsStart = false
	default:
		return "", false
	}
	if conv == domain.RisingMarksGround {
		positiveIsStart = !positiveIsStart
	}
	if positiveIsStart {
		return p.Positive, true
	}
	return p.Ground, true
}

func (c Coil) has(color string) bool {
	return strings.EqualFold(strings.TrimSpace(color), strings.TrimSpace(c.Leads[0])) ||
		strings.EqualFold(strings.TrimSpace(color), strings.TrimSpace(c.Leads[1]))
}

func (c Coil) pairMatches(p ProbeResult) bool {
	return c.has(p.Positive) && c.has(p.Ground) && !strings.EqualFold(p.Positive, p.Ground)
}

// canonical returns the coil's own spelling of color.
func (c Coil) canonical(color string) string {
	if strings.EqualFold(strings.TrimSpace(color), strings.TrimSpace(c.Leads[0])) {
		return c.Leads[0]
	}
	return c.Leads[1]
}

func (c Coil) other(color string) string {
	if strings.EqualFold(strings.TrimSpace(color), strings.TrimSpace(c.Leads[0])) {
		return c.Leads[1]
	}
	return c.Leads[0]
}
