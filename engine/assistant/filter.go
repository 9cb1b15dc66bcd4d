package assistant

import "strings"

// Rule bans one phrase from generated answers.
type Rule struct {
	Phrase string
	Reason string
}

// DefaultRules block advice that is dangerous around guitar electronics.
var DefaultRules = []Rule{
	{"mains voltage", "mains wiring"},
	{"plug it into the wall", "mains wiring"},
	{"wall socket", "mains wiring"},
	{"bypass the fuse", "mains wiring"},
	{"while it is plugged in", "live work"},
	{"solder while plugged", "live work"},
	{"touch the tip", "burn risk"},
	{"ignore the fumes", "fume safety"},
	{"lead-free solder is toxic to touch", "misinformation"},
}

// SafetyMessage replaces an answer that matched a rule.
const SafetyMessage = "I generated an answer that included unsafe advice, so I dropped it. " +
	"Guitar pickups and pots only ever see tiny signal voltages: never connect them to mains power, " +
	"unplug the amp before working on the guitar, and keep the iron tip away from skin and cables."

// Filter checks generated text against a rule list.
type Filter struct {
	rules []Rule
}

// NewFilter builds a filter. Phrases compare case-insensitively.
func NewFilter(rules []Rule) Filter {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if p := strings.ToLower(strings.TrimSpace(r.Phrase)); p != "" {
			out = append(out, Rule{Phrase: p, Reason: r.Reason})
		}
	}
	return Filter{rules: out}
}

// Check returns the first rule that matches text.
func (f Filter) Check(text string) (Rule, bool) {
	t := strings.ToLower(text)
	for _, r := range f.rules {
		if strings.Contains(t, r.Phrase) {
			return r, true
		}
	}
	return Rule{}, false
}
