package assistant

import (
	"regexp"
	"strconv"
	"strings"
)

var stepGuides = map[int]string{
	1: "Step 1, welcome: pick a preset if your pickups match a known color code, or plan to enter the colors by hand. " +
		"Choose the wiring mode too: standard keeps both humbuckers full and quiet, series is the double espresso, " +
		"parallel is brighter, and coil split gives single-coil snap at the cost of hum.",
	2: "Step 2, wire colors: measure resistance between wire pairs to find which two wires belong to each coil. " +
		"Write them down per pickup. Nothing gets soldered yet, however tempting the iron looks.",
	3: "Step 3, polarity: note which coil is north and which is south for each pickup, and whether the slug or the " +
		"screw coil faces the neck. A compass over the pole pieces settles any doubt.",
	4: "Step 4, measurements: record each coil's DC resistance. Around 4 kΩ per coil is typical for a vintage-style " +
		"humbucker; a reading near zero or infinite means a short or a broken winding.",
	5: "Step 5, phase checks: with the meter on one coil, tap a pole piece and watch the reading. A rising reading marks " +
		"the wire on the red probe as START, a falling one marks the grounded wire. If a coil looks backwards, use swap.",
	6: "Step 6, soldering plan: follow the steps in order, check every joint, then test continuity from the output to " +
		"ground before closing the cavity. Measure twice, solder once.",
}

// StepGuide returns the built-in guidance for wizard step n.
func StepGuide(n int) string {
	if g, ok := stepGuides[n]; ok {
		return g
	}
	return "Let me know if you need any help with this step!"
}

var stepQuestion = regexp.MustCompile(`(?i)\bi'?m on step\s*(\d+)`)

// stepFromQuestion detects "I'm on step N" questions.
func stepFromQuestion(q string) (int, bool) {
	m := stepQuestion.FindStringSubmatch(q)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

type easterEgg struct {
	trigger string
	reply   string
}

// Checked in order; the first trigger contained in the question wins.
var easterEggs = []easterEgg{
	{"is this the real life", "Is this just fantasy? Caught in a landslide of pickup wires... Now, what's the actual question?"},
	{"hello there", "General Kenobi! Now, about those pickups. May the magnetic flux be with you."},
	{"i am your father", "Search your pickups, you know it to be true. The magnetic field is strong with this one."},
	{"winter is coming", "And so is proper grounding. What do you need help with?"},
	{"do you know the muffin man", "He lives on Drury Lane and knows nothing about pickups. I know a thing or two about coil winding though."},
	{"what is your name", "Call me the Pickup Whisperer. Or Bob. What are we wiring today?"},
	{"matrix", "Red wire or blue wire? In humbuckers it's usually red, white, green and black. Welcome to the real world."},
	{"sudo", "Nice try, but there is no root access to your pickups. 'sudo make guitar sound good' would be handy though."},
	{"beer", "I'd offer you a beer for this soldering job, but let's focus on not burning your fingers first."},
	{"42", "The answer to life, the universe and everything. A 42 Ω pickup would be a terrible pickup, though."},
}

func matchEasterEgg(q string) (string, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	for _, e := range easterEggs {
		if strings.Contains(q, e.trigger) {
			return e.reply, true
		}
	}
	return "", false
}

// Suggestions are example questions offered in the UI.
var Suggestions = []string{
	"How do I solder pickup wires correctly?",
	"What causes hum in pickups?",
	"How do I wire a humbucker in series?",
	"How do I test pickup continuity?",
	"Help! I think I wired something backwards!",
	"42",
	"Hello there",
}
