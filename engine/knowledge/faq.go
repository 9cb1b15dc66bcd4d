// Package knowledge answers common wiring questions from a built-in FAQ,
// matched by keyword or, when a vector store is configured, by embedding
// similarity.
package knowledge

import "strings"

// Entry is one FAQ answer.
type Entry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Answer   string   `json:"answer"`
}

// Text is what gets embedded for the entry.
func (e Entry) Text() string {
	return e.Title + "\n" + strings.Join(e.Keywords, ", ") + "\n" + e.Answer
}

// Fallback is the reply when no entry matches.
const Fallback = "I don't have a direct answer for that. Say whether it is about a pot lug, " +
	"the output jack, stranded wire, coil splitting or shielding and I can be more specific. " +
	"StewMac and Seymour Duncan both publish practical wiring and soldering guides."

// Entries is the built-in FAQ in match priority order.
var Entries = []Entry{
	{
		ID:       "soldering",
		Title:    "Soldering tools and technique",
		Keywords: []string{"solder", "iron", "tinning", "flux"},
		Answer: "**Soldering**\n" +
			"- Temperature-controlled iron at 350-380°C, rosin-core 60/40 or 63/37 solder, 0.7-1.0 mm.\n" +
			"- Strip 3-6 mm, twist and pre-tin the wire.\n" +
			"- Heat the joint, feed solder into the joint rather than the tip, remove solder then iron.\n" +
			"- Let it cool without moving. A good joint is smooth, shiny and concave.\n" +
			"- Ventilate and wear eye protection.",
	},
	{
		ID:       "phase",
		Title:    "Phase checks with a multimeter",
		Keywords: []string{"phase", "polarity", "probe", "start", "finish", "multimeter"},
		Answer: "**Phase checks**\n" +
			"- Measure resistance between wire pairs to find which two wires belong to each coil.\n" +
			"- With the meter on one coil, tap a pole piece with a screwdriver and watch the reading.\n" +
			"- A rising reading marks the wire on the red probe as START; a falling reading marks the grounded wire.\n" +
			"- If a coil reads backwards, use the swap option rather than re-measuring.",
	},
	{
		ID:       "series",
		Title:    "Series and parallel",
		Keywords: []string{"series", "parallel"},
		Answer: "**Series vs parallel**\n" +
			"- Series adds the coil resistances: full output, thicker tone.\n" +
			"- Parallel gives roughly a quarter of the series resistance for two equal coils: brighter and quieter, still humbucking.",
	},
	{
		ID:       "split",
		Title:    "Coil splitting",
		Keywords: []string{"split", "single coil", "coil tap"},
		Answer: "**Coil split**\n" +
			"- One coil is grounded out and the other carries the signal.\n" +
			"- Hum cancellation is lost. A small resistor to ground instead of a hard short keeps some of the body.",
	},
	{
		ID:       "hum",
		Title:    "Hum cancelling",
		Keywords: []string{"hum", "noise", "buzz", "humbucking"},
		Answer: "**Hum cancelling**\n" +
			"- A humbucker cancels hum with two coils of opposite magnet polarity wound in opposite directions (RWRP).\n" +
			"- Reversing only the electrical phase of one coil breaks the cancellation.\n" +
			"- Coil splitting drops one coil, so single-coil hum comes back.",
	},
	{
		ID:       "ground",
		Title:    "Grounding and shielding",
		Keywords: []string{"ground", "shield", "bare", "earth"},
		Answer: "**Grounding**\n" +
			"- Pickup ground (bare shield and the cold lead) goes to the back of the volume pot.\n" +
			"- Solder the bare shield wire; never rely on a pressure contact.\n" +
			"- Shield the cavity with copper tape or conductive paint and tie it to ground.",
	},
	{
		ID:       "magnets",
		Title:    "Magnet polarity",
		Keywords: []string{"north", "south", "magnet", "compass", "slug", "screw"},
		Answer: "**Magnet polarity**\n" +
			"- Polarity is fixed by the manufacturer; a compass over the pole pieces confirms it.\n" +
			"- The needle's north end is pulled toward a south pole.\n" +
			"- Note which coil (slug or screw side) faces the neck for each pickup.",
	},
}

// ByID returns the entry with id.
func ByID(id string) (Entry, bool) {
	for _, e := range Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// MatchKeywords returns the first entry with a keyword contained in the
// question, compared case-insensitively.
func MatchKeywords(question string) (Entry, bool) {
	q := strings.ToLower(question)
	if strings.TrimSpace(q) == "" {
		return Entry{}, false
	}
	for _, e := range Entries {
		for _, k := range e.Keywords {
			if strings.Contains(q, k) {
				return e, true
			}
		}
	}
	return Entry{}, false
}
