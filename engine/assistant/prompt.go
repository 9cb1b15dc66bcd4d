package assistant

import (
	"fmt"
	"strings"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/session"
)

const systemPrompt = `You are a helpful and slightly humorous guitar pickup wiring assistant.
Give concise, practical advice about humbucker wiring, soldering, grounding and phase.
Keep it light but always prioritise accuracy and safety. Never suggest connecting
anything to mains power.`

// BuildPrompt renders the user prompt: the question, the current setup and
// the last few chat turns.
func BuildPrompt(question string, s session.State, r *domain.Registry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User question: %s\n\nCurrent setup:\n", strings.TrimSpace(question))
	for _, line := range strings.Split(s.Summary(r), "\n") {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	if len(s.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range s.Normalize().History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	return b.String()
}
