package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	contextHeader = "=== MEMORY ==="
	contextFooter = "====================="
)

// Assemble formats selected candidates into the structured block injected
// into the downstream generation prompt: session summaries, then facts,
// then verbatim exchanges, each entry tagged with a relative age. The exact
// textual shape is a contract with the prompt that consumes it.
func Assemble(candidates []Candidate, now time.Time) string {
	if len(candidates) == 0 {
		return ""
	}

	byRecency := make([]Candidate, len(candidates))
	copy(byRecency, candidates)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return byRecency[i].CreatedAt.After(byRecency[j].CreatedAt)
	})

	var summaries, facts, exchanges []string
	for _, c := range byRecency {
		age := ageDescription(now, c.CreatedAt)
		switch c.Kind {
		case KindSummary:
			summaries = append(summaries, fmt.Sprintf("  [%s] %s", age, c.DisplayText()))
		case KindFact:
			facts = append(facts, fmt.Sprintf("  [%s] %s", age, c.DisplayText()))
		default:
			speaker := c.Speaker
			if speaker == "" {
				speaker = "unknown"
			}
			exchanges = append(exchanges, fmt.Sprintf("  [%s] %s: %s", age, speaker, c.DisplayText()))
		}
	}

	var sections []string
	if len(summaries) > 0 {
		sections = append(sections, "PAST SESSION HIGHLIGHTS:\n"+strings.Join(summaries, "\n"))
	}
	if len(facts) > 0 {
		sections = append(sections, "RELEVANT FACTS:\n"+strings.Join(facts, "\n"))
	}
	if len(exchanges) > 0 {
		sections = append(sections, "RELEVANT EXCHANGES:\n"+strings.Join(exchanges, "\n"))
	}

	if len(sections) == 0 {
		return ""
	}

	return contextHeader + "\n" + strings.Join(sections, "\n\n") + "\n" + contextFooter
}

// ageDescription renders a human-readable memory age.
func ageDescription(now, createdAt time.Time) string {
	age := now.Sub(createdAt)
	switch {
	case age < 2*time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	case age < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(age.Hours()/(24*7)))
	}
}
