package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

// Summarize returns a compact one-paragraph view of the profile, suitable for
// status output and for handing to an interviewer as resume context.
func Summarize(p Profile) string {
	var parts []string

	if id := p.Identity; id != nil && id.Role != "" {
		role := id.Role
		if id.Organization != "" {
			role += " at " + id.Organization
		}
		parts = append(parts, fmt.Sprintf("%s: %s.", p.Meta.Name, role))
	}

	if c := p.Communication; c != nil && c.WritingStyle != "" {
		parts = append(parts, fmt.Sprintf("Writes: %s.", c.WritingStyle))
	}

	if d := p.DecisionMaking; d != nil && d.Framework != "" {
		parts = append(parts, fmt.Sprintf("Decides: %s.", d.Framework))
	}

	// Domains keep their interview order.
	if e := p.Expertise; e != nil && len(e.Domains) > 0 {
		exps := make([]string, 0, len(e.Domains))
		for _, d := range e.Domains {
			exps = append(exps, fmt.Sprintf("%s (%s)", d.Name, d.Depth))
		}
		parts = append(parts, fmt.Sprintf("Expert in: %s.", strings.Join(exps, ", ")))
	}

	if w := p.WorkPatterns; w != nil && len(w.Tools) > 0 {
		parts = append(parts, fmt.Sprintf("Tools: %s.", strings.Join(w.Tools, ", ")))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%s: no interview data yet.", p.Meta.Name)
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}
