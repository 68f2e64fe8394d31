// Package skills turns a profile into the capability descriptors a
// generated agent advertises. Derivation is a pure function of the profile;
// nothing here is cached or persisted.
package skills

import (
	"fmt"
	"strings"

	"github.com/kalambet/human-compiler/internal/profile"
)

// Skill is a derived capability descriptor.
type Skill struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Context     string `json:"context"`
}

// Derive applies the rules in a fixed order: task management mentioning
// review, collaboration style mentioning writing or documenting, then one
// skill per advanced or expert domain in list order. Rules fire
// independently and results are not de-duplicated, so two domains with the
// same name yield two skills with the same slug.
func Derive(p profile.Profile) []Skill {
	name := p.Meta.Name
	slug := profile.Slugify(name)
	var out []Skill

	if w := p.WorkPatterns; w != nil {
		if containsFold(w.TaskManagement, "review") {
			out = append(out, Skill{
				Slug:        "review-like-" + slug,
				Name:        "Review Like " + name,
				Description: fmt.Sprintf("Review work the way %s would — applying their standards and feedback style", name),
				Context:     fmt.Sprintf("%s reviews work with this approach: %s", name, w.TaskManagement),
			})
		}
		if containsFold(w.CollaborationStyle, "write") || containsFold(w.CollaborationStyle, "document") {
			out = append(out, Skill{
				Slug:        "write-like-" + slug,
				Name:        "Write Like " + name,
				Description: fmt.Sprintf("Draft content in %s's writing style", name),
				Context:     fmt.Sprintf("%s's writing and collaboration approach: %s", name, w.CollaborationStyle),
			})
		}
	}

	if e := p.Expertise; e != nil {
		for _, d := range e.Domains {
			if d.Depth != profile.DepthExpert && d.Depth != profile.DepthAdvanced {
				continue
			}
			ctx := fmt.Sprintf("%s is %s in %s", name, d.Depth, d.Name)
			if d.Details != "" {
				ctx += ": " + d.Details
			}
			out = append(out, Skill{
				Slug:        profile.Slugify(d.Name) + "-advice-" + slug,
				Name:        fmt.Sprintf("%s Advice (%s)", d.Name, name),
				Description: fmt.Sprintf("Get %s's expert perspective on %s", name, d.Name),
				Context:     ctx,
			})
		}
	}

	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
