package skills

import (
	"reflect"
	"testing"

	"github.com/kalambet/human-compiler/internal/profile"
)

func named(name string) profile.Profile {
	return profile.Profile{Meta: profile.Meta{Name: name}}
}

func slugs(skills []Skill) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = append(out, s.Slug)
	}
	return out
}

func TestDerive_Empty(t *testing.T) {
	if got := Derive(named("Jane Doe")); len(got) != 0 {
		t.Errorf("Derive = %+v, want none", got)
	}
}

func TestDerive_ReviewOnly(t *testing.T) {
	p := named("Jane Doe")
	p.WorkPatterns = &profile.WorkPatterns{TaskManagement: "Reviews PRs every morning"}

	got := Derive(p)
	if len(got) != 1 {
		t.Fatalf("got %d skills, want 1: %+v", len(got), got)
	}
	want := Skill{
		Slug:        "review-like-jane-doe",
		Name:        "Review Like Jane Doe",
		Description: "Review work the way Jane Doe would — applying their standards and feedback style",
		Context:     "Jane Doe reviews work with this approach: Reviews PRs every morning",
	}
	if got[0] != want {
		t.Errorf("skill =\n%+v\nwant\n%+v", got[0], want)
	}
}

func TestDerive_ExpertDomainsKeepOrder(t *testing.T) {
	p := named("Sarah Chen")
	p.Expertise = &profile.Expertise{Domains: []profile.Domain{
		{Name: "Product analytics", Depth: profile.DepthExpert, Details: "Funnels and cohorts"},
		{Name: "Hiring", Depth: profile.DepthIntermediate},
		{Name: "Go", Depth: profile.DepthExpert},
	}}

	got := Derive(p)
	if want := []string{"product-analytics-advice-sarah-chen", "go-advice-sarah-chen"}; !reflect.DeepEqual(slugs(got), want) {
		t.Fatalf("slugs = %v, want %v", slugs(got), want)
	}
	if got[0].Name != "Product analytics Advice (Sarah Chen)" {
		t.Errorf("Name = %q", got[0].Name)
	}
	if got[0].Context != "Sarah Chen is expert in Product analytics: Funnels and cohorts" {
		t.Errorf("Context = %q", got[0].Context)
	}
	if got[1].Context != "Sarah Chen is expert in Go" {
		t.Errorf("Context without details = %q", got[1].Context)
	}
}

func TestDerive_RuleMatrix(t *testing.T) {
	tests := []struct {
		name string
		wp   *profile.WorkPatterns
		want []string
	}{
		{"nil work patterns", nil, nil},
		{"case-insensitive review", &profile.WorkPatterns{TaskManagement: "Weekly REVIEW of the board"}, []string{"review-like-x"}},
		{"write keyword", &profile.WorkPatterns{CollaborationStyle: "Prefers to write things down"}, []string{"write-like-x"}},
		{"document keyword", &profile.WorkPatterns{CollaborationStyle: "Documents decisions in RFCs"}, []string{"write-like-x"}},
		{"substring match", &profile.WorkPatterns{CollaborationStyle: "Rewrites drafts"}, []string{"write-like-x"}},
		{"no signal", &profile.WorkPatterns{TaskManagement: "Kanban", CollaborationStyle: "Pairs in person"}, nil},
		{"both fire", &profile.WorkPatterns{TaskManagement: "code review", CollaborationStyle: "writes memos"}, []string{"review-like-x", "write-like-x"}},
		{"review in collaboration only", &profile.WorkPatterns{CollaborationStyle: "peer review"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := named("X")
			p.WorkPatterns = tt.wp
			got := slugs(Derive(p))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("slugs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDerive_RuleOrder(t *testing.T) {
	p := named("Jane Doe")
	p.Expertise = &profile.Expertise{Domains: []profile.Domain{{Name: "Pricing", Depth: profile.DepthAdvanced}}}
	p.WorkPatterns = &profile.WorkPatterns{TaskManagement: "review queue", CollaborationStyle: "documents everything"}

	want := []string{"review-like-jane-doe", "write-like-jane-doe", "pricing-advice-jane-doe"}
	if got := slugs(Derive(p)); !reflect.DeepEqual(got, want) {
		t.Errorf("slugs = %v, want %v", got, want)
	}
}

func TestDerive_DuplicateDomainsNotDeduplicated(t *testing.T) {
	p := named("Jane Doe")
	p.Expertise = &profile.Expertise{Domains: []profile.Domain{
		{Name: "Pricing", Depth: profile.DepthExpert, Details: "B2B"},
		{Name: "Pricing", Depth: profile.DepthAdvanced, Details: "B2C"},
	}}

	got := Derive(p)
	if len(got) != 2 {
		t.Fatalf("got %d skills, want 2", len(got))
	}
	if got[0].Slug != got[1].Slug {
		t.Errorf("expected colliding slugs, got %q and %q", got[0].Slug, got[1].Slug)
	}
	if got[0].Context == got[1].Context {
		t.Error("contexts should differ by depth and details")
	}
}

func TestDerive_Pure(t *testing.T) {
	p := named("Jane Doe")
	p.WorkPatterns = &profile.WorkPatterns{TaskManagement: "review", CollaborationStyle: "write"}
	p.Expertise = &profile.Expertise{Domains: []profile.Domain{{Name: "Go", Depth: profile.DepthExpert}}}
	snapshot := *p.WorkPatterns

	first := Derive(p)
	second := Derive(p)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Derive not deterministic:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(*p.WorkPatterns, snapshot) {
		t.Error("Derive mutated its input")
	}
}
