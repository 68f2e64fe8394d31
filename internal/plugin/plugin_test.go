package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/skills"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func score(v float64) *float64 { return &v }

func sampleProfile() profile.Profile {
	return profile.Profile{
		Meta: profile.Meta{
			Name:            "Sarah Chen",
			CurrentPhase:    9,
			PhasesCompleted: []int{1, 2, 3, 4, 5, 6, 7, 8},
			Status:          profile.StatusComplete,
		},
		Identity: &profile.Identity{Role: "Senior Product Manager", Organization: "Acme Corp", Team: "Platform"},
		Communication: &profile.Communication{
			WritingStyle: "Concise and structured",
			Patterns:     []string{"Leads with bullet points"},
			Vocabulary:   []string{"blast radius", "Net-net"},
		},
		DecisionMaking: &profile.DecisionMaking{
			Framework:        "Data-informed",
			TradeoffPatterns: []string{"Makes reversible decisions quickly"},
		},
		Expertise: &profile.Expertise{Domains: []profile.Domain{
			{Name: "Product analytics", Depth: profile.DepthExpert, Details: "Funnels and cohorts"},
		}},
		WorkPatterns: &profile.WorkPatterns{
			TaskManagement:     "Reviews specs every morning",
			CollaborationStyle: "Writes decision docs",
		},
		EdgeCases: &profile.EdgeCases{
			ConflictResolution: "Escalates after one round",
			AmbiguityHandling:  "Picks a default and moves",
		},
		Calibration: &profile.Calibration{Corrections: []string{"Be more risk-tolerant"}, ConfidenceScore: score(0.88)},
	}
}

func generate(t *testing.T, p profile.Profile) string {
	t.Helper()
	gen, err := NewGenerator(fixedClock{t: time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	out := filepath.Join(t.TempDir(), profile.Slugify(p.Meta.Name)+"-agent")
	got, err := gen.Generate(context.Background(), p, skills.Derive(p), out)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != out {
		t.Fatalf("Generate returned %q, want %q", got, out)
	}
	return out
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func assertContains(t *testing.T, label, content string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(content, w) {
			t.Errorf("%s missing %q", label, w)
		}
	}
}

// frontmatter returns the decoded YAML block between the leading --- lines.
func frontmatter(t *testing.T, content string) map[string]string {
	t.Helper()
	if !strings.HasPrefix(content, "---\n") {
		t.Fatalf("no frontmatter:\n%s", content)
	}
	end := strings.Index(content[4:], "---\n")
	if end < 0 {
		t.Fatalf("unterminated frontmatter:\n%s", content)
	}
	var fm map[string]string
	if err := yaml.Unmarshal([]byte(content[4:4+end]), &fm); err != nil {
		t.Fatalf("frontmatter is not valid YAML: %v", err)
	}
	return fm
}

func TestGenerate_Layout(t *testing.T) {
	out := generate(t, sampleProfile())

	for _, rel := range []string{
		".claude-plugin/plugin.json",
		"agents/sarah-chen-autonomous.md",
		"agents/sarah-chen-advisory.md",
		"skills/ask-sarah-chen/SKILL.md",
		"skills/review-like-sarah-chen/SKILL.md",
		"skills/write-like-sarah-chen/SKILL.md",
		"skills/product-analytics-advice-sarah-chen/SKILL.md",
		"CLAUDE.md",
	} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}
}

func TestGenerate_PluginJSON(t *testing.T) {
	out := generate(t, sampleProfile())

	var manifest struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Version     string `json:"version"`
	}
	if err := json.Unmarshal([]byte(read(t, filepath.Join(out, ".claude-plugin", "plugin.json"))), &manifest); err != nil {
		t.Fatalf("plugin.json is not valid JSON: %v", err)
	}
	if manifest.Name != "sarah-chen-agent" || manifest.Version != "1.0.0" {
		t.Errorf("manifest = %+v", manifest)
	}
	if !strings.Contains(manifest.Description, "Sarah Chen") {
		t.Errorf("description = %q", manifest.Description)
	}
}

func TestGenerate_AutonomousAgent(t *testing.T) {
	out := generate(t, sampleProfile())
	content := read(t, filepath.Join(out, "agents", "sarah-chen-autonomous.md"))

	fm := frontmatter(t, content)
	if fm["name"] != "sarah-chen-autonomous" || fm["permissionMode"] != "acceptEdits" || fm["model"] != "opus" || fm["description"] == "" {
		t.Errorf("frontmatter = %v", fm)
	}
	assertContains(t, "autonomous agent", content,
		"Senior Product Manager", "Acme Corp", "Platform",
		"Concise and structured", "bullet points",
		"Data-informed", "reversible decisions quickly",
		"Product analytics (expert)",
		"conflict", "ambiguity",
		"Take action", "autonomous mode",
		"blast radius", "Net-net",
		"Be more risk-tolerant",
	)
}

func TestGenerate_AdvisoryAgent(t *testing.T) {
	out := generate(t, sampleProfile())
	content := read(t, filepath.Join(out, "agents", "sarah-chen-advisory.md"))

	fm := frontmatter(t, content)
	if fm["name"] != "sarah-chen-advisory" || fm["permissionMode"] != "plan" {
		t.Errorf("frontmatter = %v", fm)
	}
	assertContains(t, "advisory agent", content, "NEVER take actions directly", "Advisory only", "Senior Product Manager")
}

func TestGenerate_Skills(t *testing.T) {
	out := generate(t, sampleProfile())

	ask := read(t, filepath.Join(out, "skills", "ask-sarah-chen", "SKILL.md"))
	if fm := frontmatter(t, ask); fm["name"] != "ask-sarah-chen" || fm["description"] == "" {
		t.Errorf("ask frontmatter = %v", fm)
	}
	assertContains(t, "ask skill", ask, "$ARGUMENTS", "Sarah Chen", "Senior Product Manager")

	review := read(t, filepath.Join(out, "skills", "review-like-sarah-chen", "SKILL.md"))
	if fm := frontmatter(t, review); fm["name"] != "review-like-sarah-chen" {
		t.Errorf("review frontmatter = %v", fm)
	}
	assertContains(t, "review skill", review, "Review Like Sarah Chen", "Reviews specs every morning", "$ARGUMENTS")

	domain := read(t, filepath.Join(out, "skills", "product-analytics-advice-sarah-chen", "SKILL.md"))
	assertContains(t, "domain skill", domain, "Product analytics", "Sarah Chen", "Funnels and cohorts")
}

func TestGenerate_ClaudeMD(t *testing.T) {
	out := generate(t, sampleProfile())
	content := read(t, filepath.Join(out, "CLAUDE.md"))

	assertContains(t, "CLAUDE.md", content,
		"Sarah Chen", "sarah-chen-autonomous", "sarah-chen-advisory", "ask-sarah-chen",
		"/review-like-sarah-chen", "/product-analytics-advice-sarah-chen",
		"0.88", "2026-02-16", "8/8",
	)
}

func TestGenerate_MinimalProfile(t *testing.T) {
	p := profile.Profile{Meta: profile.Meta{Name: "Test User", CurrentPhase: 1, PhasesCompleted: []int{}, Status: profile.StatusInProgress}}
	out := generate(t, p)

	claude := read(t, filepath.Join(out, "CLAUDE.md"))
	assertContains(t, "CLAUDE.md", claude, "Confidence: N/A", "0/8", "no interview data yet")

	auto := read(t, filepath.Join(out, "agents", "test-user-autonomous.md"))
	if strings.Contains(auto, "## Identity") {
		t.Error("empty sections should not render headings")
	}
	frontmatter(t, auto)

	entries, err := os.ReadDir(filepath.Join(out, "skills"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "ask-test-user" {
		t.Errorf("skills dir = %v, want only ask-test-user", entries)
	}
}

func TestGenerate_QuotesFrontmatter(t *testing.T) {
	p := sampleProfile()
	p.Meta.Name = `Pat "PJ" O'Neil: CTO`
	out := generate(t, p)

	fm := frontmatter(t, read(t, filepath.Join(out, "skills", "ask-pat-pj-o-neil-cto", "SKILL.md")))
	if !strings.Contains(fm["description"], `Pat "PJ" O'Neil: CTO`) {
		t.Errorf("description = %q", fm["description"])
	}
}

func TestGenerate_Canceled(t *testing.T) {
	gen, err := NewGenerator(nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = gen.Generate(ctx, sampleProfile(), nil, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDefaultOutputDir(t *testing.T) {
	got := DefaultOutputDir("/data/sarah-chen", "sarah-chen")
	if got != filepath.Join("/data/sarah-chen", "output-plugin", "sarah-chen-agent") {
		t.Errorf("DefaultOutputDir = %q", got)
	}
}
