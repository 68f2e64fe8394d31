// Package plugin renders a profile and its derived skills into an agent
// plugin directory.
package plugin

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/skills"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// OutputDirName is the directory under a profile that holds generated plugins.
const OutputDirName = "output-plugin"

// Context is the data every template renders against. Optional profile
// sections may be nil.
type Context struct {
	profile.Profile
	Name         string
	Slug         string
	TaskSkills   []skills.Skill
	CompiledDate string
	PhaseCount   int
	// Task is set only while rendering a task skill.
	Task *skills.Skill
}

// Generator renders plugin directories from embedded templates.
type Generator struct {
	clock profile.Clock
	tmpl  *template.Template
}

// NewGenerator parses the embedded templates. A nil clock uses wall time.
func NewGenerator(clock profile.Clock) (*Generator, error) {
	tmpl, err := template.New("plugin").Funcs(funcs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	if clock == nil {
		clock = wallClock{}
	}
	return &Generator{clock: clock, tmpl: tmpl}, nil
}

// DefaultOutputDir returns <profileDir>/output-plugin/<slug>-agent.
func DefaultOutputDir(profileDir, slug string) string {
	return filepath.Join(profileDir, OutputDirName, slug+"-agent")
}

type file struct {
	path     string
	template string
	data     Context
}

// Generate writes the plugin for p into outDir and returns outDir. Skills
// are rendered in the order given. Existing files are overwritten.
func (g *Generator) Generate(ctx context.Context, p profile.Profile, derived []skills.Skill, outDir string) (string, error) {
	name := p.Meta.Name
	slug := profile.Slugify(name)
	if slug == "" {
		return "", fmt.Errorf("%w: profile has no name", profile.ErrInvalidArgument)
	}

	base := Context{
		Profile:      p,
		Name:         name,
		Slug:         slug,
		TaskSkills:   derived,
		CompiledDate: g.clock.Now().Format("2006-01-02"),
		PhaseCount:   profile.PhaseCount,
	}

	files := []file{
		{filepath.Join(outDir, ".claude-plugin", "plugin.json"), "plugin.json.tmpl", base},
		{filepath.Join(outDir, "agents", slug+"-autonomous.md"), "agent-autonomous.md.tmpl", base},
		{filepath.Join(outDir, "agents", slug+"-advisory.md"), "agent-advisory.md.tmpl", base},
		{filepath.Join(outDir, "skills", "ask-"+slug, "SKILL.md"), "skill-ask.md.tmpl", base},
	}
	for i := range derived {
		data := base
		data.Task = &derived[i]
		files = append(files, file{filepath.Join(outDir, "skills", derived[i].Slug, "SKILL.md"), "skill-task.md.tmpl", data})
	}
	files = append(files, file{filepath.Join(outDir, "CLAUDE.md"), "claude-md.tmpl", base})

	// Colliding skill slugs write the same path; render those in order so
	// the last skill wins deterministically.
	seen := make(map[string]bool, len(files))
	var parallel, serial []file
	for _, f := range files {
		if seen[f.path] {
			serial = append(serial, f)
			continue
		}
		seen[f.path] = true
		parallel = append(parallel, f)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, f := range parallel {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return g.render(f)
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}
	for _, f := range serial {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := g.render(f); err != nil {
			return "", err
		}
	}

	slog.Info("plugin generated", "profile", slug, "dir", outDir, "skills", len(derived))
	return outDir, nil
}

func (g *Generator) render(f file) error {
	var b strings.Builder
	if err := g.tmpl.ExecuteTemplate(&b, f.template, f.data); err != nil {
		return fmt.Errorf("rendering %s: %w", f.template, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &profile.StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	if err := os.WriteFile(f.path, []byte(b.String()), 0o644); err != nil {
		return &profile.StorageError{Op: "write", Path: f.path, Err: err}
	}
	return nil
}

var funcs = template.FuncMap{
	"quote":   quote,
	"join":    strings.Join,
	"score":   formatScore,
	"summary": profile.Summarize,
}

// quote renders s as a JSON string, which is also a valid YAML scalar.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func formatScore(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
