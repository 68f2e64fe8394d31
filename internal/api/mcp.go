package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/human-compiler/internal/artifacts"
	"github.com/kalambet/human-compiler/internal/interview"
	"github.com/kalambet/human-compiler/internal/plugin"
	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/skills"
	"github.com/kalambet/human-compiler/internal/storage"
)

const profilesResourceURI = "humanc://profiles"

// NewMCPServer creates an MCP server exposing the interview operations as
// tools, for an assistant conducting the interview.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"humanc",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("humanc records a multi-session interview into a behavioral profile. "+
			"Call profile_status first to resume; merge each phase with update_phase, then mark_phase_complete."),
		server.WithRecovery(),
	)

	nameArg := mcp.WithString("name", mcp.Description("Person's display name or profile slug"), mcp.Required())
	phaseArg := mcp.WithNumber("phase", mcp.Description("Interview phase number (1-8)"), mcp.Required())

	s.AddTool(
		mcp.NewTool("init_profile",
			mcp.WithDescription("Create a new interview profile. Overwrites an existing one unless strict init is configured."),
			nameArg,
		),
		mcpInitProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("load_profile",
			mcp.WithDescription("Return the full profile document as YAML."),
			nameArg,
		),
		mcpLoadProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("profile_status",
			mcp.WithDescription("Report whether a profile exists, its current phase, and which phases remain."),
			nameArg,
		),
		mcpProfileStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("list_profiles",
			mcp.WithDescription("List every stored profile with its status and progress."),
		),
		mcpListProfiles(deps),
	)

	s.AddTool(
		mcp.NewTool("update_phase",
			mcp.WithDescription("Merge section data for a phase. Each section present replaces the stored one; meta is ignored."),
			nameArg,
			phaseArg,
			mcp.WithString("data", mcp.Description("JSON or YAML object keyed by section name, e.g. {\"identity\": {\"role\": \"Engineer\"}}"), mcp.Required()),
		),
		mcpUpdatePhase(deps),
	)

	s.AddTool(
		mcp.NewTool("mark_phase_complete",
			mcp.WithDescription("Mark a phase complete and advance current_phase past it."),
			nameArg,
			phaseArg,
		),
		mcpMarkComplete(deps),
	)

	s.AddTool(
		mcp.NewTool("save_transcript",
			mcp.WithDescription("Store the raw transcript for a phase, replacing any earlier one."),
			nameArg,
			phaseArg,
			mcp.WithString("content", mcp.Description("Transcript text"), mcp.Required()),
		),
		mcpSavePhaseText(deps.Recorder.RecordTranscript),
	)

	s.AddTool(
		mcp.NewTool("save_summary",
			mcp.WithDescription("Store the summary for a phase, replacing any earlier one."),
			nameArg,
			phaseArg,
			mcp.WithString("content", mcp.Description("Summary text"), mcp.Required()),
		),
		mcpSavePhaseText(deps.Recorder.RecordSummary),
	)

	s.AddTool(
		mcp.NewTool("save_artifact",
			mcp.WithDescription("Store an analyzed source document under the profile's artifacts."),
			nameArg,
			mcp.WithString("title", mcp.Description("Document title"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Document text"), mcp.Required()),
			mcp.WithNumber("index", mcp.Description("Optional artifact index; defaults to a timestamp")),
		),
		mcpSaveArtifact(deps),
	)

	s.AddTool(
		mcp.NewTool("finalize_profile",
			mcp.WithDescription("Mark the profile complete."),
			nameArg,
		),
		mcpFinalize(deps),
	)

	s.AddTool(
		mcp.NewTool("derive_skills",
			mcp.WithDescription("Compute the skills a generated agent would offer from the current profile."),
			nameArg,
		),
		mcpDeriveSkills(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_plugin",
			mcp.WithDescription("Render the agent plugin for a profile and return the output directory."),
			nameArg,
			mcp.WithString("out_dir", mcp.Description("Output directory (default: <profile>/output-plugin/<slug>-agent)")),
		),
		mcpGeneratePlugin(deps),
	)

	s.AddResource(
		mcp.NewResource(
			profilesResourceURI,
			"Interview Profiles",
			mcp.WithResourceDescription("Every stored profile with status and completed phases"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles(deps),
	)

	return s
}

func mcpInitProfile(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		p, err := deps.Machine.Init(name)
		if err != nil {
			return mcpFailure("init", err), nil
		}
		return mcpText(fmt.Sprintf("Created profile for %s at %s", p.Meta.Name, deps.Machine.Store().Path(name))), nil
	}
}

func mcpLoadProfile(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		p, err := deps.Machine.Load(name)
		if err != nil {
			return mcpFailure("load", err), nil
		}
		b, err := yaml.Marshal(p)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpProfileStatus(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		st, err := deps.Machine.Status(name)
		if err != nil {
			return mcpFailure("status", err), nil
		}
		if !st.Exists {
			return mcpText(fmt.Sprintf("No profile for %s. Call init_profile to start.", name)), nil
		}

		meta := st.Profile.Meta
		var b strings.Builder
		fmt.Fprintf(&b, "%s [%s]\n", meta.Name, meta.Status)
		fmt.Fprintf(&b, "Current phase: %d\n", meta.CurrentPhase)
		fmt.Fprintf(&b, "Completed: %v\n", meta.PhasesCompleted)
		if pending := interview.PendingPhases(meta); len(pending) > 0 {
			titles := make([]string, 0, len(pending))
			for _, ph := range pending {
				titles = append(titles, fmt.Sprintf("%d %s", ph.Number, ph.Title))
			}
			fmt.Fprintf(&b, "Remaining: %s\n", strings.Join(titles, ", "))
		}
		fmt.Fprintf(&b, "Summary: %s", profile.Summarize(*st.Profile))
		return mcpText(b.String()), nil
	}
}

func mcpListProfiles(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := deps.Machine.Overview()
		if err != nil {
			return mcpFailure("list", err), nil
		}
		if len(list) == 0 {
			return mcpText("No profiles found."), nil
		}
		lines := make([]string, 0, len(list))
		for _, l := range list {
			lines = append(lines, fmt.Sprintf("%s [%s] (%d/%d phases) — %s",
				l.Meta.Name, l.Meta.Status, len(l.Meta.PhasesCompleted), profile.PhaseCount, l.Slug))
		}
		return mcpText(strings.Join(lines, "\n")), nil
	}
}

func mcpUpdatePhase(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		phase, err := req.RequireInt("phase")
		if err != nil {
			return mcpError("phase is required"), nil
		}
		raw, err := req.RequireString("data")
		if err != nil {
			return mcpError("data is required"), nil
		}

		data, err := profile.ParsePhaseData([]byte(raw))
		if err != nil {
			return mcpFailure("update-phase", err), nil
		}
		sections := data.Sections()
		if len(sections) == 0 {
			return mcpError("data contains no profile sections"), nil
		}
		if _, err := deps.Machine.MergePhaseData(name, phase, data); err != nil {
			return mcpFailure("update-phase", err), nil
		}
		return mcpText(fmt.Sprintf("Phase %d updated: %s", phase, strings.Join(sections, ", "))), nil
	}
}

func mcpMarkComplete(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		phase, err := req.RequireInt("phase")
		if err != nil {
			return mcpError("phase is required"), nil
		}
		p, err := deps.Machine.CompletePhase(name, phase)
		if err != nil {
			return mcpFailure("mark-complete", err), nil
		}
		return mcpText(fmt.Sprintf("Phase %d complete. Next phase: %d. Completed: %v",
			phase, p.Meta.CurrentPhase, p.Meta.PhasesCompleted)), nil
	}
}

func mcpSavePhaseText(record func(name string, phase int, text string) (string, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		phase, err := req.RequireInt("phase")
		if err != nil {
			return mcpError("phase is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		path, err := record(name, phase, content)
		if err != nil {
			return mcpFailure("save", err), nil
		}
		return mcpText("Saved " + path), nil
	}
}

func mcpSaveArtifact(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		a := artifacts.Artifact{Title: title, Content: content}
		if _, ok := req.GetArguments()["index"]; ok {
			idx := int64(req.GetInt("index", 0))
			a.Index = &idx
		}
		path, err := deps.Recorder.RecordArtifact(name, a)
		if err != nil {
			return mcpFailure("save-artifact", err), nil
		}
		return mcpText("Saved " + path), nil
	}
}

func mcpFinalize(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		p, err := deps.Machine.Finalize(name)
		if err != nil {
			return mcpFailure("finalize", err), nil
		}
		return mcpText(fmt.Sprintf("Profile for %s finalized with %d/%d phases complete.",
			p.Meta.Name, len(p.Meta.PhasesCompleted), profile.PhaseCount)), nil
	}
}

func mcpDeriveSkills(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		p, err := deps.Machine.Load(name)
		if err != nil {
			return mcpFailure("skills", err), nil
		}
		derived := skills.Derive(p)
		if derived == nil {
			derived = []skills.Skill{}
		}
		b, err := json.MarshalIndent(derived, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode skills: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGeneratePlugin(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Generator == nil {
			return mcpError("plugin generation is not available"), nil
		}
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		p, err := deps.Machine.Load(name)
		if err != nil {
			return mcpFailure("generate", err), nil
		}
		outDir := req.GetString("out_dir", "")
		if outDir == "" {
			outDir = plugin.DefaultOutputDir(deps.Machine.Store().Dir(name), profile.Slugify(name))
		}
		derived := skills.Derive(p)
		dir, err := deps.Generator.Generate(ctx, p, derived, outDir)
		if err != nil {
			return mcpFailure("generate", err), nil
		}
		if deps.Journal != nil {
			if _, err := deps.Journal.RecordEvent(storage.Event{Profile: profile.Slugify(name), Kind: storage.EventGenerate, Detail: dir}); err != nil {
				slog.Warn("journal write failed", "profile", profile.Slugify(name), "kind", storage.EventGenerate, "error", err)
			}
		}
		return mcpText(fmt.Sprintf("Generated plugin with %d task skills at %s", len(derived), dir)), nil
	}
}

func mcpResourceProfiles(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := deps.Machine.Overview()
		if err != nil {
			return nil, fmt.Errorf("failed to list profiles: %w", err)
		}

		b, err := json.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profiles: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// mcpFailure reports err as a tool error, naming what kind of failure it was.
func mcpFailure(op string, err error) *mcp.CallToolResult {
	kind := "error"
	switch {
	case errors.Is(err, profile.ErrNotFound):
		kind = "not found"
	case errors.Is(err, profile.ErrInvalidArgument):
		kind = "invalid argument"
	case errors.Is(err, profile.ErrAlreadyExists):
		kind = "already exists"
	}
	return mcpError(fmt.Sprintf("%s (%s): %v", op, kind, err))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
