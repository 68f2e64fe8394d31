package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/human-compiler/internal/artifacts"
	"github.com/kalambet/human-compiler/internal/config"
	"github.com/kalambet/human-compiler/internal/interview"
	"github.com/kalambet/human-compiler/internal/plugin"
	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/skills"
	"github.com/kalambet/human-compiler/internal/storage"
)

// --- init ---

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new interview profile",
	Long: `Create a new interview profile with default bookkeeping and the
phases/ and artifacts/ directories.

An existing profile of the same slug is overwritten unless
interview.strict_init is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		name := args[0]
		return a.withLock(name, func() error {
			p, err := a.machine.Init(name)
			if err != nil {
				return err
			}
			printSuccess("Initialized profile for %s", p.Meta.Name)
			printStatus("Path", "%s", a.store.Path(name))
			return nil
		})
	},
}

// --- load ---

var loadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Print the profile document as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.machine.Load(args[0])
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		out, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("load: encoding profile: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show interview progress for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.machine.Status(args[0])
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}

		w := cmd.OutOrStdout()
		if !st.Exists {
			fmt.Fprintf(w, "No profile found for %s.\n", args[0])
			return nil
		}
		meta := st.Profile.Meta
		fmt.Fprintf(w, "%s [%s]\n", colorize(colorBold, meta.Name), meta.Status)
		fmt.Fprintf(w, "Current phase: %d\n", meta.CurrentPhase)
		fmt.Fprintf(w, "Last updated:  %s\n", meta.LastUpdated.Format("2006-01-02 15:04:05 MST"))
		for _, ph := range profile.Phases {
			fmt.Fprintf(w, "  %s\n", phaseMark(meta.HasCompleted(ph.Number), ph.Number, ph.Title))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "print the status result as JSON")
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.machine.Overview()
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(w, "No profiles found.")
			return nil
		}
		for _, l := range list {
			fmt.Fprintf(w, "%s [%s] (%d/%d phases) — %s\n",
				l.Meta.Name, l.Meta.Status, len(l.Meta.PhasesCompleted), profile.PhaseCount,
				colorize(colorCyan, l.Slug))
		}
		return nil
	},
}

// --- update-phase ---

var updatePhaseCmd = &cobra.Command{
	Use:   "update-phase <name> <phase> <data|file|@file|->",
	Short: "Merge interview sections into a profile",
	Long: `Merge a JSON or YAML document of interview sections into a profile. Each
section present in the document replaces the stored section wholesale;
absent sections are left alone. The phase becomes the current phase.

Examples:
  humanc update-phase "Ada Lovelace" 1 '{"identity":{"role":"Engineer"}}'
  humanc update-phase "Ada Lovelace" 2 phase2.yaml
  cat phase3.json | humanc update-phase "Ada Lovelace" 3 -`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		phase, err := parsePhase(args[1])
		if err != nil {
			return fmt.Errorf("update-phase: %w", err)
		}
		raw, _, err := readInput(cmd, args[2])
		if err != nil {
			return fmt.Errorf("update-phase: %w", err)
		}
		data, err := profile.ParsePhaseData(raw)
		if err != nil {
			return fmt.Errorf("update-phase: %w", err)
		}

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.withLock(name, func() error {
			if _, err := a.machine.MergePhaseData(name, phase, data); err != nil {
				return fmt.Errorf("update-phase: %w", err)
			}
			sections := data.Sections()
			if len(sections) == 0 {
				printWarning("No sections in phase %d data; only the current phase changed", phase)
				return nil
			}
			printSuccess("Merged %s into phase %d", strings.Join(sections, ", "), phase)
			return nil
		})
	},
}

// --- mark-complete ---

var markCompleteCmd = &cobra.Command{
	Use:   "mark-complete <name> <phase>",
	Short: "Record a phase as complete and advance to the next",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		phase, err := parsePhase(args[1])
		if err != nil {
			return fmt.Errorf("mark-complete: %w", err)
		}

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.withLock(name, func() error {
			p, err := a.machine.CompletePhase(name, phase)
			if err != nil {
				return fmt.Errorf("mark-complete: %w", err)
			}
			printSuccess("Phase %d complete", phase)
			printStatus("Completed", "%s", joinInts(p.Meta.PhasesCompleted))
			if next, ok := profile.LookupPhase(p.Meta.CurrentPhase); ok {
				printStatus("Next", "%d. %s", next.Number, next.Title)
			} else {
				printStatus("Next", "finalize")
			}
			return nil
		})
	},
}

// --- save-transcript / save-summary ---

var saveTranscriptCmd = &cobra.Command{
	Use:   "save-transcript <name> <phase> <text|file|@file|->",
	Short: "Store the raw transcript of a phase",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return savePhaseText(cmd, args, "save-transcript", func(a *app) func(string, int, string) (string, error) {
			return a.recorder.RecordTranscript
		})
	},
}

var saveSummaryCmd = &cobra.Command{
	Use:   "save-summary <name> <phase> <text|file|@file|->",
	Short: "Store the summary of a phase",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return savePhaseText(cmd, args, "save-summary", func(a *app) func(string, int, string) (string, error) {
			return a.recorder.RecordSummary
		})
	},
}

func savePhaseText(cmd *cobra.Command, args []string, op string, pick func(*app) func(string, int, string) (string, error)) error {
	name := args[0]
	phase, err := parsePhase(args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	text, _, err := readInput(cmd, args[2])
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.withLock(name, func() error {
		path, err := pick(a)(name, phase, string(text))
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		printSuccess("Saved %s", path)
		return nil
	})
}

// --- save-artifact ---

var saveArtifactCmd = &cobra.Command{
	Use:   "save-artifact <name> [content|file|@file|-]",
	Short: "Store a work sample for a profile",
	Long: `Store a work sample under the profile's artifacts/ directory.

Content comes from the second argument, or from --file. A second argument
naming an existing file is read from disk. Files ending in .pdf, .html or
.htm are converted to plain text first. A .json file holding an object with
a "content" string is read as {"title", "content", "index"}; --title and
--index override its fields.

Examples:
  humanc save-artifact "Ada Lovelace" --title "Design doc" design.md
  humanc save-artifact "Ada Lovelace" artifact.json
  humanc save-artifact "Ada Lovelace" --title "Postmortem" --file postmortem.pdf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		file, _ := cmd.Flags().GetString("file")

		name := args[0]
		var (
			content string
			index   *int64
		)
		switch {
		case file != "" && len(args) == 2:
			return fmt.Errorf("save-artifact: %w: pass content or --file, not both", profile.ErrInvalidArgument)
		case file != "":
			text, err := artifacts.ExtractText(file)
			if err != nil {
				return fmt.Errorf("save-artifact: %w", err)
			}
			content = text
		case len(args) == 2:
			raw, path, err := readInput(cmd, args[1])
			if err != nil {
				return fmt.Errorf("save-artifact: %w", err)
			}
			rec, isRecord := artifactRecord(path, raw)
			switch {
			case isRecord:
				content = *rec.Content
				if !cmd.Flags().Changed("title") {
					title = rec.Title
				}
				index = rec.Index
			case path != "":
				text, err := artifacts.ExtractText(path)
				if err != nil {
					return fmt.Errorf("save-artifact: %w", err)
				}
				content = text
			default:
				content = string(raw)
			}
		default:
			return fmt.Errorf("save-artifact: %w: content or --file is required", profile.ErrInvalidArgument)
		}

		art := artifacts.Artifact{Title: title, Content: content, Index: index}
		if cmd.Flags().Changed("index") {
			idx, _ := cmd.Flags().GetInt64("index")
			art.Index = &idx
		}

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.withLock(name, func() error {
			path, err := a.recorder.RecordArtifact(name, art)
			if err != nil {
				return fmt.Errorf("save-artifact: %w", err)
			}
			printSuccess("Saved %s", path)
			return nil
		})
	},
}

func init() {
	saveArtifactCmd.Flags().String("title", "", "artifact title, used in the file name")
	saveArtifactCmd.Flags().String("file", "", "read content from a .md, .txt, .pdf or .html file")
	saveArtifactCmd.Flags().Int64("index", 0, "artifact index (default: current time in milliseconds)")
}

// --- finalize ---

var finalizeCmd = &cobra.Command{
	Use:   "finalize <name>",
	Short: "Mark a profile's interview as complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		name := args[0]
		return a.withLock(name, func() error {
			p, err := a.machine.Finalize(name)
			if err != nil {
				return fmt.Errorf("finalize: %w", err)
			}
			printSuccess("Profile for %s is complete", p.Meta.Name)
			if pending := interview.PendingPhases(p.Meta); len(pending) > 0 {
				titles := make([]string, 0, len(pending))
				for _, ph := range pending {
					titles = append(titles, ph.Title)
				}
				printWarning("Finalized with phases still open: %s", strings.Join(titles, ", "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Confidence: %s\n", confidence(p))
			return nil
		})
	},
}

func confidence(p profile.Profile) string {
	if p.Calibration == nil || p.Calibration.ConfidenceScore == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*p.Calibration.ConfidenceScore, 'f', -1, 64)
}

// --- skills ---

var skillsCmd = &cobra.Command{
	Use:   "skills <name>",
	Short: "Show the task skills derived from a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.machine.Load(args[0])
		if err != nil {
			return fmt.Errorf("skills: %w", err)
		}
		derived := skills.Derive(p)
		if asJSON {
			if derived == nil {
				derived = []skills.Skill{}
			}
			return writeJSON(cmd.OutOrStdout(), derived)
		}

		w := cmd.OutOrStdout()
		if len(derived) == 0 {
			fmt.Fprintln(w, "No task skills derived.")
			return nil
		}
		for _, s := range derived {
			fmt.Fprintf(w, "%s  %s\n", colorize(colorCyan, s.Slug), s.Name)
			fmt.Fprintf(w, "    %s\n", s.Description)
		}
		return nil
	},
}

func init() {
	skillsCmd.Flags().Bool("json", false, "print skills as JSON")
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Compile a profile into an assistant plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		name := args[0]
		p, err := a.machine.Load(name)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		slug := profile.Slugify(name)
		if outDir == "" {
			outDir = plugin.DefaultOutputDir(a.store.Dir(name), slug)
		}

		gen, err := plugin.NewGenerator(nil)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		derived := skills.Derive(p)
		printStep("Rendering plugin for %s (%d task skills)", p.Meta.Name, len(derived))
		dir, err := gen.Generate(cmd.Context(), p, derived, outDir)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		if a.journal != nil {
			if _, err := a.journal.RecordEvent(storage.Event{Profile: slug, Kind: storage.EventGenerate, Detail: dir}); err != nil {
				printWarning("journal write failed: %v", err)
			}
		}
		printSuccess("Plugin written to %s", dir)
		return nil
	},
}

func init() {
	generateCmd.Flags().String("out", "", "output directory (default: <profile>/output-plugin/<slug>-agent)")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history [name]",
	Short: "Show the journal of interview events",
	Long: `Show the journal of interview events for a profile. Without a name, every
profile in the journal is listed under its slug.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.journal == nil {
			return fmt.Errorf("history: journal is disabled (storage.journal=false)")
		}

		w := cmd.OutOrStdout()
		if len(args) == 1 {
			events, err := a.journal.ListEvents(profile.Slugify(args[0]), limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			printEvents(w, events, "")
			return nil
		}

		slugs, err := a.journal.Profiles()
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		if len(slugs) == 0 {
			fmt.Fprintln(w, "No events recorded.")
			return nil
		}
		for _, slug := range slugs {
			events, err := a.journal.ListEvents(slug, limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			fmt.Fprintln(w, colorize(colorBold, slug))
			printEvents(w, events, "  ")
		}
		return nil
	},
}

func printEvents(w io.Writer, events []storage.Event, indent string) {
	if len(events) == 0 {
		fmt.Fprintln(w, indent+"No events recorded.")
		return
	}
	for _, e := range events {
		line := fmt.Sprintf("%s%s  %-10s", indent, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind)
		if e.Phase > 0 {
			line += fmt.Sprintf("  phase %d", e.Phase)
		}
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of events to show (0 for all)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: fmt.Sprintf(`Set a configuration value in the config file.

Valid keys: %s`, strings.Join(config.ValidKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// parsePhase converts a phase argument; range checks happen in the machine.
func parsePhase(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: phase %q is not a number", profile.ErrInvalidArgument, s)
	}
	return n, nil
}

// readInput resolves a payload argument: "-" reads stdin, "@path" or the
// path of an existing regular file reads that file, anything else is taken
// literally. path is set when the payload came from a file.
func readInput(cmd *cobra.Command, arg string) (data []byte, path string, err error) {
	switch {
	case arg == "-":
		data, err = io.ReadAll(cmd.InOrStdin())
		return data, "", err
	case strings.HasPrefix(arg, "@"):
		path = arg[1:]
	default:
		info, statErr := os.Stat(arg)
		if statErr != nil || !info.Mode().IsRegular() {
			return []byte(arg), "", nil
		}
		path = arg
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return data, path, nil
}

// artifactFile is the JSON form of a saved artifact.
type artifactFile struct {
	Title   string  `json:"title"`
	Content *string `json:"content"`
	Index   *int64  `json:"index"`
}

// artifactRecord decodes raw as an artifactFile when it came from a .json
// file and carries a content string.
func artifactRecord(path string, raw []byte) (artifactFile, bool) {
	var rec artifactFile
	if path == "" || !strings.EqualFold(filepath.Ext(path), ".json") {
		return rec, false
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Content == nil {
		return rec, false
	}
	return rec, true
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinInts(ns []int) string {
	if len(ns) == 0 {
		return "none"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
