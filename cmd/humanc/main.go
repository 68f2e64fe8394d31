package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/human-compiler/internal/artifacts"
	"github.com/kalambet/human-compiler/internal/config"
	"github.com/kalambet/human-compiler/internal/interview"
	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/storage"
)

var version = "dev"

var (
	noColor  bool
	dataDir  string
	logLevel string
	useLock  bool
)

var rootCmd = &cobra.Command{
	Use:   "humanc",
	Short: "Record a multi-session interview into a behavioral profile",
	Long: `humanc records a structured, multi-session interview about a person into a
YAML profile, tracks progress through the interview phases, and derives task
skills that can be compiled into an assistant plugin.

Profiles live under <data-dir>/<slug>/profile.yaml.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		name := logLevel
		if name == "" {
			if cfg, err := config.Load(); err == nil {
				name = cfg.Log.Level
			}
		}
		level := slog.LevelInfo
		if strings.EqualFold(name, "debug") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "profile root directory (overrides storage.data_dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug or info (overrides log.level)")
	rootCmd.PersistentFlags().BoolVar(&useLock, "lock", false, "take the profile's advisory lock for mutating commands")

	rootCmd.AddCommand(initCmd, loadCmd, statusCmd, listCmd)
	rootCmd.AddCommand(updatePhaseCmd, markCompleteCmd, finalizeCmd)
	rootCmd.AddCommand(saveTranscriptCmd, saveSummaryCmd, saveArtifactCmd)
	rootCmd.AddCommand(skillsCmd, generateCmd, historyCmd)
	rootCmd.AddCommand(serveCmd, mcpCmd, configCmd)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// app is the set of components a command operates on, built from the
// resolved configuration.
type app struct {
	cfg      config.Config
	store    *profile.Store
	machine  *interview.Machine
	recorder *artifacts.Recorder
	journal  *storage.Store // nil when storage.journal is off
}

// openApp loads configuration, applies the global flag overrides and wires
// the store, state machine and recorder. The journal is opened only when
// journaled is set and storage.journal is on; read-only commands pass false
// so they never create the data directory or the journal database.
func openApp(journaled bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if cfg.Storage.DataDir == "" {
		return nil, fmt.Errorf("%w: storage.data_dir is empty", profile.ErrInvalidArgument)
	}

	a := &app{cfg: cfg}
	a.store = profile.NewStore(cfg.Storage.DataDir, profile.WithStrictCreate(cfg.Interview.StrictInit))

	machineOpts := []interview.Option{
		interview.WithStrictOrder(cfg.Interview.StrictOrder),
		interview.WithRequireAllPhases(cfg.Interview.RequireAllPhases),
	}
	var recorderOpts []artifacts.RecorderOption
	if journaled && cfg.Storage.Journal {
		journal, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		a.journal = journal
		machineOpts = append(machineOpts, interview.WithJournal(journal))
		recorderOpts = append(recorderOpts, artifacts.WithJournal(journal))
	}
	a.machine = interview.NewMachine(a.store, machineOpts...)
	a.recorder = artifacts.NewRecorder(cfg.Storage.DataDir, nil, recorderOpts...)

	slog.Debug("opened profile root", "dir", a.store.Root(), "journal", a.journal != nil)
	return a, nil
}

func (a *app) Close() {
	if a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		printWarning("closing journal: %v", err)
	}
}

// withLock runs fn holding the profile's advisory lock when --lock is set.
func (a *app) withLock(name string, fn func() error) error {
	if !useLock {
		return fn()
	}
	release, err := a.store.Lock(name)
	if err != nil {
		return err
	}
	ferr := fn()
	if rerr := release(); rerr != nil {
		ferr = errors.Join(ferr, rerr)
	}
	return ferr
}
