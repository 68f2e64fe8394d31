// Package interview drives a profile through its numbered phases. Every
// operation is a read-modify-write against the profile store; nothing is
// cached between calls.
package interview

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/storage"
)

// Journal receives a record of each successful transition.
type Journal interface {
	RecordEvent(e storage.Event) (storage.Event, error)
}

// Machine applies phase data and completion signals to stored profiles.
type Machine struct {
	store       *profile.Store
	journal     Journal
	strictOrder bool
	requireAll  bool
}

// Option customizes a Machine.
type Option func(*Machine)

// WithJournal records transitions to j. Journal failures are logged and
// never fail the operation.
func WithJournal(j Journal) Option {
	return func(m *Machine) { m.journal = j }
}

// WithStrictOrder rejects completing phase n while any of 1..n-1 is
// incomplete.
func WithStrictOrder(strict bool) Option {
	return func(m *Machine) { m.strictOrder = strict }
}

// WithRequireAllPhases rejects Finalize until every catalogue phase is
// complete.
func WithRequireAllPhases(require bool) Option {
	return func(m *Machine) { m.requireAll = require }
}

// NewMachine returns a Machine persisting through store.
func NewMachine(store *profile.Store, opts ...Option) *Machine {
	m := &Machine{store: store}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying profile store.
func (m *Machine) Store() *profile.Store { return m.store }

// StatusResult is the outcome of a Status query. Profile is nil when
// Exists is false.
type StatusResult struct {
	Exists  bool             `json:"exists"`
	Profile *profile.Profile `json:"profile,omitempty"`
}

// Init creates a fresh profile for name.
func (m *Machine) Init(name string) (profile.Profile, error) {
	p, err := m.store.Create(name)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("init %s: %w", name, err)
	}
	m.record(name, p, storage.EventInit, 0, "")
	return p, nil
}

// Load reads the profile for name.
func (m *Machine) Load(name string) (profile.Profile, error) {
	return m.store.Read(name)
}

// List returns the slugs of every stored profile.
func (m *Machine) List() ([]string, error) {
	return m.store.List()
}

// Listing is one row of Overview.
type Listing struct {
	Slug string       `json:"slug"`
	Meta profile.Meta `json:"meta"`
}

// Overview loads the bookkeeping block of every stored profile, sorted by
// slug. Profiles that fail to load are logged and skipped.
func (m *Machine) Overview() ([]Listing, error) {
	slugs, err := m.store.List()
	if err != nil {
		return nil, err
	}
	sort.Strings(slugs)

	out := make([]Listing, 0, len(slugs))
	for _, slug := range slugs {
		p, err := m.store.Read(slug)
		if err != nil {
			slog.Warn("skipping unreadable profile", "profile", slug, "error", err)
			continue
		}
		out = append(out, Listing{Slug: slug, Meta: p.Meta})
	}
	return out, nil
}

// MergePhaseData replaces each section present in data and marks phase as
// the one being worked. No ordering check is made here.
func (m *Machine) MergePhaseData(name string, phase int, data profile.PhaseData) (profile.Profile, error) {
	if err := profile.ValidatePhase(phase); err != nil {
		return profile.Profile{}, err
	}
	p, err := m.store.Read(name)
	if err != nil {
		return profile.Profile{}, err
	}

	data.ApplyTo(&p)
	p.Meta.CurrentPhase = phase

	if err := m.store.Write(name, &p); err != nil {
		return profile.Profile{}, err
	}
	sections := data.Sections()
	slog.Debug("phase data merged", "profile", profile.Slugify(name), "phase", phase, "sections", sections)
	m.record(name, p, storage.EventMerge, phase, strings.Join(sections, ","))
	return p, nil
}

// CompletePhase adds phase to the completed set and moves current_phase to
// the phase after it. Completing a phase twice is a no-op on the set.
func (m *Machine) CompletePhase(name string, phase int) (profile.Profile, error) {
	if err := profile.ValidatePhase(phase); err != nil {
		return profile.Profile{}, err
	}
	p, err := m.store.Read(name)
	if err != nil {
		return profile.Profile{}, err
	}

	if m.strictOrder {
		if missing := missingBefore(p.Meta, phase); len(missing) > 0 {
			return profile.Profile{}, fmt.Errorf("%w: phase %d cannot complete before phases %v", profile.ErrInvalidArgument, phase, missing)
		}
	}

	if !p.Meta.HasCompleted(phase) {
		p.Meta.PhasesCompleted = append(p.Meta.PhasesCompleted, phase)
		sort.Ints(p.Meta.PhasesCompleted)
	}
	p.Meta.CurrentPhase = phase + 1

	if err := m.store.Write(name, &p); err != nil {
		return profile.Profile{}, err
	}
	slog.Debug("phase completed", "profile", profile.Slugify(name), "phase", phase, "completed", p.Meta.PhasesCompleted)
	m.record(name, p, storage.EventComplete, phase, "")
	return p, nil
}

// Status reports whether a profile exists for name and returns it when it
// does. Absence is not an error.
func (m *Machine) Status(name string) (StatusResult, error) {
	exists, err := m.store.Exists(name)
	if err != nil {
		return StatusResult{}, err
	}
	if !exists {
		return StatusResult{Exists: false}, nil
	}
	p, err := m.store.Read(name)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Exists: true, Profile: &p}, nil
}

// Finalize marks the profile complete. By default it does not look at how
// many phases were finished.
func (m *Machine) Finalize(name string) (profile.Profile, error) {
	p, err := m.store.Read(name)
	if err != nil {
		return profile.Profile{}, err
	}

	if m.requireAll {
		if pending := PendingPhases(p.Meta); len(pending) > 0 {
			nums := make([]int, 0, len(pending))
			for _, ph := range pending {
				nums = append(nums, ph.Number)
			}
			return profile.Profile{}, fmt.Errorf("%w: phases %v are not complete", profile.ErrInvalidArgument, nums)
		}
	}

	p.Meta.Status = profile.StatusComplete
	if err := m.store.Write(name, &p); err != nil {
		return profile.Profile{}, err
	}
	slog.Info("profile finalized", "profile", profile.Slugify(name), "phases_completed", len(p.Meta.PhasesCompleted))
	m.record(name, p, storage.EventFinalize, 0, "")
	return p, nil
}

// PendingPhases returns the catalogue phases not yet completed, in order.
func PendingPhases(meta profile.Meta) []profile.Phase {
	var out []profile.Phase
	for _, ph := range profile.Phases {
		if !meta.HasCompleted(ph.Number) {
			out = append(out, ph)
		}
	}
	return out
}

func missingBefore(meta profile.Meta, phase int) []int {
	var missing []int
	for n := 1; n < phase; n++ {
		if !meta.HasCompleted(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

func (m *Machine) record(name string, p profile.Profile, kind storage.EventKind, phase int, detail string) {
	if m.journal == nil {
		return
	}
	slug := profile.Slugify(name)
	_, err := m.journal.RecordEvent(storage.Event{
		Profile:   slug,
		Kind:      kind,
		Phase:     phase,
		Detail:    detail,
		CreatedAt: p.Meta.LastUpdated,
	})
	if err != nil {
		slog.Warn("journal write failed", "profile", slug, "kind", kind, "error", err)
	}
}
