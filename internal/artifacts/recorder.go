// Package artifacts stores the documents produced alongside an interview:
// raw phase transcripts, phase summaries and analyzed source artifacts.
// They live next to the profile document but never read or write it.
package artifacts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/storage"
)

// maxTitleSlug bounds the title part of artifact file names.
const maxTitleSlug = 50

// Artifact is an analyzed source document. A nil Index is replaced by a
// millisecond timestamp.
type Artifact struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Index   *int64 `json:"index,omitempty"`
}

// Journal receives a record of each written file.
type Journal interface {
	RecordEvent(e storage.Event) (storage.Event, error)
}

// Recorder writes artifact files under <root>/<slug>/.
type Recorder struct {
	root    string
	clock   profile.Clock
	journal Journal

	mu        sync.Mutex
	lastIndex int64
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithJournal records every successful write to j.
func WithJournal(j Journal) RecorderOption {
	return func(r *Recorder) { r.journal = j }
}

// NewRecorder returns a Recorder rooted at root. A nil clock uses wall time.
func NewRecorder(root string, clock profile.Clock, opts ...RecorderOption) *Recorder {
	if clock == nil {
		clock = wallClock{}
	}
	r := &Recorder{root: root, clock: clock}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// RecordTranscript writes the raw transcript for phase, replacing any
// previous one, and returns its path.
func (r *Recorder) RecordTranscript(name string, phase int, text string) (string, error) {
	return r.writePhaseFile(name, phase, "raw", text)
}

// RecordSummary writes the summary for phase, replacing any previous one,
// and returns its path.
func (r *Recorder) RecordSummary(name string, phase int, text string) (string, error) {
	return r.writePhaseFile(name, phase, "summary", text)
}

// RecordArtifact writes a under the profile's artifacts directory and
// returns its path.
func (r *Recorder) RecordArtifact(name string, a Artifact) (string, error) {
	slug := profile.Slugify(name)
	if slug == "" {
		return "", fmt.Errorf("%w: name %q has no usable characters", profile.ErrInvalidArgument, name)
	}

	var idx int64
	if a.Index != nil {
		idx = *a.Index
	} else {
		idx = r.nextIndex()
	}
	title := profile.Slugify(a.Title)
	if len(title) > maxTitleSlug {
		title = title[:maxTitleSlug]
	}

	path := filepath.Join(r.root, slug, profile.ArtifactsDir, fmt.Sprintf("artifact-%d-%s.md", idx, title))
	if err := writeFile(path, a.Content); err != nil {
		return "", err
	}
	slog.Debug("artifact recorded", "profile", slug, "path", path, "bytes", len(a.Content))
	r.record(slug, storage.EventArtifact, 0, path)
	return path, nil
}

// TranscriptPath returns where the transcript for phase is stored.
func (r *Recorder) TranscriptPath(name string, phase int) string {
	return r.phasePath(name, phase, "raw")
}

// SummaryPath returns where the summary for phase is stored.
func (r *Recorder) SummaryPath(name string, phase int) string {
	return r.phasePath(name, phase, "summary")
}

func (r *Recorder) phasePath(name string, phase int, kind string) string {
	return filepath.Join(r.root, profile.Slugify(name), profile.PhasesDir, fmt.Sprintf("phase-%02d-%s.md", phase, kind))
}

func (r *Recorder) writePhaseFile(name string, phase int, kind, text string) (string, error) {
	if profile.Slugify(name) == "" {
		return "", fmt.Errorf("%w: name %q has no usable characters", profile.ErrInvalidArgument, name)
	}
	if err := profile.ValidatePhase(phase); err != nil {
		return "", err
	}
	path := r.phasePath(name, phase, kind)
	if err := writeFile(path, text); err != nil {
		return "", err
	}
	slug := profile.Slugify(name)
	slog.Debug("phase file recorded", "profile", slug, "phase", phase, "kind", kind)
	ev := storage.EventTranscript
	if kind == "summary" {
		ev = storage.EventSummary
	}
	r.record(slug, ev, phase, path)
	return path, nil
}

// nextIndex returns the current time in milliseconds, bumped past the last
// issued index so two artifacts in the same millisecond never collide.
func (r *Recorder) nextIndex() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.clock.Now().UnixMilli()
	if idx <= r.lastIndex {
		idx = r.lastIndex + 1
	}
	r.lastIndex = idx
	return idx
}

func (r *Recorder) record(slug string, kind storage.EventKind, phase int, path string) {
	if r.journal == nil {
		return
	}
	_, err := r.journal.RecordEvent(storage.Event{
		Profile:   slug,
		Kind:      kind,
		Phase:     phase,
		Detail:    path,
		CreatedAt: r.clock.Now().UTC(),
	})
	if err != nil {
		slog.Warn("journal write failed", "profile", slug, "kind", kind, "error", err)
	}
}

func writeFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &profile.StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &profile.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}
