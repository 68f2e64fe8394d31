package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/storage"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestRecorder(t *testing.T) (*Recorder, string) {
	t.Helper()
	root := t.TempDir()
	return NewRecorder(root, fixedClock{t: time.UnixMilli(1771234567890)}), root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestRecordTranscript(t *testing.T) {
	r, root := newTestRecorder(t)

	path, err := r.RecordTranscript("Jane Doe", 3, "Q: How do you decide?\nA: Data first.")
	if err != nil {
		t.Fatalf("RecordTranscript: %v", err)
	}
	want := filepath.Join(root, "jane-doe", "phases", "phase-03-raw.md")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if got := readFile(t, path); !strings.Contains(got, "Data first.") {
		t.Errorf("content = %q", got)
	}
}

func TestRecordSummary_Overwrites(t *testing.T) {
	r, root := newTestRecorder(t)

	r.RecordSummary("Jane Doe", 12, "first draft")
	path, err := r.RecordSummary("Jane Doe", 12, "final")
	if err != nil {
		t.Fatalf("RecordSummary: %v", err)
	}
	if path != filepath.Join(root, "jane-doe", "phases", "phase-12-summary.md") {
		t.Errorf("path = %q", path)
	}
	if got := readFile(t, path); got != "final" {
		t.Errorf("content = %q, want overwrite", got)
	}
	if path != r.SummaryPath("Jane Doe", 12) {
		t.Errorf("SummaryPath mismatch: %q", r.SummaryPath("Jane Doe", 12))
	}
}

func TestPhaseFileNamesSortNumerically(t *testing.T) {
	r, _ := newTestRecorder(t)
	a := filepath.Base(r.TranscriptPath("x", 2))
	b := filepath.Base(r.TranscriptPath("x", 10))
	if !(a < b) {
		t.Errorf("%q should sort before %q", a, b)
	}
}

func TestRecordTranscript_InvalidPhase(t *testing.T) {
	r, _ := newTestRecorder(t)
	if _, err := r.RecordTranscript("Jane Doe", 100, "x"); !errors.Is(err, profile.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRecordArtifact_ExplicitIndex(t *testing.T) {
	r, root := newTestRecorder(t)

	idx := int64(1)
	path, err := r.RecordArtifact("Jane Doe", Artifact{Title: "Product Strategy Doc", Content: "# Strategy", Index: &idx})
	if err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	want := filepath.Join(root, "jane-doe", "artifacts", "artifact-1-product-strategy-doc.md")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if got := readFile(t, path); got != "# Strategy" {
		t.Errorf("content = %q", got)
	}
}

func TestRecordArtifact_TruncatesTitle(t *testing.T) {
	r, _ := newTestRecorder(t)

	idx := int64(7)
	path, err := r.RecordArtifact("Jane Doe", Artifact{Title: strings.Repeat("quarterly planning ", 10), Index: &idx})
	if err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	name := filepath.Base(path)
	titlePart := strings.TrimSuffix(strings.TrimPrefix(name, "artifact-7-"), ".md")
	if len(titlePart) != maxTitleSlug {
		t.Errorf("title part %q has length %d, want %d", titlePart, len(titlePart), maxTitleSlug)
	}
}

func TestRecordArtifact_DefaultIndexNeverCollides(t *testing.T) {
	r, _ := newTestRecorder(t)

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := r.RecordArtifact("Jane Doe", Artifact{Title: "Same Title", Content: "x"})
			if err != nil {
				t.Errorf("RecordArtifact: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[path] {
				t.Errorf("duplicate artifact path %s", path)
			}
			seen[path] = true
		}()
	}
	wg.Wait()

	if !seen[filepath.Join(r.root, "jane-doe", "artifacts", "artifact-1771234567890-same-title.md")] {
		t.Error("expected first artifact to use the clock's millisecond timestamp")
	}
}

func TestRecordArtifact_WithoutProfileDocument(t *testing.T) {
	r, root := newTestRecorder(t)

	if _, err := r.RecordArtifact("Nobody Yet", Artifact{Title: "Notes", Content: "x"}); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "nobody-yet", profile.DocumentName)); !os.IsNotExist(err) {
		t.Error("recording an artifact must not create a profile document")
	}
}

func TestRecordArtifact_StorageFailure(t *testing.T) {
	root := t.TempDir()
	// A file where the profile directory should be.
	if err := os.WriteFile(filepath.Join(root, "jane-doe"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRecorder(root, nil)

	_, err := r.RecordArtifact("Jane Doe", Artifact{Title: "Notes"})
	if !errors.Is(err, profile.ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
}

type memJournal struct {
	mu     sync.Mutex
	events []storage.Event
}

func (j *memJournal) RecordEvent(e storage.Event) (storage.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return e, nil
}

func TestRecorder_Journal(t *testing.T) {
	j := &memJournal{}
	r := NewRecorder(t.TempDir(), fixedClock{t: time.UnixMilli(1771234567890)}, WithJournal(j))

	tp, _ := r.RecordTranscript("Jane Doe", 1, "raw")
	r.RecordSummary("Jane Doe", 1, "sum")
	ap, _ := r.RecordArtifact("Jane Doe", Artifact{Title: "Doc"})
	r.RecordTranscript("Jane Doe", 0, "rejected")

	if len(j.events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(j.events), j.events)
	}
	want := []storage.EventKind{storage.EventTranscript, storage.EventSummary, storage.EventArtifact}
	for i, e := range j.events {
		if e.Kind != want[i] || e.Profile != "jane-doe" {
			t.Errorf("event %d = %+v", i, e)
		}
	}
	if j.events[0].Detail != tp || j.events[2].Detail != ap || j.events[0].Phase != 1 {
		t.Errorf("event details = %+v", j.events)
	}
}
