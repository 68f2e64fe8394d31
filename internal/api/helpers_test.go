package api

import (
	"testing"
	"time"

	"github.com/kalambet/human-compiler/internal/artifacts"
	"github.com/kalambet/human-compiler/internal/interview"
	"github.com/kalambet/human-compiler/internal/plugin"
	"github.com/kalambet/human-compiler/internal/profile"
	"github.com/kalambet/human-compiler/internal/storage"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestDeps(t *testing.T, token string) Deps {
	t.Helper()
	journal, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	clock := fixedClock{t: time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC)}
	root := t.TempDir()
	store := profile.NewStore(root, profile.WithClock(clock))
	gen, err := plugin.NewGenerator(clock)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return Deps{
		Machine:   interview.NewMachine(store, interview.WithJournal(journal)),
		Recorder:  artifacts.NewRecorder(root, clock, artifacts.WithJournal(journal)),
		Journal:   journal,
		Generator: gen,
		Token:     token,
	}
}
