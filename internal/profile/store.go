package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DocumentName is the profile document inside each profile directory.
	DocumentName = "profile.yaml"
	// PhasesDir holds per-phase transcripts and summaries.
	PhasesDir = "phases"
	// ArtifactsDir holds analyzed source artifacts.
	ArtifactsDir = "artifacts"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Store reads and writes profile documents under a root directory. Each
// profile lives in <root>/<slug>/profile.yaml.
//
// Store performs no locking: every mutation is a whole-document replacement
// and the last writer wins.
type Store struct {
	root         string
	clock        Clock
	strictCreate bool
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for timestamps.
func WithClock(c Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// WithStrictCreate makes Create fail with ErrAlreadyExists instead of
// overwriting an existing document.
func WithStrictCreate(strict bool) StoreOption {
	return func(s *Store) { s.strictCreate = strict }
}

// NewStore returns a Store rooted at root.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{root: root, clock: realClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the storage root.
func (s *Store) Root() string { return s.root }

// Dir returns the profile directory derived from a display name.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, Slugify(name))
}

// Path returns the profile document path derived from a display name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir(name), DocumentName)
}

// Create writes a fresh profile for name and returns it.
func (s *Store) Create(name string) (Profile, error) {
	if Slugify(name) == "" {
		return Profile{}, fmt.Errorf("%w: name %q has no usable characters", ErrInvalidArgument, name)
	}
	dir := s.Dir(name)
	if s.strictCreate {
		exists, err := s.Exists(name)
		if err != nil {
			return Profile{}, err
		}
		if exists {
			return Profile{}, fmt.Errorf("profile %s: %w", s.Path(name), ErrAlreadyExists)
		}
	}

	for _, d := range []string{dir, filepath.Join(dir, PhasesDir), filepath.Join(dir, ArtifactsDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Profile{}, &StorageError{Op: "mkdir", Path: d, Err: err}
		}
	}

	now := s.clock.Now()
	p := Profile{
		Meta: Meta{
			Name:            name,
			Started:         now,
			LastUpdated:     now,
			CurrentPhase:    1,
			PhasesCompleted: []int{},
			Status:          StatusInProgress,
		},
	}
	if err := s.Write(name, &p); err != nil {
		return Profile{}, err
	}
	slog.Debug("profile created", "profile", Slugify(name), "dir", dir)
	return p, nil
}

// Read loads the profile for name.
func (s *Store) Read(name string) (Profile, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Profile{}, &NotFoundError{Name: name, Path: path}
	}
	if err != nil {
		return Profile{}, &StorageError{Op: "read", Path: path, Err: err}
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, &StorageError{Op: "decode", Path: path, Err: err}
	}
	if p.Meta.PhasesCompleted == nil {
		p.Meta.PhasesCompleted = []int{}
	}
	return p, nil
}

// Write replaces the persisted document for name and refreshes
// p.Meta.LastUpdated. The destination follows name, the name the profile
// was looked up under, not p.Meta.Name. The replacement is atomic: readers
// see either the old or the new document.
func (s *Store) Write(name string, p *Profile) error {
	if Slugify(name) == "" {
		return fmt.Errorf("%w: name %q has no usable characters", ErrInvalidArgument, name)
	}
	p.Meta.LastUpdated = s.clock.Now()

	path := s.Path(name)
	data, err := yaml.Marshal(p)
	if err != nil {
		return &StorageError{Op: "encode", Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Exists reports whether a document is persisted for name. Absence is not
// an error; any other stat failure is.
func (s *Store) Exists(name string) (bool, error) {
	path := s.Path(name)
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &StorageError{Op: "stat", Path: path, Err: err}
}

// List returns the slugs of all profiles under the root, in directory order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "list", Path: s.root, Err: err}
	}

	var slugs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, entry.Name(), DocumentName)); err == nil {
			slugs = append(slugs, entry.Name())
		}
	}
	return slugs, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_profile_*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
