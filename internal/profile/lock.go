package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

const lockFileName = ".lock"

// Lock takes an advisory lock on the profile directory for name by creating
// a lock file exclusively. It is never taken implicitly; callers that want
// mutual exclusion between sessions opt in and must call the returned
// release function.
func (s *Store) Lock(name string) (func() error, error) {
	dir := s.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		holder, _ := os.ReadFile(path)
		return nil, fmt.Errorf("%w: %s held by pid %s", ErrLocked, path, string(holder))
	}
	if err != nil {
		return nil, &StorageError{Op: "lock", Path: path, Err: err}
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return nil, &StorageError{Op: "lock", Path: path, Err: werr}
	}

	return func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &StorageError{Op: "unlock", Path: path, Err: err}
		}
		return nil
	}, nil
}
