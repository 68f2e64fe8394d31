package profile

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by errors for absent profiles.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by strict creates when a profile exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrStorage is matched by I/O and decode failures other than absence.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidArgument marks malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLocked is returned when an advisory lock is already held.
	ErrLocked = errors.New("profile locked")
)

// NotFoundError reports a missing profile document and where it was looked for.
type NotFoundError struct {
	Name string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile not found: %s (looked at %s)", e.Name, e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failed filesystem or codec operation.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
