package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// EventKind names a recorded interview transition.
type EventKind string

const (
	EventInit       EventKind = "init"
	EventMerge      EventKind = "merge"
	EventComplete   EventKind = "complete"
	EventFinalize   EventKind = "finalize"
	EventTranscript EventKind = "transcript"
	EventSummary    EventKind = "summary"
	EventArtifact   EventKind = "artifact"
	EventGenerate   EventKind = "generate"
)

// Event is one journal row. The profile document stays authoritative; the
// journal only answers "what happened when".
type Event struct {
	ID        string
	Profile   string // slug
	Kind      EventKind
	Phase     int    // 0 when the event is not tied to a phase
	Detail    string // free text, e.g. merged section names or a file path
	CreatedAt time.Time
}
