package profile

import "fmt"

// MaxPhase bounds phase numbers so the two-digit file names under phases/
// keep lexical order equal to numeric order.
const MaxPhase = 99

// Phase describes one stage of the interview and the section it fills.
type Phase struct {
	Number  int
	Section string
	Title   string
}

// Phases is the fixed interview sequence.
var Phases = []Phase{
	{Number: 1, Section: "identity", Title: "Identity"},
	{Number: 2, Section: "communication", Title: "Communication"},
	{Number: 3, Section: "decision_making", Title: "Decision Making"},
	{Number: 4, Section: "expertise", Title: "Expertise"},
	{Number: 5, Section: "work_patterns", Title: "Work Patterns"},
	{Number: 6, Section: "edge_cases", Title: "Edge Cases"},
	{Number: 7, Section: "artifacts", Title: "Artifacts"},
	{Number: 8, Section: "calibration", Title: "Calibration"},
}

// PhaseCount is the number of interview phases.
var PhaseCount = len(Phases)

// LookupPhase returns the catalogue entry for n.
func LookupPhase(n int) (Phase, bool) {
	if n < 1 || n > len(Phases) {
		return Phase{}, false
	}
	return Phases[n-1], true
}

// ValidatePhase rejects phase numbers that cannot be stored.
func ValidatePhase(n int) error {
	if n < 1 || n > MaxPhase {
		return fmt.Errorf("%w: phase %d out of range 1..%d", ErrInvalidArgument, n, MaxPhase)
	}
	return nil
}
