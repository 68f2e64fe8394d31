package profile

import "time"

// Status is the lifecycle state of an interview profile.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusGenerating Status = "generating"
)

// Depth is the self-reported proficiency in an expertise domain.
type Depth string

const (
	DepthBeginner     Depth = "beginner"
	DepthIntermediate Depth = "intermediate"
	DepthAdvanced     Depth = "advanced"
	DepthExpert       Depth = "expert"
)

// Profile is the persisted behavioral record for one person. Meta is always
// present; each section is filled by its interview phase and may be nil.
//
// Sections are free-form: keys a section struct does not declare are kept
// in its Extra map and written back verbatim.
type Profile struct {
	Meta           Meta            `yaml:"meta" json:"meta"`
	Identity       *Identity       `yaml:"identity,omitempty" json:"identity,omitempty"`
	Communication  *Communication  `yaml:"communication,omitempty" json:"communication,omitempty"`
	DecisionMaking *DecisionMaking `yaml:"decision_making,omitempty" json:"decision_making,omitempty"`
	Expertise      *Expertise      `yaml:"expertise,omitempty" json:"expertise,omitempty"`
	WorkPatterns   *WorkPatterns   `yaml:"work_patterns,omitempty" json:"work_patterns,omitempty"`
	EdgeCases      *EdgeCases      `yaml:"edge_cases,omitempty" json:"edge_cases,omitempty"`
	Artifacts      *Artifacts      `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	Calibration    *Calibration    `yaml:"calibration,omitempty" json:"calibration,omitempty"`
}

// Meta is the bookkeeping block. PhasesCompleted is kept sorted and free of
// duplicates; CurrentPhase is the next phase expected.
type Meta struct {
	Name            string    `yaml:"name" json:"name"`
	Started         time.Time `yaml:"started" json:"started"`
	LastUpdated     time.Time `yaml:"last_updated" json:"last_updated"`
	CurrentPhase    int       `yaml:"current_phase" json:"current_phase"`
	PhasesCompleted []int     `yaml:"phases_completed" json:"phases_completed"`
	Status          Status    `yaml:"status" json:"status"`
}

type Identity struct {
	Role               string   `yaml:"role,omitempty" json:"role,omitempty"`
	Organization       string   `yaml:"organization,omitempty" json:"organization,omitempty"`
	Team               string   `yaml:"team,omitempty" json:"team,omitempty"`
	Responsibilities   []string `yaml:"responsibilities,omitempty" json:"responsibilities,omitempty"`
	Goals              []string `yaml:"goals,omitempty" json:"goals,omitempty"`
	ReportingStructure string   `yaml:"reporting_structure,omitempty" json:"reporting_structure,omitempty"`
	Tenure             string   `yaml:"tenure,omitempty" json:"tenure,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type Communication struct {
	WritingStyle  string        `yaml:"writing_style,omitempty" json:"writing_style,omitempty"`
	ToneSpectrum  *ToneSpectrum `yaml:"tone_spectrum,omitempty" json:"tone_spectrum,omitempty"`
	Patterns      []string      `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	EmailExamples []string      `yaml:"email_examples,omitempty" json:"email_examples,omitempty"`
	Vocabulary    []string      `yaml:"vocabulary,omitempty" json:"vocabulary,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type ToneSpectrum struct {
	Formal string `yaml:"formal,omitempty" json:"formal,omitempty"`
	Casual string `yaml:"casual,omitempty" json:"casual,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type DecisionMaking struct {
	Framework        string   `yaml:"framework,omitempty" json:"framework,omitempty"`
	Prioritization   string   `yaml:"prioritization,omitempty" json:"prioritization,omitempty"`
	UnderUncertainty string   `yaml:"under_uncertainty,omitempty" json:"under_uncertainty,omitempty"`
	TradeoffPatterns []string `yaml:"tradeoff_patterns,omitempty" json:"tradeoff_patterns,omitempty"`
	Examples         []string `yaml:"examples,omitempty" json:"examples,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type Expertise struct {
	Domains           []Domain `yaml:"domains,omitempty" json:"domains,omitempty"`
	TechnicalSkills   []string `yaml:"technical_skills,omitempty" json:"technical_skills,omitempty"`
	IndustryKnowledge []string `yaml:"industry_knowledge,omitempty" json:"industry_knowledge,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

// Domain is one entry of expertise.domains. List order is significant.
type Domain struct {
	Name    string `yaml:"name" json:"name"`
	Depth   Depth  `yaml:"depth" json:"depth"`
	Details string `yaml:"details,omitempty" json:"details,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type WorkPatterns struct {
	DailyRoutine       string   `yaml:"daily_routine,omitempty" json:"daily_routine,omitempty"`
	Tools              []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	CollaborationStyle string   `yaml:"collaboration_style,omitempty" json:"collaboration_style,omitempty"`
	MeetingBehavior    string   `yaml:"meeting_behavior,omitempty" json:"meeting_behavior,omitempty"`
	TaskManagement     string   `yaml:"task_management,omitempty" json:"task_management,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type EdgeCases struct {
	ConflictResolution string     `yaml:"conflict_resolution,omitempty" json:"conflict_resolution,omitempty"`
	AmbiguityHandling  string     `yaml:"ambiguity_handling,omitempty" json:"ambiguity_handling,omitempty"`
	FailureResponse    string     `yaml:"failure_response,omitempty" json:"failure_response,omitempty"`
	Scenarios          []Scenario `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type Scenario struct {
	Situation string `yaml:"situation" json:"situation"`
	Response  string `yaml:"response" json:"response"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

// Artifacts is the phase-7 section: patterns mined from documents the person
// produced. The documents themselves live under the profile's artifacts/ dir.
type Artifacts struct {
	AnalyzedDocuments   []AnalyzedDocument `yaml:"analyzed_documents,omitempty" json:"analyzed_documents,omitempty"`
	SynthesizedPatterns []string           `yaml:"synthesized_patterns,omitempty" json:"synthesized_patterns,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type AnalyzedDocument struct {
	Source        string   `yaml:"source" json:"source"`
	Title         string   `yaml:"title" json:"title"`
	PatternsFound []string `yaml:"patterns_found,omitempty" json:"patterns_found,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

type Calibration struct {
	Corrections     []string `yaml:"corrections,omitempty" json:"corrections,omitempty"`
	Additions       []string `yaml:"additions,omitempty" json:"additions,omitempty"`
	ConfidenceScore *float64 `yaml:"confidence_score,omitempty" json:"confidence_score,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

// HasCompleted reports whether phase n is recorded as complete.
func (m Meta) HasCompleted(n int) bool {
	for _, p := range m.PhasesCompleted {
		if p == n {
			return true
		}
	}
	return false
}
