package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// PhaseData is a partial profile carrying only interview sections. It has
// no Meta field, so bookkeeping can never be written through a phase
// payload: a "meta" key in the input is dropped at decode time.
type PhaseData struct {
	Identity       *Identity       `yaml:"identity,omitempty" json:"identity,omitempty"`
	Communication  *Communication  `yaml:"communication,omitempty" json:"communication,omitempty"`
	DecisionMaking *DecisionMaking `yaml:"decision_making,omitempty" json:"decision_making,omitempty"`
	Expertise      *Expertise      `yaml:"expertise,omitempty" json:"expertise,omitempty"`
	WorkPatterns   *WorkPatterns   `yaml:"work_patterns,omitempty" json:"work_patterns,omitempty"`
	EdgeCases      *EdgeCases      `yaml:"edge_cases,omitempty" json:"edge_cases,omitempty"`
	Artifacts      *Artifacts      `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	Calibration    *Calibration    `yaml:"calibration,omitempty" json:"calibration,omitempty"`
}

// ParsePhaseData decodes a JSON or YAML document into PhaseData. Top-level
// keys other than the eight section names are ignored; undeclared keys
// inside a section are kept in that section's Extra map.
func ParsePhaseData(data []byte) (PhaseData, error) {
	var pd PhaseData
	var keys map[string]any

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return pd, nil
	}
	if trimmed[0] == '{' {
		// JSON goes through the YAML decoder too so inline Extra maps fill
		// the same way for both encodings.
		var doc map[string]any
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return PhaseData{}, fmt.Errorf("%w: decoding phase data: %v", ErrInvalidArgument, err)
		}
		converted, err := yaml.Marshal(doc)
		if err != nil {
			return PhaseData{}, fmt.Errorf("%w: decoding phase data: %v", ErrInvalidArgument, err)
		}
		trimmed = converted
	}
	if err := yaml.Unmarshal(trimmed, &pd); err != nil {
		return PhaseData{}, fmt.Errorf("%w: decoding phase data: %v", ErrInvalidArgument, err)
	}
	_ = yaml.Unmarshal(trimmed, &keys)

	for k := range keys {
		if !isSection(k) {
			slog.Debug("ignoring non-section key in phase data", "key", k)
		}
	}
	return pd, nil
}

// Sections lists the section keys present in pd, in phase order.
func (pd PhaseData) Sections() []string {
	present := []bool{
		pd.Identity != nil,
		pd.Communication != nil,
		pd.DecisionMaking != nil,
		pd.Expertise != nil,
		pd.WorkPatterns != nil,
		pd.EdgeCases != nil,
		pd.Artifacts != nil,
		pd.Calibration != nil,
	}
	var out []string
	for i, ok := range present {
		if ok {
			out = append(out, Phases[i].Section)
		}
	}
	return out
}

// ApplyTo replaces each section of p that is present in pd. Sections are
// swapped wholesale, never deep-merged; absent sections are left untouched.
func (pd PhaseData) ApplyTo(p *Profile) {
	if pd.Identity != nil {
		p.Identity = pd.Identity
	}
	if pd.Communication != nil {
		p.Communication = pd.Communication
	}
	if pd.DecisionMaking != nil {
		p.DecisionMaking = pd.DecisionMaking
	}
	if pd.Expertise != nil {
		p.Expertise = pd.Expertise
	}
	if pd.WorkPatterns != nil {
		p.WorkPatterns = pd.WorkPatterns
	}
	if pd.EdgeCases != nil {
		p.EdgeCases = pd.EdgeCases
	}
	if pd.Artifacts != nil {
		p.Artifacts = pd.Artifacts
	}
	if pd.Calibration != nil {
		p.Calibration = pd.Calibration
	}
}

func isSection(key string) bool {
	for _, ph := range Phases {
		if ph.Section == key {
			return true
		}
	}
	return false
}
