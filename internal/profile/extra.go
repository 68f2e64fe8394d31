package profile

import "encoding/json"

// inlineJSON encodes v and folds extra into the resulting object, so JSON
// output carries the same undeclared keys the YAML document does. Declared
// fields win over an extra key of the same name.
func inlineJSON(v any, extra map[string]any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return b, err
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, ok := obj[k]; !ok {
			obj[k] = val
		}
	}
	return json.Marshal(obj)
}

func (s Identity) MarshalJSON() ([]byte, error) {
	type plain Identity
	return inlineJSON(plain(s), s.Extra)
}

func (s Communication) MarshalJSON() ([]byte, error) {
	type plain Communication
	return inlineJSON(plain(s), s.Extra)
}

func (s ToneSpectrum) MarshalJSON() ([]byte, error) {
	type plain ToneSpectrum
	return inlineJSON(plain(s), s.Extra)
}

func (s DecisionMaking) MarshalJSON() ([]byte, error) {
	type plain DecisionMaking
	return inlineJSON(plain(s), s.Extra)
}

func (s Expertise) MarshalJSON() ([]byte, error) {
	type plain Expertise
	return inlineJSON(plain(s), s.Extra)
}

func (s Domain) MarshalJSON() ([]byte, error) {
	type plain Domain
	return inlineJSON(plain(s), s.Extra)
}

func (s WorkPatterns) MarshalJSON() ([]byte, error) {
	type plain WorkPatterns
	return inlineJSON(plain(s), s.Extra)
}

func (s EdgeCases) MarshalJSON() ([]byte, error) {
	type plain EdgeCases
	return inlineJSON(plain(s), s.Extra)
}

func (s Scenario) MarshalJSON() ([]byte, error) {
	type plain Scenario
	return inlineJSON(plain(s), s.Extra)
}

func (s Artifacts) MarshalJSON() ([]byte, error) {
	type plain Artifacts
	return inlineJSON(plain(s), s.Extra)
}

func (s AnalyzedDocument) MarshalJSON() ([]byte, error) {
	type plain AnalyzedDocument
	return inlineJSON(plain(s), s.Extra)
}

func (s Calibration) MarshalJSON() ([]byte, error) {
	type plain Calibration
	return inlineJSON(plain(s), s.Extra)
}
