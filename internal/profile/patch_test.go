package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestParsePhaseData_JSON(t *testing.T) {
	pd, err := ParsePhaseData([]byte(`{
		"identity": {"role": "Senior PM", "organization": "Acme Corp", "responsibilities": ["roadmap", "stakeholder management"]},
		"meta": {"name": "HACKED", "current_phase": 99, "status": "complete"},
		"unknown": 1
	}`))
	if err != nil {
		t.Fatalf("ParsePhaseData: %v", err)
	}
	if pd.Identity == nil || pd.Identity.Role != "Senior PM" {
		t.Fatalf("Identity = %+v", pd.Identity)
	}
	if len(pd.Identity.Responsibilities) != 2 {
		t.Errorf("Responsibilities = %v", pd.Identity.Responsibilities)
	}
	if got := pd.Sections(); !reflect.DeepEqual(got, []string{"identity"}) {
		t.Errorf("Sections = %v, want [identity]", got)
	}
}

func TestParsePhaseData_YAML(t *testing.T) {
	pd, err := ParsePhaseData([]byte(`
expertise:
  domains:
    - name: Product analytics
      depth: expert
      details: Funnels
work_patterns:
  task_management: Reviews PRs every morning
`))
	if err != nil {
		t.Fatalf("ParsePhaseData: %v", err)
	}
	if pd.Expertise == nil || len(pd.Expertise.Domains) != 1 || pd.Expertise.Domains[0].Depth != DepthExpert {
		t.Fatalf("Expertise = %+v", pd.Expertise)
	}
	if got := pd.Sections(); !reflect.DeepEqual(got, []string{"expertise", "work_patterns"}) {
		t.Errorf("Sections = %v", got)
	}
}

func TestParsePhaseData_Invalid(t *testing.T) {
	for _, in := range []string{`{"identity": `, `[1, 2, 3]`, "- a\n- b\n"} {
		if _, err := ParsePhaseData([]byte(in)); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParsePhaseData(%q) err = %v, want ErrInvalidArgument", in, err)
		}
	}
}

func TestParsePhaseData_Empty(t *testing.T) {
	pd, err := ParsePhaseData([]byte("  \n"))
	if err != nil {
		t.Fatalf("ParsePhaseData: %v", err)
	}
	if len(pd.Sections()) != 0 {
		t.Errorf("Sections = %v, want none", pd.Sections())
	}
}

func TestApplyTo_ReplacesWholesale(t *testing.T) {
	p := Profile{
		Meta:     Meta{Name: "Jane Doe", CurrentPhase: 2},
		Identity: &Identity{Role: "PM", Organization: "Acme", Team: "Platform"},
		Communication: &Communication{
			WritingStyle: "Direct",
		},
	}

	PhaseData{Identity: &Identity{Role: "Director"}}.ApplyTo(&p)

	if p.Identity.Role != "Director" {
		t.Errorf("Role = %q, want Director", p.Identity.Role)
	}
	if p.Identity.Organization != "" || p.Identity.Team != "" {
		t.Errorf("section was deep-merged, got %+v", p.Identity)
	}
	if p.Communication == nil || p.Communication.WritingStyle != "Direct" {
		t.Errorf("sibling section touched: %+v", p.Communication)
	}
	if p.Meta.Name != "Jane Doe" || p.Meta.CurrentPhase != 2 {
		t.Errorf("meta touched: %+v", p.Meta)
	}
}

func TestValidatePhase(t *testing.T) {
	for _, n := range []int{1, 8, 99} {
		if err := ValidatePhase(n); err != nil {
			t.Errorf("ValidatePhase(%d) = %v", n, err)
		}
	}
	for _, n := range []int{0, -1, 100} {
		if err := ValidatePhase(n); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ValidatePhase(%d) = %v, want ErrInvalidArgument", n, err)
		}
	}
}

func TestLookupPhase(t *testing.T) {
	ph, ok := LookupPhase(4)
	if !ok || ph.Section != "expertise" || ph.Title != "Expertise" {
		t.Errorf("LookupPhase(4) = %+v, %v", ph, ok)
	}
	if _, ok := LookupPhase(9); ok {
		t.Error("LookupPhase(9) should not exist")
	}
}

func TestParsePhaseData_KeepsUndeclaredKeys(t *testing.T) {
	inputs := map[string]string{
		"json": `{"identity": {"role": "Engineer", "nickname": "JD", "years_in_role": 4},
			"expertise": {"domains": [{"name": "Go", "depth": "expert", "since": 2012}]}}`,
		"yaml": "identity:\n  role: Engineer\n  nickname: JD\n  years_in_role: 4\n" +
			"expertise:\n  domains:\n    - name: Go\n      depth: expert\n      since: 2012\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			pd, err := ParsePhaseData([]byte(in))
			if err != nil {
				t.Fatalf("ParsePhaseData: %v", err)
			}
			if pd.Identity == nil || pd.Identity.Role != "Engineer" {
				t.Fatalf("Identity = %+v", pd.Identity)
			}
			if got := pd.Identity.Extra["nickname"]; got != "JD" {
				t.Errorf("Extra[nickname] = %v, want JD", got)
			}
			if got := fmt.Sprint(pd.Identity.Extra["years_in_role"]); got != "4" {
				t.Errorf("Extra[years_in_role] = %v, want 4", got)
			}
			if _, ok := pd.Identity.Extra["role"]; ok {
				t.Error("declared field role leaked into Extra")
			}
			if got := fmt.Sprint(pd.Expertise.Domains[0].Extra["since"]); got != "2012" {
				t.Errorf("domain Extra[since] = %v, want 2012", got)
			}
		})
	}
}

func TestParsePhaseData_TypeMismatch(t *testing.T) {
	_, err := ParsePhaseData([]byte(`{"identity": {"responsibilities": {"a": 1}}}`))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSectionJSON_IncludesUndeclaredKeys(t *testing.T) {
	id := &Identity{Role: "Engineer", Extra: map[string]any{"nickname": "JD", "role": "shadowed"}}
	b, err := json.Marshal(Profile{Meta: Meta{Name: "Jane Doe"}, Identity: id})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out struct {
		Identity map[string]any `json:"identity"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Identity["nickname"] != "JD" {
		t.Errorf("identity = %v, want nickname JD", out.Identity)
	}
	if out.Identity["role"] != "Engineer" {
		t.Errorf("role = %v, declared field should win", out.Identity["role"])
	}
}
