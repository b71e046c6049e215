package workflow

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
)

// Payload is the phase-specific data document. The concrete type is fixed by
// the phase id: see NewPayload.
type Payload interface {
	Validate() error
	kind() payloadKind
}

type payloadKind int

const (
	kindLabPanel payloadKind = iota + 1
	kindAssessment
	kindConsultations
	kindHLA
	kindNotes
)

// Patch is a partial data document keyed by JSON field name.
type Patch map[string]any

func NewPayload(id PhaseID) Payload {
	switch id {
	case PhaseLabs:
		return &LabPanel{}
	case PhaseAssessment:
		return &Assessment{}
	case PhaseConsultations:
		return &ConsultationSet{}
	case PhaseHLA:
		return &HLATyping{}
	default:
		return &ClinicalNotes{}
	}
}

func payloadFits(id PhaseID, p Payload) bool {
	return NewPayload(id).kind() == p.kind()
}

// LabPanel holds phase 1 test results.
type LabPanel struct {
	Tests []labs.TestItem `json:"tests"`
}

func (*LabPanel) kind() payloadKind { return kindLabPanel }

func (l *LabPanel) Validate() error {
	seen := make(map[string]struct{}, len(l.Tests))
	for _, t := range l.Tests {
		if t.ID == "" {
			return errors.New("tests: id is required")
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("tests: duplicate id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.IsExempt && (t.ExemptReason == "" || t.Value != labs.ExemptValue) {
			return fmt.Errorf("tests: %s is exempt without a reason or placeholder value", t.ID)
		}
	}
	return nil
}

type KidneyAnatomy struct {
	Length   string `json:"length"`
	Arteries int    `json:"arteries"`
	Veins    int    `json:"veins"`
	Cysts    bool   `json:"cysts"`
	Stones   bool   `json:"stones"`
	Notes    string `json:"notes,omitempty"`
}

const (
	KidneyLeft  = "Left"
	KidneyRight = "Right"

	CardiacPending     = "Pending"
	CardiacCleared     = "Cleared"
	CardiacConditional = "Conditional"

	ChestXrayNormal   = "Normal"
	ChestXrayAbnormal = "Abnormal"
)

// Assessment holds phase 2 data. Donors fill the anatomy and split-function
// fields, recipients the clearance fields.
type Assessment struct {
	LeftKidney       *KidneyAnatomy `json:"left_kidney,omitempty"`
	RightKidney      *KidneyAnatomy `json:"right_kidney,omitempty"`
	GFRLeft          *float64       `json:"gfr_left,omitempty"`
	GFRRight         *float64       `json:"gfr_right,omitempty"`
	GFRTotal         *float64       `json:"gfr_total,omitempty"`
	SurgicalPlan     string         `json:"surgical_plan,omitempty"`
	SelectedKidney   string         `json:"selected_kidney,omitempty"`
	CardiacClearance string         `json:"cardiac_clearance,omitempty"`
	ChestXray        string         `json:"chest_xray,omitempty"`
	DentalClearance  bool           `json:"dental_clearance,omitempty"`
	Notes            string         `json:"notes,omitempty"`
}

func (*Assessment) kind() payloadKind { return kindAssessment }

func (a *Assessment) Validate() error {
	var errs []error
	switch a.SelectedKidney {
	case "", KidneyLeft, KidneyRight:
	default:
		errs = append(errs, fmt.Errorf("selected_kidney must be %s or %s", KidneyLeft, KidneyRight))
	}
	switch a.CardiacClearance {
	case "", CardiacPending, CardiacCleared, CardiacConditional:
	default:
		errs = append(errs, errors.New("cardiac_clearance must be Pending, Cleared or Conditional"))
	}
	switch a.ChestXray {
	case "", ChestXrayNormal, ChestXrayAbnormal:
	default:
		errs = append(errs, errors.New("chest_xray must be Normal or Abnormal"))
	}
	for name, v := range map[string]*float64{"gfr_left": a.GFRLeft, "gfr_right": a.GFRRight, "gfr_total": a.GFRTotal} {
		if v != nil && *v < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative", name))
		}
	}
	return errors.Join(errs...)
}

// ConsultationSet holds phase 3 specialist sign-offs.
type ConsultationSet struct {
	Consults []Consultation `json:"consults"`
}

func (*ConsultationSet) kind() payloadKind { return kindConsultations }

func (c *ConsultationSet) Validate() error {
	for _, cons := range c.Consults {
		if !cons.Status.IsValid() {
			return fmt.Errorf("consults: %s has invalid status %q", cons.ID, cons.Status)
		}
	}
	return nil
}

const (
	RiskIdentical = "Identical"
	RiskLow       = "Low"
	RiskModerate  = "Moderate"
	RiskHigh      = "High"
)

// HLATyping holds phase 5 tissue typing and crossmatch results.
type HLATyping struct {
	A1                 string `json:"a1"`
	A2                 string `json:"a2"`
	B1                 string `json:"b1"`
	B2                 string `json:"b2"`
	DR1                string `json:"dr1"`
	DR2                string `json:"dr2"`
	CrossmatchPositive bool   `json:"crossmatch_positive"`
	DSADetected        bool   `json:"dsa_detected"`
	RiskLevel          string `json:"risk_level,omitempty"`
}

func (*HLATyping) kind() payloadKind { return kindHLA }

func (h *HLATyping) Validate() error {
	switch h.RiskLevel {
	case "", RiskIdentical, RiskLow, RiskModerate, RiskHigh:
		return nil
	}
	return errors.New("risk_level must be Identical, Low, Moderate or High")
}

func (h *HLATyping) Alleles() []string {
	return []string{h.A1, h.A2, h.B1, h.B2, h.DR1, h.DR2}
}

// HLAFieldNames are the patch keys accepted for extracted HLA values.
var HLAFieldNames = []string{"a1", "a2", "b1", "b2", "dr1", "dr2", "crossmatch_positive", "dsa_detected"}

// ClinicalNotes holds free-form phases (legal clearance, final review,
// admission, surgery).
type ClinicalNotes struct {
	Notes     string          `json:"notes"`
	Checklist map[string]bool `json:"checklist,omitempty"`
}

func (*ClinicalNotes) kind() payloadKind { return kindNotes }

func (*ClinicalNotes) Validate() error { return nil }

func mergePayload(id PhaseID, current Payload, patch Patch) (Payload, error) {
	base := map[string]json.RawMessage{}
	if current != nil {
		b, err := json.Marshal(current)
		if err != nil {
			return nil, fmt.Errorf("encoding current data: %w", err)
		}
		if err := json.Unmarshal(b, &base); err != nil {
			return nil, fmt.Errorf("decoding current data: %w", err)
		}
	}

	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %s", ErrInvalidPayload, k, err.Error())
		}
		base[k] = raw
	}

	doc, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encoding merged data: %w", err)
	}

	next := NewPayload(id)
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(next); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	return next, nil
}
