package workflow

import (
	"fmt"
	"slices"
	"time"

	json "github.com/goccy/go-json"
)

type PhaseID int

const (
	PhaseLabs PhaseID = iota + 1
	PhaseAssessment
	PhaseConsultations
	PhaseLegalClearance
	PhaseHLA
	PhaseFinalReview
	PhaseAdmission
	PhaseSurgery
)

// FirstPairedPhase is the first phase whose data is shared between a donor
// and recipient.
const FirstPairedPhase = PhaseLegalClearance

var phaseNames = map[PhaseID]string{
	PhaseLabs:           "Initial Screening & Labs",
	PhaseAssessment:     "Advanced Assessments",
	PhaseConsultations:  "Consultations",
	PhaseLegalClearance: "Legal Clearance",
	PhaseHLA:            "HLA Typing & Crossmatch",
	PhaseFinalReview:    "Final Review",
	PhaseAdmission:      "Admission",
	PhaseSurgery:        "Surgery",
}

func (id PhaseID) IsValid() bool {
	return id >= PhaseLabs && id <= PhaseSurgery
}

func (id PhaseID) Name() string {
	return phaseNames[id]
}

func (id PhaseID) IsPaired() bool {
	return id >= FirstPairedPhase && id.IsValid()
}

// AllPhases lists phase ids in workflow order.
func AllPhases() []PhaseID {
	return []PhaseID{
		PhaseLabs, PhaseAssessment, PhaseConsultations, PhaseLegalClearance,
		PhaseHLA, PhaseFinalReview, PhaseAdmission, PhaseSurgery,
	}
}

// Status transitions:
//
//	AVAILABLE → IN_PROGRESS | COMPLETED | LOCKED
//	IN_PROGRESS → COMPLETED | AVAILABLE
//	LOCKED → AVAILABLE
//
// COMPLETED is terminal. Nothing in the engine moves a phase on its own.
type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusLocked     Status = "LOCKED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusInProgress, StatusCompleted, StatusLocked:
		return true
	}
	return false
}

var validTransitions = map[Status][]Status{
	StatusAvailable:  {StatusInProgress, StatusCompleted, StatusLocked},
	StatusInProgress: {StatusCompleted, StatusAvailable},
	StatusLocked:     {StatusAvailable},
	StatusCompleted:  {},
}

func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(validTransitions[s], next)
}

type Phase struct {
	ID          PhaseID
	Name        string
	Status      Status
	Progress    int
	LastUpdated time.Time
	Data        Payload
}

func newPhase(id PhaseID, now time.Time) *Phase {
	return &Phase{
		ID:          id,
		Name:        id.Name(),
		Status:      StatusAvailable,
		Progress:    0,
		LastUpdated: now,
		Data:        NewPayload(id),
	}
}

// MergeData shallow-merges patch into the phase data. Keys in patch replace
// existing keys; status and progress are untouched. The phase is unchanged if
// the merged document does not fit the phase's payload shape.
func (p *Phase) MergeData(patch Patch, now time.Time) error {
	merged, err := mergePayload(p.ID, p.Data, patch)
	if err != nil {
		return fmt.Errorf("phase %d: %w", p.ID, err)
	}
	p.Data = merged
	p.LastUpdated = now
	return nil
}

// ReplaceData swaps in a payload built by a typed operation.
func (p *Phase) ReplaceData(data Payload, now time.Time) error {
	if data == nil || !payloadFits(p.ID, data) {
		return fmt.Errorf("phase %d: %w: payload of wrong kind", p.ID, ErrInvalidPayload)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("phase %d: %w: %s", p.ID, ErrInvalidPayload, err.Error())
	}
	p.Data = data
	p.LastUpdated = now
	return nil
}

// SetProgress clamps n to 0–100.
func (p *Phase) SetProgress(n int) {
	p.Progress = max(0, min(100, n))
}

func (p *Phase) TransitionTo(next Status, now time.Time) error {
	if !next.IsValid() {
		return ErrInvalidStatus
	}
	if p.Status != next && !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, p.Status, next)
	}
	p.Status = next
	if next == StatusCompleted {
		p.Progress = 100
	}
	p.LastUpdated = now
	return nil
}

type phaseJSON struct {
	ID          PhaseID         `json:"id"`
	Name        string          `json:"name"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	LastUpdated time.Time       `json:"last_updated"`
	Data        json.RawMessage `json:"data"`
}

func (p *Phase) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(phaseJSON{
		ID:          p.ID,
		Name:        p.Name,
		Status:      p.Status,
		Progress:    p.Progress,
		LastUpdated: p.LastUpdated,
		Data:        data,
	})
}

// UnmarshalJSON decodes data into the payload type registered for the phase id.
func (p *Phase) UnmarshalJSON(b []byte) error {
	var raw phaseJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if !raw.ID.IsValid() {
		return fmt.Errorf("%w: %d", ErrPhaseNotFound, raw.ID)
	}

	data := NewPayload(raw.ID)
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return fmt.Errorf("decoding phase %d data: %w", raw.ID, err)
		}
	}

	*p = Phase{
		ID:          raw.ID,
		Name:        raw.Name,
		Status:      raw.Status,
		Progress:    raw.Progress,
		LastUpdated: raw.LastUpdated,
		Data:        data,
	}
	return nil
}
