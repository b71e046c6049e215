package workflow

import (
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
)

type Workflow struct {
	PatientID string
	Phases    map[PhaseID]*Phase
}

type workflowJSON struct {
	PatientID string            `json:"patient_id"`
	Phases    map[string]*Phase `json:"phases"`
}

func (w *Workflow) MarshalJSON() ([]byte, error) {
	phases := make(map[string]*Phase, len(w.Phases))
	for id, p := range w.Phases {
		phases[strconv.Itoa(int(id))] = p
	}
	return json.Marshal(workflowJSON{PatientID: w.PatientID, Phases: phases})
}

func (w *Workflow) UnmarshalJSON(b []byte) error {
	var raw workflowJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	phases := make(map[PhaseID]*Phase, len(raw.Phases))
	for key, p := range raw.Phases {
		if p == nil || strconv.Itoa(int(p.ID)) != key {
			return fmt.Errorf("workflow %s: phase key %q does not match its id", raw.PatientID, key)
		}
		phases[p.ID] = p
	}
	*w = Workflow{PatientID: raw.PatientID, Phases: phases}
	return nil
}

// New builds the default workflow: all eight phases AVAILABLE at 0%.
func New(patientID string, now time.Time) *Workflow {
	w := &Workflow{
		PatientID: patientID,
		Phases:    make(map[PhaseID]*Phase, len(phaseNames)),
	}
	for _, id := range AllPhases() {
		w.Phases[id] = newPhase(id, now)
	}
	return w
}

func (w *Workflow) Phase(id PhaseID) (*Phase, error) {
	p, ok := w.Phases[id]
	if !ok || !id.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrPhaseNotFound, id)
	}
	return p, nil
}

// Ordered returns the phases in workflow order.
func (w *Workflow) Ordered() []*Phase {
	out := make([]*Phase, 0, len(w.Phases))
	for _, id := range AllPhases() {
		if p, ok := w.Phases[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// HighestCompleted returns the largest phase id marked COMPLETED, or 0.
func (w *Workflow) HighestCompleted() PhaseID {
	var highest PhaseID
	for id, p := range w.Phases {
		if p.Status == StatusCompleted && id > highest {
			highest = id
		}
	}
	return highest
}

// Owner is the patient context phase rules are evaluated for.
type Owner struct {
	Type    patient.Type
	Subject labs.Subject
}

// Update is a partial change to one phase. Nil fields are left alone.
type Update struct {
	Data     Patch
	Progress *int
	Status   *Status
}

// Apply changes one phase. Data is merged first; lab results whose value
// changed are re-evaluated and derived tests refreshed. An explicit Progress
// wins, otherwise the phase rule recomputes progress after a data change. A
// status change is applied last, and COMPLETED forces 100% once the phase data
// is ready. Apply is all-or-nothing: on error the phase is left as it was.
func (w *Workflow) Apply(id PhaseID, u Update, owner Owner, now time.Time) (*Phase, error) {
	p, err := w.Phase(id)
	if err != nil {
		return nil, err
	}
	next := *p

	if u.Data != nil {
		if err := next.MergeData(u.Data, now); err != nil {
			return nil, err
		}
		if panel, ok := next.Data.(*LabPanel); ok {
			var prev []labs.TestItem
			if old, ok := p.Data.(*LabPanel); ok {
				prev = old.Tests
			}
			next.Data = &LabPanel{Tests: labs.Reevaluate(prev, panel.Tests, owner.Subject)}
		}
	}

	switch {
	case u.Progress != nil:
		next.SetProgress(*u.Progress)
	case u.Data != nil:
		next.refreshProgress(owner.Type)
	}

	if u.Status != nil {
		if *u.Status == StatusCompleted && next.Status != StatusCompleted {
			if err := CanComplete(next.Data, owner.Type); err != nil {
				return nil, fmt.Errorf("phase %d: %w", id, err)
			}
		}
		if err := next.TransitionTo(*u.Status, now); err != nil {
			return nil, err
		}
	}

	next.LastUpdated = now
	*p = next
	return p, nil
}

// Replace swaps in a typed payload and recomputes progress from the phase rule.
func (w *Workflow) Replace(id PhaseID, data Payload, ptype patient.Type, now time.Time) (*Phase, error) {
	p, err := w.Phase(id)
	if err != nil {
		return nil, err
	}
	next := *p
	if err := next.ReplaceData(data, now); err != nil {
		return nil, err
	}
	next.refreshProgress(ptype)
	*p = next
	return p, nil
}

// refreshProgress recomputes progress from the phase rule. A completed phase
// stays at 100%.
func (p *Phase) refreshProgress(ptype patient.Type) {
	if p.Status == StatusCompleted {
		return
	}
	if progress, ok := ComputeProgress(p.Data, ptype); ok {
		p.SetProgress(progress)
	}
}
