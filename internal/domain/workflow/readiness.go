package workflow

import (
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
)

// CanComplete reports whether a phase's data allows it to be marked
// COMPLETED. Phases without a rule can always be completed.
//
//	phase 1: every test has a result or a reasoned exemption
//	phase 2: recipients need a cardiac clearance decision, donors a selected kidney
//	phase 3: no consultation is still Pending
func CanComplete(data Payload, ptype patient.Type) error {
	switch d := data.(type) {
	case *LabPanel:
		if pct := labs.CompletionPercent(d.Tests); pct < 100 {
			return fmt.Errorf("%w: lab panel is %d%% complete", ErrPhaseNotReady, pct)
		}
	case *Assessment:
		if ptype == patient.TypeDonor && d.SelectedKidney == "" {
			return fmt.Errorf("%w: no kidney selected for procurement", ErrPhaseNotReady)
		}
		if ptype == patient.TypeRecipient && d.CardiacClearance == "" {
			return fmt.Errorf("%w: cardiac clearance is missing", ErrPhaseNotReady)
		}
	case *ConsultationSet:
		pending := 0
		for _, c := range d.Consults {
			if c.Status == ConsultPending {
				pending++
			}
		}
		if pending > 0 {
			return fmt.Errorf("%w: %d consultation(s) pending", ErrPhaseNotReady, pending)
		}
	}
	return nil
}
