package workflow

import (
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
)

// ComputeProgress applies the phase's completeness rule. ok is false for
// phases whose progress is only ever supplied by the caller.
func ComputeProgress(data Payload, ptype patient.Type) (progress int, ok bool) {
	switch d := data.(type) {
	case *LabPanel:
		return labs.CompletionPercent(d.Tests), true
	case *Assessment:
		if ptype == patient.TypeDonor {
			return donorAssessmentScore(d), true
		}
		return recipientAssessmentScore(d), true
	case *ConsultationSet:
		return consultationProgress(d), true
	case *HLATyping:
		return hlaProgress(d), true
	}
	return 0, false
}

func donorAssessmentScore(a *Assessment) int {
	score := 0
	if a.LeftKidney != nil && a.LeftKidney.Length != "" {
		score += 20
	}
	if a.RightKidney != nil && a.RightKidney.Length != "" {
		score += 20
	}
	if a.GFRTotal != nil && *a.GFRTotal > 0 {
		score += 20
	}
	if a.SelectedKidney != "" {
		score += 20
	}
	if a.SurgicalPlan != "" {
		score += 20
	}
	return min(score, 100)
}

func recipientAssessmentScore(a *Assessment) int {
	score := 0
	if a.CardiacClearance != "" {
		score += 40
	}
	if a.ChestXray != "" {
		score += 30
	}
	if a.DentalClearance {
		score += 30
	}
	return min(score, 100)
}

func consultationProgress(c *ConsultationSet) int {
	if len(c.Consults) == 0 {
		return 0
	}
	done := 0
	for _, cons := range c.Consults {
		if cons.Status != ConsultPending {
			done++
		}
	}
	return percent(done, len(c.Consults))
}

func hlaProgress(h *HLATyping) int {
	alleles := h.Alleles()
	filled := 0
	for _, a := range alleles {
		if a != "" {
			filled++
		}
	}
	return percent(filled, len(alleles))
}

// percent is round(100*n/total) with halves rounded up.
func percent(n, total int) int {
	return (200*n + total) / (2 * total)
}
