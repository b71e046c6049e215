package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
)

func TestCanComplete(t *testing.T) {
	filled := []labs.TestItem{
		{ID: "t1", Name: labs.TestBUN, Value: "12"},
		{ID: "t2", Name: labs.TestCreatinine, Value: labs.ExemptValue, IsExempt: true, ExemptReason: "Outside lab"},
	}
	partial := []labs.TestItem{
		{ID: "t1", Name: labs.TestBUN, Value: "12"},
		{ID: "t2", Name: labs.TestCreatinine},
	}

	tests := []struct {
		name  string
		data  Payload
		ptype patient.Type
		ready bool
	}{
		{"labs resolved", &LabPanel{Tests: filled}, patient.TypeDonor, true},
		{"labs partial", &LabPanel{Tests: partial}, patient.TypeDonor, false},
		{"labs empty", &LabPanel{}, patient.TypeRecipient, false},
		{"donor without kidney", &Assessment{CardiacClearance: CardiacCleared}, patient.TypeDonor, false},
		{"donor with kidney", &Assessment{SelectedKidney: KidneyLeft}, patient.TypeDonor, true},
		{"recipient without clearance", &Assessment{SelectedKidney: KidneyLeft, ChestXray: ChestXrayNormal}, patient.TypeRecipient, false},
		{"recipient with clearance", &Assessment{CardiacClearance: CardiacConditional}, patient.TypeRecipient, true},
		{"consult pending", &ConsultationSet{Consults: []Consultation{{ID: "c1", Status: ConsultCleared}, {ID: "c2", Status: ConsultPending}}}, patient.TypeDonor, false},
		{"consults decided", &ConsultationSet{Consults: []Consultation{{ID: "c1", Status: ConsultCleared}, {ID: "c2", Status: ConsultRejected}}}, patient.TypeDonor, true},
		{"hla has no rule", &HLATyping{}, patient.TypeDonor, true},
		{"notes have no rule", &ClinicalNotes{}, patient.TypeRecipient, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanComplete(tt.data, tt.ptype)
			if tt.ready {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrPhaseNotReady)
		})
	}
}

func TestApplyRefusesCompletionUntilReady(t *testing.T) {
	w := New("p1", t0)

	_, err := w.Apply(PhaseAssessment, Update{Status: ptr(StatusCompleted)}, donor, t0)
	require.ErrorIs(t, err, ErrPhaseNotReady)
	assert.Equal(t, StatusAvailable, w.Phases[PhaseAssessment].Status)

	p, err := w.Apply(PhaseAssessment, Update{
		Data:   Patch{"selected_kidney": KidneyLeft},
		Status: ptr(StatusCompleted),
	}, donor, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, 100, p.Progress)
}

func TestApplyReevaluatesLabResults(t *testing.T) {
	w := New("p1", t0)
	_, err := w.Replace(PhaseLabs, &LabPanel{Tests: []labs.TestItem{
		{ID: "t1", Name: labs.TestBUN, Category: labs.CategoryRenal},
		{ID: "t2", Name: labs.TestCreatinine, Category: labs.CategoryRenal},
		{ID: "t3", Name: labs.TestBUNCrRatio, Category: labs.CategoryRenal},
	}}, patient.TypeRecipient, t0)
	require.NoError(t, err)

	p, err := w.Apply(PhaseLabs, Update{Data: Patch{"tests": []labs.TestItem{
		{ID: "t1", Name: labs.TestBUN, Category: labs.CategoryRenal, Value: "80"},
		{ID: "t2", Name: labs.TestCreatinine, Category: labs.CategoryRenal, Value: "2.0"},
		{ID: "t3", Name: labs.TestBUNCrRatio, Category: labs.CategoryRenal},
	}}}, recipient, t0)
	require.NoError(t, err)

	tests := p.Data.(*LabPanel).Tests
	assert.True(t, tests[0].IsAbnormal)
	assert.True(t, tests[1].IsAbnormal)
	assert.Equal(t, "40.0", tests[2].Value)
	assert.True(t, tests[2].IsAbnormal)
	assert.Equal(t, 100, p.Progress)
}
