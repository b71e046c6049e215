package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
)

func intPtr(n int) *int { return &n }

func statusPtr(s workflow.Status) *workflow.Status { return &s }

func phaseOf(t *testing.T, w *workflow.Workflow, id workflow.PhaseID) *workflow.Phase {
	t.Helper()
	ph, err := w.Phase(id)
	require.NoError(t, err)
	return ph
}

func TestRegisterInitializesWorkflow(t *testing.T) {
	env := newTestEnv(t)
	p := env.register(t, "John Doe", patient.TypeRecipient, patient.GenderMale, time.Date(1980, time.May, 15, 0, 0, 0, 0, time.UTC))

	w, err := env.workflows.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, w.Phases, 8)

	for _, ph := range w.Ordered() {
		assert.Equal(t, workflow.StatusAvailable, ph.Status, "phase %d", ph.ID)
		assert.Equal(t, 0, ph.Progress, "phase %d", ph.ID)
	}

	panel := phaseOf(t, w, workflow.PhaseLabs).Data.(*workflow.LabPanel)
	assert.NotEmpty(t, panel.Tests)

	consults := phaseOf(t, w, workflow.PhaseConsultations).Data.(*workflow.ConsultationSet)
	assert.Len(t, consults.Consults, 6)
}

func TestGetWorkflowCreatesLazily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := &patient.Patient{ID: "legacy", Name: "Robert Brown", Type: patient.TypeRecipient, Gender: patient.GenderMale}
	require.NoError(t, env.patients.Create(ctx, p))

	_, err := env.workflows.Get(ctx, p.ID)
	require.ErrorIs(t, err, workflow.ErrWorkflowNotFound)

	first, err := env.workflow.GetWorkflow(ctx, p.ID)
	require.NoError(t, err)
	second, err := env.workflow.GetWorkflow(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t,
		len(phaseOf(t, first, workflow.PhaseLabs).Data.(*workflow.LabPanel).Tests),
		len(phaseOf(t, second, workflow.PhaseLabs).Data.(*workflow.LabPanel).Tests),
	)
}

func TestGetWorkflowUnknownPatient(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.workflow.GetWorkflow(context.Background(), "nobody")
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
}

func TestPairedPhaseDataIsSyncedToPartner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, recipient, _ := env.registerPair(t)

	ph, err := env.workflow.ApplyPhaseUpdate(ctx, recipient.ID, workflow.PhaseFinalReview, workflow.Update{
		Data:     workflow.Patch{"notes": "Cleared by committee"},
		Progress: intPtr(40),
		Status:   statusPtr(workflow.StatusInProgress),
	})
	require.NoError(t, err)
	assert.Equal(t, 40, ph.Progress)
	assert.Equal(t, workflow.StatusInProgress, ph.Status)

	dw, err := env.workflows.Get(ctx, donor.ID)
	require.NoError(t, err)
	partner := phaseOf(t, dw, workflow.PhaseFinalReview)

	assert.Equal(t, "Cleared by committee", partner.Data.(*workflow.ClinicalNotes).Notes)
	assert.Equal(t, workflow.StatusAvailable, partner.Status)
	assert.Equal(t, 0, partner.Progress)
	assert.Equal(t, testNow, partner.LastUpdated)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PairSyncTotal.WithLabelValues("6", syncOutcomeSynced)))
}

func TestHLASyncDoesNotRecomputePartnerProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, recipient, _ := env.registerPair(t)

	ph, err := env.workflow.ApplyPhaseUpdate(ctx, donor.ID, workflow.PhaseHLA, workflow.Update{
		Data: workflow.Patch{"a1": "A*02:01", "a2": "A*24:02", "b1": "B*07:02"},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, ph.Progress)

	rw, err := env.workflows.Get(ctx, recipient.ID)
	require.NoError(t, err)
	partner := phaseOf(t, rw, workflow.PhaseHLA)
	assert.Equal(t, "B*07:02", partner.Data.(*workflow.HLATyping).B1)
	assert.Equal(t, 0, partner.Progress)
}

func TestUnpairedPhasesAreNotSynced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, recipient, _ := env.registerPair(t)

	_, err := env.workflow.ApplyPhaseUpdate(ctx, donor.ID, workflow.PhaseAssessment, workflow.Update{
		Data: workflow.Patch{"surgical_plan": "Laparoscopic left nephrectomy"},
	})
	require.NoError(t, err)

	rw, err := env.workflows.Get(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Empty(t, phaseOf(t, rw, workflow.PhaseAssessment).Data.(*workflow.Assessment).SurgicalPlan)
}

func TestSyncWithoutPairIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	p := env.register(t, "Robert Brown", patient.TypeRecipient, patient.GenderMale, time.Date(1975, time.February, 10, 0, 0, 0, 0, time.UTC))

	_, err := env.workflow.ApplyPhaseUpdate(context.Background(), p.ID, workflow.PhaseLegalClearance, workflow.Update{
		Data: workflow.Patch{"notes": "Consent signed"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PairSyncTotal.WithLabelValues("4", syncOutcomeUnpaired)))
}

func TestSyncSkipsPartnerWithoutWorkflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.register(t, "John Doe", patient.TypeRecipient, patient.GenderMale, time.Date(1980, time.May, 15, 0, 0, 0, 0, time.UTC))

	// Stored directly, so no workflow exists for the donor.
	donor := &patient.Patient{ID: "donor-without-workflow", Name: "Jane Smith", Type: patient.TypeDonor, Gender: patient.GenderFemale}
	require.NoError(t, env.patients.Create(ctx, donor))
	_, err := env.pair.Create(ctx, &pair.CreateCommand{DonorID: donor.ID, RecipientID: recipient.ID})
	require.NoError(t, err)

	_, err = env.workflow.ApplyPhaseUpdate(ctx, recipient.ID, workflow.PhaseLegalClearance, workflow.Update{
		Data: workflow.Patch{"notes": "Consent signed"},
	})
	require.NoError(t, err)

	_, err = env.workflows.Get(ctx, donor.ID)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PairSyncTotal.WithLabelValues("4", syncOutcomeNoWorkflow)))
}

func TestCompletePhase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.register(t, "Robert Brown", patient.TypeRecipient, patient.GenderMale, time.Date(1975, time.February, 10, 0, 0, 0, 0, time.UTC))

	ph, err := env.workflow.CompletePhase(ctx, p.ID, workflow.PhaseHLA)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, ph.Status)
	assert.Equal(t, 100, ph.Progress)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PhaseCompletionsTotal.WithLabelValues("5")))

	// Later data edits keep a completed phase at 100%.
	ph, err = env.workflow.ApplyPhaseUpdate(ctx, p.ID, workflow.PhaseHLA, workflow.Update{Data: workflow.Patch{"a1": "A*01:01"}})
	require.NoError(t, err)
	assert.Equal(t, 100, ph.Progress)

	_, err = env.workflow.ApplyPhaseUpdate(ctx, p.ID, workflow.PhaseHLA, workflow.Update{Status: statusPtr(workflow.StatusAvailable)})
	assert.ErrorIs(t, err, workflow.ErrInvalidStatusTransition)
}

func TestApplyPhaseUpdateRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.register(t, "Robert Brown", patient.TypeRecipient, patient.GenderMale, time.Date(1975, time.February, 10, 0, 0, 0, 0, time.UTC))

	_, err := env.workflow.ApplyPhaseUpdate(ctx, p.ID, workflow.PhaseHLA, workflow.Update{
		Data:     workflow.Patch{"a1": "A*01:01", "favourite_colour": "blue"},
		Progress: intPtr(90),
	})
	require.ErrorIs(t, err, workflow.ErrInvalidPayload)

	w, err := env.workflows.Get(ctx, p.ID)
	require.NoError(t, err)
	ph := phaseOf(t, w, workflow.PhaseHLA)
	assert.Empty(t, ph.Data.(*workflow.HLATyping).A1)
	assert.Equal(t, 0, ph.Progress)
}

func TestApplyPhaseUpdateUnknownPhase(t *testing.T) {
	env := newTestEnv(t)
	p := env.register(t, "Robert Brown", patient.TypeRecipient, patient.GenderMale, time.Date(1975, time.February, 10, 0, 0, 0, 0, time.UTC))

	_, err := env.workflow.ApplyPhaseUpdate(context.Background(), p.ID, workflow.PhaseID(9), workflow.Update{Progress: intPtr(10)})
	assert.ErrorIs(t, err, workflow.ErrPhaseNotFound)
}

func TestUpdateConsultation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.register(t, "John Doe", patient.TypeRecipient, patient.GenderMale, time.Date(1980, time.May, 15, 0, 0, 0, 0, time.UTC))

	cleared := workflow.ConsultCleared
	practitioner := "Dr. Rao"
	ph, err := env.workflow.UpdateConsultation(ctx, p.ID, "c_0", workflow.ConsultationUpdate{
		Practitioner: &practitioner,
		Status:       &cleared,
	})
	require.NoError(t, err)
	assert.Equal(t, 17, ph.Progress)

	set := ph.Data.(*workflow.ConsultationSet)
	assert.Equal(t, "Dr. Rao", set.Consults[0].Practitioner)
	assert.Equal(t, workflow.ConsultCleared, set.Consults[0].Status)

	_, err = env.workflow.UpdateConsultation(ctx, p.ID, "c_99", workflow.ConsultationUpdate{Status: &cleared})
	assert.ErrorIs(t, err, workflow.ErrConsultationNotFound)
}

func TestPhaseUpdatesAreAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, recipient, _ := env.registerPair(t)

	_, err := env.workflow.ApplyPhaseUpdate(ctx, recipient.ID, workflow.PhaseAdmission, workflow.Update{
		Data: workflow.Patch{"notes": "Admitted to ward 4"},
	})
	require.NoError(t, err)
	env.flushAudit()

	entries, err := env.auditRepo.ListByPatient(ctx, donor.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, domain.ActionSync, entries[0].Action)
	assert.Equal(t, int(workflow.PhaseAdmission), entries[0].PhaseID)
	assert.Contains(t, entries[0].Changes, recipient.ID)
}

func TestGenericLabPatchEvaluatesResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.register(t, "John Doe", patient.TypeRecipient, patient.GenderMale, time.Date(1980, time.May, 15, 0, 0, 0, 0, time.UTC))

	ph := labPhase(t, env, p.ID)
	tests := append([]labs.TestItem(nil), ph.Data.(*workflow.LabPanel).Tests...)
	for i := range tests {
		switch tests[i].Name {
		case labs.TestBUN:
			tests[i].Value = "80"
		case labs.TestCreatinine:
			tests[i].Value = "2.0 mg/dL"
		}
	}

	ph, err := env.workflow.ApplyPhaseUpdate(ctx, p.ID, workflow.PhaseLabs, workflow.Update{Data: workflow.Patch{"tests": tests}})
	require.NoError(t, err)

	assert.True(t, testItem(t, ph, labs.TestBUN).IsAbnormal)
	assert.True(t, testItem(t, ph, labs.TestCreatinine).IsAbnormal)
	ratio := testItem(t, ph, labs.TestBUNCrRatio)
	assert.Equal(t, "40.0", ratio.Value)
	assert.True(t, ratio.IsAbnormal)

	findings, err := env.workflow.AbnormalFindings(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, findings, 3)
}

func TestCompletePhaseRequiresReadiness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.register(t, "John Doe", patient.TypeRecipient, patient.GenderMale, time.Date(1980, time.May, 15, 0, 0, 0, 0, time.UTC))

	for _, id := range []workflow.PhaseID{workflow.PhaseLabs, workflow.PhaseAssessment, workflow.PhaseConsultations} {
		_, err := env.workflow.CompletePhase(ctx, p.ID, id)
		assert.ErrorIs(t, err, workflow.ErrPhaseNotReady, "phase %d", id)
	}
	_, err := env.workflow.ApplyPhaseUpdate(ctx, p.ID, workflow.PhaseAssessment, workflow.Update{Status: statusPtr(workflow.StatusCompleted)})
	assert.ErrorIs(t, err, workflow.ErrPhaseNotReady)
	assert.Zero(t, testutil.ToFloat64(env.metrics.PhaseCompletionsTotal.WithLabelValues("2")))

	env.completeLabs(t, p.ID)

	_, err = env.workflow.ApplyPhaseUpdate(ctx, p.ID, workflow.PhaseAssessment, workflow.Update{
		Data: workflow.Patch{"cardiac_clearance": workflow.CardiacCleared},
	})
	require.NoError(t, err)
	ph, err := env.workflow.CompletePhase(ctx, p.ID, workflow.PhaseAssessment)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, ph.Status)

	w, err := env.workflow.GetWorkflow(ctx, p.ID)
	require.NoError(t, err)
	cleared := workflow.ConsultCleared
	for _, c := range phaseOf(t, w, workflow.PhaseConsultations).Data.(*workflow.ConsultationSet).Consults {
		_, err := env.workflow.UpdateConsultation(ctx, p.ID, c.ID, workflow.ConsultationUpdate{Status: &cleared})
		require.NoError(t, err)
	}
	ph, err = env.workflow.CompletePhase(ctx, p.ID, workflow.PhaseConsultations)
	require.NoError(t, err)
	assert.Equal(t, 100, ph.Progress)
}
