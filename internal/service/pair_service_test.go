package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
)

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.patient.Register(context.Background(), &patient.RegisterCommand{
		DateOfBirth: testNow.AddDate(0, 0, 1),
		Gender:      "Other",
		Type:        "DONOR",
		BloodGroup:  "C+",
		WeightKg:    -1,
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 6)
}

func TestRegisterComputesBMI(t *testing.T) {
	env := newTestEnv(t)
	p := env.register(t, "Jane Smith", patient.TypeDonor, patient.GenderFemale, time.Date(1985, time.August, 20, 0, 0, 0, 0, time.UTC))

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 24.5, p.BMI)
	assert.Equal(t, testNow, p.RegisteredAt)
	assert.NotNil(t, p.MedicalHistory)
}

func TestCreatePairChecksRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.register(t, "Jane Smith", patient.TypeDonor, patient.GenderFemale, time.Date(1985, time.August, 20, 0, 0, 0, 0, time.UTC))
	recipient := env.register(t, "John Doe", patient.TypeRecipient, patient.GenderMale, time.Date(1980, time.May, 15, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		cmd  pair.CreateCommand
		want error
	}{
		{"same patient", pair.CreateCommand{DonorID: donor.ID, RecipientID: donor.ID}, pair.ErrSamePatient},
		{"roles swapped", pair.CreateCommand{DonorID: recipient.ID, RecipientID: donor.ID}, pair.ErrDonorRoleMismatch},
		{"unknown recipient", pair.CreateCommand{DonorID: donor.ID, RecipientID: "nobody"}, patient.ErrPatientNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pair.Create(ctx, &tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	pr, err := env.pair.Create(ctx, &pair.CreateCommand{DonorID: donor.ID, RecipientID: recipient.ID})
	require.NoError(t, err)
	assert.Equal(t, pair.StatusActive, pr.Status)

	// Duplicates are allowed.
	_, err = env.pair.Create(ctx, &pair.CreateCommand{DonorID: donor.ID, RecipientID: recipient.ID})
	require.NoError(t, err)

	pairs, err := env.pair.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestUpdatePairStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _, pr := env.registerPair(t)

	got, err := env.pair.UpdateStatus(ctx, pr.ID, pair.StatusOnHold)
	require.NoError(t, err)
	assert.Equal(t, pair.StatusOnHold, got.Status)

	_, err = env.pair.UpdateStatus(ctx, pr.ID, pair.StatusCompleted)
	require.NoError(t, err)

	_, err = env.pair.UpdateStatus(ctx, pr.ID, pair.StatusActive)
	assert.ErrorIs(t, err, pair.ErrInvalidStatusTransition)

	_, err = env.pair.UpdateStatus(ctx, "missing", pair.StatusActive)
	assert.ErrorIs(t, err, pair.ErrPairNotFound)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, recipient, _ := env.registerPair(t)
	env.register(t, "Robert Brown", patient.TypeRecipient, patient.GenderMale, time.Date(1975, time.February, 10, 0, 0, 0, 0, time.UTC))

	env.completeLabs(t, donor.ID)
	_, err := env.workflow.ApplyPhaseUpdate(ctx, donor.ID, workflow.PhaseAssessment, workflow.Update{
		Data: workflow.Patch{"selected_kidney": workflow.KidneyLeft},
	})
	require.NoError(t, err)
	_, err = env.workflow.CompletePhase(ctx, donor.ID, workflow.PhaseAssessment)
	require.NoError(t, err)
	env.completeLabs(t, recipient.ID)

	stats, err := env.dashboard.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalPatients)
	assert.Equal(t, 1, stats.Donors)
	assert.Equal(t, 2, stats.Recipients)
	assert.Equal(t, 1, stats.ActivePairs)
	assert.Equal(t, 0, stats.CompletedPairs)
	assert.Equal(t, 1, stats.NotStarted)
	require.Len(t, stats.Funnel, 8)
	assert.Equal(t, 1, stats.Funnel[0].Patients)
	assert.Equal(t, 1, stats.Funnel[1].Patients)
	assert.Equal(t, 0, stats.Funnel[2].Patients)
}
