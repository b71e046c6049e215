package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/store"
)

func TestPatientRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPatientRepository(store.NewMemoryStore())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	p := &patient.Patient{ID: "p1", Name: "John Doe", Type: patient.TypeRecipient}
	require.NoError(t, repo.Create(ctx, p))
	assert.Error(t, repo.Create(ctx, p), "duplicate id")

	p.Name = "John A. Doe"
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "John A. Doe", got.Name)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &patient.Patient{ID: "missing"}), patient.ErrPatientNotFound)
}

func TestPairRepositoryFindByPatientReturnsFirstMatch(t *testing.T) {
	ctx := context.Background()
	repo := NewPairRepository(store.NewMemoryStore())

	require.NoError(t, repo.Create(ctx, &pair.Pair{ID: "pair1", DonorID: "d1", RecipientID: "r1", Status: pair.StatusActive}))
	require.NoError(t, repo.Create(ctx, &pair.Pair{ID: "pair2", DonorID: "d2", RecipientID: "r1", Status: pair.StatusActive}))

	got, err := repo.FindByPatient(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "pair1", got.ID)

	got, err = repo.FindByPatient(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, "pair2", got.ID)

	_, err = repo.FindByPatient(ctx, "nobody")
	assert.ErrorIs(t, err, pair.ErrPairNotFound)
}

func TestWorkflowRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(store.NewMemoryStore())

	_, err := repo.Get(ctx, "p1")
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)

	w := workflow.New("p1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err = w.Apply(workflow.PhaseLegalClearance, workflow.Update{Data: workflow.Patch{"notes": "consent signed"}}, workflow.Owner{Type: patient.TypeDonor}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, w))
	require.NoError(t, repo.Save(ctx, workflow.New("p2", time.Now())))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	notes, ok := got.Phases[workflow.PhaseLegalClearance].Data.(*workflow.ClinicalNotes)
	require.True(t, ok)
	assert.Equal(t, "consent signed", notes.Notes)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryAuditRepositoryListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuditRepository()

	for _, a := range []domain.AuditAction{domain.ActionCreate, domain.ActionUpdate, domain.ActionComplete} {
		require.NoError(t, repo.Create(ctx, &domain.AuditLog{Action: a, PatientID: "p1"}))
	}
	require.NoError(t, repo.Create(ctx, &domain.AuditLog{Action: domain.ActionUpdate, PatientID: "p2"}))

	logs, err := repo.ListByPatient(ctx, "p1", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.ActionComplete, logs[0].Action)
	assert.Equal(t, domain.ActionUpdate, logs[1].Action)
}
