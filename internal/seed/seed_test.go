package seed

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/store"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

func TestRunSeedsOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	log := zap.NewNop()
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	clock := func() time.Time { return time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC) }

	patients := repository.NewPatientRepository(st)
	pairs := repository.NewPairRepository(st)
	workflows := repository.NewWorkflowRepository(st)
	audit := service.NewAuditService(repository.NewMemoryAuditRepository(), m, log)
	t.Cleanup(audit.Shutdown)

	wf := service.NewWorkflowService(patients, workflows, service.NewPairSynchronizer(pairs, workflows, audit, m, log, clock), audit, m, log, clock)
	patientSvc := service.NewPatientService(patients, wf, audit, m, log, clock)
	pairSvc := service.NewPairService(pairs, patients, audit, m, log, clock)

	res, err := Run(ctx, patientSvc, pairSvc, wf, log)
	require.NoError(t, err)
	require.Len(t, res.Patients, 3)
	assert.Equal(t, res.Patients[1].ID, res.Pair.DonorID)
	assert.Equal(t, res.Patients[0].ID, res.Pair.RecipientID)

	w, err := workflows.Get(ctx, res.Patients[1].ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, w.Phases[workflow.PhaseLabs].Status)
	assert.Equal(t, 100, w.Phases[workflow.PhaseLabs].Progress)

	findings, err := wf.AbnormalFindings(ctx, res.Patients[1].ID)
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, workflow.StatusInProgress, w.Phases[workflow.PhaseAssessment].Status)
	assert.Equal(t, 60, w.Phases[workflow.PhaseAssessment].Progress)

	again, err := Run(ctx, patientSvc, pairSvc, wf, log)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
}
