package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/store"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/objectstore"
)

var testNow = time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type testEnv struct {
	patients  *repository.PatientRepository
	pairs     *repository.PairRepository
	workflows *repository.WorkflowRepository
	auditRepo *repository.MemoryAuditRepository
	reports   *objectstore.MemoryStore
	metrics   *metrics.Collector

	audit     *AuditService
	workflow  *WorkflowService
	patient   *PatientService
	pair      *PairService
	dashboard *DashboardService

	flushOnce sync.Once
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	log := zap.NewNop()
	m := metrics.NewCollector("test", prometheus.NewRegistry())

	env := &testEnv{
		patients:  repository.NewPatientRepository(st),
		pairs:     repository.NewPairRepository(st),
		workflows: repository.NewWorkflowRepository(st),
		auditRepo: repository.NewMemoryAuditRepository(),
		reports:   objectstore.NewMemoryStore(),
		metrics:   m,
	}

	env.audit = NewAuditService(env.auditRepo, m, log)
	pairSync := NewPairSynchronizer(env.pairs, env.workflows, env.audit, m, log, fixedClock)
	env.workflow = NewWorkflowService(env.patients, env.workflows, pairSync, env.audit, m, log, fixedClock)
	env.patient = NewPatientService(env.patients, env.workflow, env.audit, m, log, fixedClock)
	env.pair = NewPairService(env.pairs, env.patients, env.audit, m, log, fixedClock)
	env.dashboard = NewDashboardService(env.patients, env.pairs, env.workflows)

	t.Cleanup(env.flushAudit)
	return env
}

// flushAudit drains the async audit writer. Audit is unusable afterwards.
func (e *testEnv) flushAudit() {
	e.flushOnce.Do(e.audit.Shutdown)
}

func (e *testEnv) advisory(gen TextGenerator) *AdvisoryService {
	return NewAdvisoryService(gen, e.reports, e.patients, e.pairs, e.workflow, e.audit, e.metrics, zap.NewNop(), fixedClock)
}

func (e *testEnv) register(t *testing.T, name string, ptype patient.Type, gender patient.Gender, dob time.Time) *patient.Patient {
	t.Helper()
	p, err := e.patient.Register(context.Background(), &patient.RegisterCommand{
		MRN:         "MRN-" + name,
		Name:        name,
		DateOfBirth: dob,
		Gender:      gender,
		Type:        ptype,
		BloodGroup:  patient.BloodGroupOPos,
		HeightCm:    175,
		WeightKg:    75,
	})
	require.NoError(t, err)
	return p
}

// registerPair creates a donor, a recipient and the pair linking them.
func (e *testEnv) registerPair(t *testing.T) (donor, recipient *patient.Patient, pr *pair.Pair) {
	t.Helper()
	donor = e.register(t, "Jane Smith", patient.TypeDonor, patient.GenderFemale, time.Date(1985, time.August, 20, 0, 0, 0, 0, time.UTC))
	recipient = e.register(t, "John Doe", patient.TypeRecipient, patient.GenderMale, time.Date(1980, time.May, 15, 0, 0, 0, 0, time.UTC))

	pr, err := e.pair.Create(context.Background(), &pair.CreateCommand{DonorID: donor.ID, RecipientID: recipient.ID})
	require.NoError(t, err)
	return donor, recipient, pr
}

// completeLabs enters an in-range result for every phase-1 test through a
// generic phase update, then completes the phase.
func (e *testEnv) completeLabs(t *testing.T, patientID string) {
	t.Helper()
	ctx := context.Background()

	p, err := e.patients.GetByID(ctx, patientID)
	require.NoError(t, err)
	w, err := e.workflow.GetWorkflow(ctx, patientID)
	require.NoError(t, err)
	ph, err := w.Phase(workflow.PhaseLabs)
	require.NoError(t, err)

	s := subjectOf(p, testNow)
	tests := append([]labs.TestItem(nil), ph.Data.(*workflow.LabPanel).Tests...)
	for i := range tests {
		if def, ok := labs.Lookup(tests[i].Category, tests[i].Name); ok {
			tests[i].Value = def.TypicalValue(s)
		}
	}

	_, err = e.workflow.ApplyPhaseUpdate(ctx, patientID, workflow.PhaseLabs, workflow.Update{Data: workflow.Patch{"tests": tests}})
	require.NoError(t, err)
	_, err = e.workflow.CompletePhase(ctx, patientID, workflow.PhaseLabs)
	require.NoError(t, err)
}
