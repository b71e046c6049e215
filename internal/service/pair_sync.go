package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

const (
	syncOutcomeSynced     = "synced"
	syncOutcomeUnpaired   = "unpaired"
	syncOutcomeNoWorkflow = "no_workflow"
	syncOutcomeError      = "error"
)

// PairSynchronizer copies paired-phase data from one member of a pair to the
// other. Only the partner's data and last-updated stamp change; its status and
// progress are left alone. Propagation is one level deep.
type PairSynchronizer struct {
	pairs     pair.Repository
	workflows workflow.Repository
	auditSvc  *AuditService
	metrics   *metrics.Collector
	log       *zap.Logger
	now       Clock
}

func NewPairSynchronizer(pairs pair.Repository, workflows workflow.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger, now Clock) *PairSynchronizer {
	if now == nil {
		now = SystemClock
	}
	return &PairSynchronizer{
		pairs:     pairs,
		workflows: workflows,
		auditSvc:  auditSvc,
		metrics:   m,
		log:       log,
		now:       now,
	}
}

// Sync merges patch into the partner's phase. A patient without a pair, or a
// partner without a workflow, is a no-op. Store failures are logged and
// counted but not returned: the origin update has already been persisted.
func (s *PairSynchronizer) Sync(ctx context.Context, patientID string, phaseID workflow.PhaseID, patch workflow.Patch) {
	outcome := s.sync(ctx, patientID, phaseID, patch)
	s.metrics.PairSyncTotal.WithLabelValues(phaseLabel(phaseID), outcome).Inc()
}

func (s *PairSynchronizer) sync(ctx context.Context, patientID string, phaseID workflow.PhaseID, patch workflow.Patch) string {
	log := s.log.With(zap.String("patient_id", patientID), zap.Int("phase", int(phaseID)))

	p, err := s.pairs.FindByPatient(ctx, patientID)
	if errors.Is(err, pair.ErrPairNotFound) {
		log.Debug("no pair for patient, skipping sync")
		return syncOutcomeUnpaired
	}
	if err != nil {
		log.Error("pair lookup failed", zap.Error(err))
		return syncOutcomeError
	}

	partnerID := p.Partner(patientID)
	w, err := s.workflows.Get(ctx, partnerID)
	if errors.Is(err, workflow.ErrWorkflowNotFound) {
		log.Debug("partner has no workflow, skipping sync", zap.String("partner_id", partnerID))
		return syncOutcomeNoWorkflow
	}
	if err != nil {
		log.Error("partner workflow lookup failed", zap.String("partner_id", partnerID), zap.Error(err))
		return syncOutcomeError
	}

	ph, err := w.Phase(phaseID)
	if err != nil {
		log.Error("partner workflow is missing phase", zap.String("partner_id", partnerID), zap.Error(err))
		return syncOutcomeError
	}

	if patch == nil {
		patch = workflow.Patch{}
	}
	if err := ph.MergeData(patch, s.now()); err != nil {
		log.Warn("patch does not fit partner phase", zap.String("partner_id", partnerID), zap.Error(err))
		return syncOutcomeError
	}

	if err := s.workflows.Save(ctx, w); err != nil {
		log.Error("failed to save partner workflow", zap.String("partner_id", partnerID), zap.Error(err))
		return syncOutcomeError
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionSync,
		ResourceType: "phase",
		ResourceID:   phaseLabel(phaseID),
		PatientID:    partnerID,
		PhaseID:      int(phaseID),
		Changes: map[string]any{
			"source_patient_id": patientID,
			"pair_id":           p.ID,
			"data":              patch,
		},
	})

	log.Debug("phase data synced to partner", zap.String("partner_id", partnerID), zap.String("pair_id", p.ID))
	return syncOutcomeSynced
}
