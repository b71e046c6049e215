package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service")

// Clock returns the engine's notion of now. Ages and timestamps are computed
// from it.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// WorkflowService owns every workflow mutation. All writes are serialised
// behind one mutex; the engine is single-writer.
type WorkflowService struct {
	mu        sync.Mutex
	patients  patient.Repository
	workflows workflow.Repository
	pairSync  *PairSynchronizer
	auditSvc  *AuditService
	metrics   *metrics.Collector
	log       *zap.Logger
	now       Clock
}

func NewWorkflowService(
	patients patient.Repository,
	workflows workflow.Repository,
	pairSync *PairSynchronizer,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
	now Clock,
) *WorkflowService {
	if now == nil {
		now = SystemClock
	}
	return &WorkflowService{
		patients:  patients,
		workflows: workflows,
		pairSync:  pairSync,
		auditSvc:  auditSvc,
		metrics:   m,
		log:       log,
		now:       now,
	}
}

func subjectOf(p *patient.Patient, now time.Time) labs.Subject {
	return labs.Subject{Gender: p.Gender, Age: p.Age(now)}
}

func ownerOf(p *patient.Patient, now time.Time) workflow.Owner {
	return workflow.Owner{Type: p.Type, Subject: subjectOf(p, now)}
}

func phaseLabel(id workflow.PhaseID) string {
	return strconv.Itoa(int(id))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetWorkflow returns the patient's workflow, creating the default one on
// first access. The lab panel is synced with the catalog and the default
// consultations are seeded before returning.
func (s *WorkflowService) GetWorkflow(ctx context.Context, patientID string) (w *workflow.Workflow, err error) {
	ctx, span := tracer.Start(ctx, "WorkflowService.GetWorkflow",
		trace.WithAttributes(attribute.String("patient.id", patientID)))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, _, err = s.load(ctx, patientID)
	return w, err
}

// Initialize creates and prepares the workflow for a newly registered patient.
func (s *WorkflowService) Initialize(ctx context.Context, p *patient.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, err := s.workflows.Get(ctx, p.ID)
	if errors.Is(err, workflow.ErrWorkflowNotFound) {
		w = workflow.New(p.ID, now)
	} else if err != nil {
		return fmt.Errorf("loading workflow: %w", err)
	}
	prepare(w, p, now)

	if err := s.workflows.Save(ctx, w); err != nil {
		s.log.Error("failed to initialize workflow", zap.String("patient_id", p.ID), zap.Error(err))
		return fmt.Errorf("saving workflow: %w", err)
	}
	return nil
}

// load fetches the patient and its workflow, creating and preparing the
// workflow if needed. Callers hold s.mu.
func (s *WorkflowService) load(ctx context.Context, patientID string) (*workflow.Workflow, *patient.Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	w, err := s.workflows.Get(ctx, patientID)
	created := false
	switch {
	case errors.Is(err, workflow.ErrWorkflowNotFound):
		w = workflow.New(patientID, now)
		created = true
	case err != nil:
		return nil, nil, fmt.Errorf("loading workflow: %w", err)
	}

	if prepare(w, p, now) || created {
		if err := s.workflows.Save(ctx, w); err != nil {
			return nil, nil, fmt.Errorf("saving workflow: %w", err)
		}
		if created {
			s.log.Info("workflow created", zap.String("patient_id", patientID))
		}
	}
	return w, p, nil
}

// prepare syncs the lab panel with the catalog and seeds the default
// consultations. It reports whether anything changed.
func prepare(w *workflow.Workflow, p *patient.Patient, now time.Time) bool {
	changed := false

	if ph, err := w.Phase(workflow.PhaseLabs); err == nil {
		panel, _ := ph.Data.(*workflow.LabPanel)
		if panel == nil {
			panel = &workflow.LabPanel{}
		}
		tests, added := labs.SyncItems(panel.Tests, subjectOf(p, now))
		if added > 0 {
			if _, err := w.Replace(workflow.PhaseLabs, &workflow.LabPanel{Tests: tests}, p.Type, now); err == nil {
				changed = true
			}
		}
	}

	if ph, err := w.Phase(workflow.PhaseConsultations); err == nil {
		set, _ := ph.Data.(*workflow.ConsultationSet)
		if set == nil || len(set.Consults) == 0 {
			seeded := &workflow.ConsultationSet{Consults: workflow.DefaultConsultations(now)}
			if _, err := w.Replace(workflow.PhaseConsultations, seeded, p.Type, now); err == nil {
				changed = true
			}
		}
	}

	return changed
}

// ApplyPhaseUpdate merges data, sets progress and status on one phase,
// persists the workflow and, for paired phases, forwards the data patch to the
// partner's workflow.
func (s *WorkflowService) ApplyPhaseUpdate(ctx context.Context, patientID string, phaseID workflow.PhaseID, u workflow.Update) (ph *workflow.Phase, err error) {
	ctx, span := tracer.Start(ctx, "WorkflowService.ApplyPhaseUpdate",
		trace.WithAttributes(
			attribute.String("patient.id", patientID),
			attribute.Int("phase.id", int(phaseID)),
		))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLocked(ctx, patientID, phaseID, u, domain.ActionUpdate)
}

// CompletePhase marks the phase COMPLETED at 100%. Phases with a readiness
// rule return workflow.ErrPhaseNotReady until their data allows it.
func (s *WorkflowService) CompletePhase(ctx context.Context, patientID string, phaseID workflow.PhaseID) (*workflow.Phase, error) {
	status := workflow.StatusCompleted

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLocked(ctx, patientID, phaseID, workflow.Update{Status: &status}, domain.ActionComplete)
}

func (s *WorkflowService) applyLocked(ctx context.Context, patientID string, phaseID workflow.PhaseID, u workflow.Update, action domain.AuditAction) (*workflow.Phase, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	w, err := s.workflows.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	before, err := w.Phase(phaseID)
	if err != nil {
		return nil, err
	}
	wasCompleted := before.Status == workflow.StatusCompleted

	now := s.now()
	ph, err := w.Apply(phaseID, u, ownerOf(p, now), now)
	if err != nil {
		return nil, err
	}

	if err := s.workflows.Save(ctx, w); err != nil {
		s.log.Error("failed to save workflow",
			zap.String("patient_id", patientID),
			zap.Int("phase", int(phaseID)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("saving workflow: %w", err)
	}

	s.metrics.PhaseUpdatesTotal.WithLabelValues(phaseLabel(phaseID), string(p.Type)).Inc()
	if !wasCompleted && ph.Status == workflow.StatusCompleted {
		s.metrics.PhaseCompletionsTotal.WithLabelValues(phaseLabel(phaseID)).Inc()
		action = domain.ActionComplete
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       action,
		ResourceType: "phase",
		ResourceID:   phaseLabel(phaseID),
		PatientID:    patientID,
		PhaseID:      int(phaseID),
		Changes: map[string]any{
			"data":     u.Data,
			"progress": ph.Progress,
			"status":   ph.Status,
		},
	})

	s.log.Debug("phase updated",
		zap.String("patient_id", patientID),
		zap.Int("phase", int(phaseID)),
		zap.String("status", string(ph.Status)),
		zap.Int("progress", ph.Progress),
	)

	if phaseID.IsPaired() {
		s.pairSync.Sync(ctx, patientID, phaseID, u.Data)
	}

	return ph, nil
}

// replaceLocked swaps in a typed payload built by a phase-specific operation
// and persists the workflow. Callers hold s.mu.
func (s *WorkflowService) replaceLocked(ctx context.Context, w *workflow.Workflow, p *patient.Patient, phaseID workflow.PhaseID, data workflow.Payload, entry AuditEntry) (*workflow.Phase, error) {
	ph, err := w.Replace(phaseID, data, p.Type, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.workflows.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("saving workflow: %w", err)
	}

	s.metrics.PhaseUpdatesTotal.WithLabelValues(phaseLabel(phaseID), string(p.Type)).Inc()

	entry.ResourceType = "phase"
	entry.ResourceID = phaseLabel(phaseID)
	entry.PatientID = p.ID
	entry.PhaseID = int(phaseID)
	s.auditSvc.LogAsync(ctx, entry)

	return ph, nil
}

// UpdateConsultation edits one phase-3 consult and recomputes phase progress.
func (s *WorkflowService) UpdateConsultation(ctx context.Context, patientID, consultID string, u workflow.ConsultationUpdate) (*workflow.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, p, err := s.load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	ph, err := w.Phase(workflow.PhaseConsultations)
	if err != nil {
		return nil, err
	}
	set, ok := ph.Data.(*workflow.ConsultationSet)
	if !ok {
		return nil, fmt.Errorf("%w: phase %d holds %T", workflow.ErrInvalidPayload, workflow.PhaseConsultations, ph.Data)
	}

	next, err := set.UpdateConsultation(consultID, u)
	if err != nil {
		return nil, err
	}

	return s.replaceLocked(ctx, w, p, workflow.PhaseConsultations, next, AuditEntry{
		Action:  domain.ActionUpdate,
		Changes: map[string]any{"consult_id": consultID},
	})
}

// ListWorkflows returns every stored workflow keyed by patient id.
func (s *WorkflowService) ListWorkflows(ctx context.Context) (map[string]*workflow.Workflow, error) {
	return s.workflows.List(ctx)
}
