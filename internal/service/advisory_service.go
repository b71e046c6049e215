package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/objectstore"
)

// TextGenerator produces narrative text and structured extractions.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ExtractHLA(ctx context.Context, document []byte, mimeType string) (map[string]any, error)
}

// ReportStore keeps uploaded source documents.
type ReportStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

const (
	featureRisk        = "risk"
	featureSummary     = "summary"
	featurePairSummary = "pair_summary"
	featureHLAExtract  = "hla_extract"
)

type HLAImportResult struct {
	ReportKey string          `json:"report_key"`
	Extracted map[string]any  `json:"extracted"`
	Phase     *workflow.Phase `json:"phase"`
}

// AdvisoryService builds prompts from engine state. Generated text is
// advisory only and never written back, except extracted HLA values which go
// through the normal phase update path.
type AdvisoryService struct {
	generator   TextGenerator
	reports     ReportStore
	patients    patient.Repository
	pairs       pair.Repository
	workflowSvc *WorkflowService
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
	now         Clock
}

// NewAdvisoryService accepts a nil generator; every call then returns
// ErrTextGenerationUnavailable.
func NewAdvisoryService(
	generator TextGenerator,
	reports ReportStore,
	patients patient.Repository,
	pairs pair.Repository,
	workflowSvc *WorkflowService,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
	now Clock,
) *AdvisoryService {
	if now == nil {
		now = SystemClock
	}
	return &AdvisoryService{
		generator:   generator,
		reports:     reports,
		patients:    patients,
		pairs:       pairs,
		workflowSvc: workflowSvc,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
		now:         now,
	}
}

func (s *AdvisoryService) generate(ctx context.Context, feature, prompt string) (string, error) {
	if s.generator == nil {
		return "", ErrTextGenerationUnavailable
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, prompt)
	s.metrics.TextGenDuration.WithLabelValues(feature).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.TextGenRequestsTotal.WithLabelValues(feature, "error").Inc()
		s.log.Warn("text generation failed", zap.String("feature", feature), zap.Error(err))
		return "", fmt.Errorf("%w: %s", ErrTextGenerationFailed, err.Error())
	}
	s.metrics.TextGenRequestsTotal.WithLabelValues(feature, "ok").Inc()
	return strings.TrimSpace(text), nil
}

func historyLine(p *patient.Patient) string {
	if len(p.MedicalHistory) == 0 {
		return "none recorded"
	}
	return strings.Join(p.MedicalHistory, ", ")
}

// RiskAssessment asks for a Low/Moderate/High risk rating with supporting
// points, based on age, BMI and history.
func (s *AdvisoryService) RiskAssessment(ctx context.Context, patientID string) (string, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Analyze the following kidney transplant patient profile and provide a brief, qualitative risk assessment (Low, Moderate, High) with 3-4 bullet points explaining the reasoning.
Focus on BMI, age, and medical history.

Patient: %s (%s)
Age: %d
BMI: %.1f
History: %s`, p.Name, p.Type, p.Age(s.now()), p.BMI, historyLine(p))

	return s.generate(ctx, featureRisk, prompt)
}

// EvaluationSummary asks for a short clinical summary of workflow progress.
func (s *AdvisoryService) EvaluationSummary(ctx context.Context, patientID string) (string, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}
	w, err := s.workflowSvc.GetWorkflow(ctx, patientID)
	if err != nil {
		return "", err
	}

	var phases strings.Builder
	for _, ph := range w.Ordered() {
		fmt.Fprintf(&phases, "Phase %d (%s): %s - %d%%\n", ph.ID, ph.Name, ph.Status, ph.Progress)
	}

	prompt := fmt.Sprintf(`Generate a professional clinical summary for a kidney transplant evaluation.
Patient: %s (%s)
Current Status:
%s
Highlight any completed phases and suggest next steps. Keep it under 150 words.`, p.Name, p.Type, phases.String())

	return s.generate(ctx, featureSummary, prompt)
}

// PairSummary asks for a multidisciplinary meeting summary of a pair.
func (s *AdvisoryService) PairSummary(ctx context.Context, pairID string) (string, error) {
	pr, err := s.pairs.GetByID(ctx, pairID)
	if err != nil {
		return "", err
	}
	donor, err := s.patients.GetByID(ctx, pr.DonorID)
	if err != nil {
		return "", fmt.Errorf("donor: %w", err)
	}
	recipient, err := s.patients.GetByID(ctx, pr.RecipientID)
	if err != nil {
		return "", fmt.Errorf("recipient: %w", err)
	}
	dw, err := s.workflowSvc.GetWorkflow(ctx, donor.ID)
	if err != nil {
		return "", err
	}
	rw, err := s.workflowSvc.GetWorkflow(ctx, recipient.ID)
	if err != nil {
		return "", err
	}

	now := s.now()
	status := func(w *workflow.Workflow, id workflow.PhaseID) workflow.Status {
		if ph, err := w.Phase(id); err == nil {
			return ph.Status
		}
		return ""
	}

	prompt := fmt.Sprintf(`Create a structured clinical summary for a Donor-Recipient pair for a multidisciplinary team meeting.

Donor: %s (Age: %d, BMI: %.1f, Blood group: %s)
Recipient: %s (Age: %d, Blood group: %s)

Donor Progress: Phase 1 %s, Phase 2 %s
Recipient Progress: Phase 1 %s, Phase 2 %s
Pair Phase 5 (HLA): %s

Format with Markdown headers: ## Overall Status, ## Key Concerns, ## Next Steps.`,
		donor.Name, donor.Age(now), donor.BMI, donor.BloodGroup,
		recipient.Name, recipient.Age(now), recipient.BloodGroup,
		status(dw, workflow.PhaseLabs), status(dw, workflow.PhaseAssessment),
		status(rw, workflow.PhaseLabs), status(rw, workflow.PhaseAssessment),
		status(dw, workflow.PhaseHLA),
	)

	return s.generate(ctx, featurePairSummary, prompt)
}

// ImportHLAReport stores the uploaded report, extracts allele and crossmatch
// fields from it and pre-fills phase 5. The phase is updated through the
// regular update path, so the values reach the partner too. On any extraction
// failure the workflow is left untouched.
func (s *AdvisoryService) ImportHLAReport(ctx context.Context, patientID string, document []byte, mimeType string) (*HLAImportResult, error) {
	if len(document) == 0 {
		return nil, ErrReportRequired
	}
	if s.generator == nil {
		return nil, ErrTextGenerationUnavailable
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	key := objectstore.ReportKey(patientID, document)
	if s.reports != nil {
		if err := s.reports.Put(ctx, key, document, mimeType); err != nil {
			s.log.Error("failed to store HLA report", zap.String("patient_id", patientID), zap.Error(err))
			return nil, fmt.Errorf("storing report: %w", err)
		}
	}

	start := time.Now()
	raw, err := s.generator.ExtractHLA(ctx, document, mimeType)
	s.metrics.TextGenDuration.WithLabelValues(featureHLAExtract).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.TextGenRequestsTotal.WithLabelValues(featureHLAExtract, "error").Inc()
		s.log.Warn("HLA extraction failed", zap.String("patient_id", patientID), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrTextGenerationFailed, err.Error())
	}
	s.metrics.TextGenRequestsTotal.WithLabelValues(featureHLAExtract, "ok").Inc()

	patch := workflow.Patch{}
	for k, v := range raw {
		if slices.Contains(workflow.HLAFieldNames, k) && v != nil {
			patch[k] = v
		}
	}

	ph, err := s.workflowSvc.ApplyPhaseUpdate(ctx, patientID, workflow.PhaseHLA, workflow.Update{Data: patch})
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionImport,
		ResourceType: "hla_report",
		ResourceID:   key,
		PatientID:    patientID,
		PhaseID:      int(workflow.PhaseHLA),
		Changes:      patch,
	})

	return &HLAImportResult{ReportKey: key, Extracted: patch, Phase: ph}, nil
}
