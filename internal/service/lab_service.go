package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
)

// labEdit transforms the phase-1 test list.
type labEdit func(tests []labs.TestItem, s labs.Subject) ([]labs.TestItem, error)

func (s *WorkflowService) editLabs(ctx context.Context, patientID string, entry AuditEntry, edit labEdit) (*workflow.Phase, []labs.TestItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, p, err := s.load(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}
	panel, err := labPanel(w)
	if err != nil {
		return nil, nil, err
	}

	tests, err := edit(panel.Tests, subjectOf(p, s.now()))
	if err != nil {
		return nil, nil, err
	}

	ph, err := s.replaceLocked(ctx, w, p, workflow.PhaseLabs, &workflow.LabPanel{Tests: tests}, entry)
	if err != nil {
		return nil, nil, err
	}
	return ph, tests, nil
}

func labPanel(w *workflow.Workflow) (*workflow.LabPanel, error) {
	ph, err := w.Phase(workflow.PhaseLabs)
	if err != nil {
		return nil, err
	}
	panel, ok := ph.Data.(*workflow.LabPanel)
	if !ok {
		return nil, fmt.Errorf("%w: phase %d holds %T", workflow.ErrInvalidPayload, workflow.PhaseLabs, ph.Data)
	}
	return panel, nil
}

func findTest(tests []labs.TestItem, id string) *labs.TestItem {
	for i := range tests {
		if tests[i].ID == id {
			return &tests[i]
		}
	}
	return nil
}

// SyncLabCatalog adds any catalog tests the patient has become eligible for.
// It returns the number of tests added.
func (s *WorkflowService) SyncLabCatalog(ctx context.Context, patientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return 0, err
	}
	return s.syncLabCatalogLocked(ctx, p)
}

func (s *WorkflowService) syncLabCatalogLocked(ctx context.Context, p *patient.Patient) (int, error) {
	now := s.now()
	w, err := s.workflows.Get(ctx, p.ID)
	if errors.Is(err, workflow.ErrWorkflowNotFound) {
		w = workflow.New(p.ID, now)
	} else if err != nil {
		return 0, fmt.Errorf("loading workflow: %w", err)
	}
	panel, err := labPanel(w)
	if err != nil {
		return 0, err
	}

	tests, added := labs.SyncItems(panel.Tests, subjectOf(p, now))
	if added == 0 {
		return 0, nil
	}

	if _, err := s.replaceLocked(ctx, w, p, workflow.PhaseLabs, &workflow.LabPanel{Tests: tests}, AuditEntry{
		Action:  domain.ActionUpdate,
		Changes: map[string]any{"tests_added": added},
	}); err != nil {
		return 0, err
	}

	s.log.Info("lab catalog synced", zap.String("patient_id", p.ID), zap.Int("added", added))
	return added, nil
}

// RecordLabValue stores a result, flags it against the patient's reference
// range and refreshes derived values and phase progress.
func (s *WorkflowService) RecordLabValue(ctx context.Context, patientID, testID, value string) (*workflow.Phase, error) {
	ph, tests, err := s.editLabs(ctx, patientID, AuditEntry{
		Action:  domain.ActionUpdate,
		Changes: map[string]any{"test_id": testID, "value": value},
	}, func(tests []labs.TestItem, sub labs.Subject) ([]labs.TestItem, error) {
		return labs.SetValue(tests, testID, value, sub)
	})
	if err != nil {
		return nil, err
	}

	if t := findTest(tests, testID); t != nil && t.IsAbnormal {
		s.metrics.AbnormalResultsTotal.WithLabelValues(t.Category).Inc()
		s.log.Info("abnormal lab result",
			zap.String("patient_id", patientID),
			zap.String("test", t.Name),
			zap.String("value", value),
		)
	}
	return ph, nil
}

// ToggleAbnormal flips the clinician-controlled abnormal flag of a test.
func (s *WorkflowService) ToggleAbnormal(ctx context.Context, patientID, testID string) (*workflow.Phase, error) {
	ph, _, err := s.editLabs(ctx, patientID, AuditEntry{
		Action:  domain.ActionUpdate,
		Changes: map[string]any{"test_id": testID, "toggle": "is_abnormal"},
	}, func(tests []labs.TestItem, _ labs.Subject) ([]labs.TestItem, error) {
		return labs.ToggleAbnormal(tests, testID)
	})
	return ph, err
}

// ExemptLabTest marks a test not applicable. A non-empty reason is required.
func (s *WorkflowService) ExemptLabTest(ctx context.Context, patientID, testID, reason string) (*workflow.Phase, error) {
	ph, _, err := s.editLabs(ctx, patientID, AuditEntry{
		Action:  domain.ActionExempt,
		Changes: map[string]any{"test_id": testID, "reason": reason},
	}, func(tests []labs.TestItem, _ labs.Subject) ([]labs.TestItem, error) {
		return labs.Exempt(tests, testID, reason)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ExemptionsTotal.Inc()
	return ph, nil
}

// RemoveLabExemption clears an exemption. confirmed must be true.
func (s *WorkflowService) RemoveLabExemption(ctx context.Context, patientID, testID string, confirmed bool) (*workflow.Phase, error) {
	ph, _, err := s.editLabs(ctx, patientID, AuditEntry{
		Action:  domain.ActionUpdate,
		Changes: map[string]any{"test_id": testID, "exemption_removed": true},
	}, func(tests []labs.TestItem, _ labs.Subject) ([]labs.TestItem, error) {
		return labs.RemoveExemption(tests, testID, confirmed)
	})
	return ph, err
}

// AbnormalFindings lists flagged tests with the patient's reference ranges.
func (s *WorkflowService) AbnormalFindings(ctx context.Context, patientID string) ([]labs.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, p, err := s.load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	panel, err := labPanel(w)
	if err != nil {
		return nil, err
	}
	return labs.AbnormalFindings(panel.Tests, subjectOf(p, s.now())), nil
}
