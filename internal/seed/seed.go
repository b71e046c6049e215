// Package seed loads a small demonstration dataset: a paired donor and
// recipient part-way through evaluation plus one unpaired recipient.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
)

type Result struct {
	Skipped  bool
	Patients []*patient.Patient
	Pair     *pair.Pair
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var demoPatients = []patient.RegisterCommand{
	{
		MRN: "MRN-001", Name: "John Doe", DateOfBirth: date(1980, time.May, 15),
		Gender: patient.GenderMale, Type: patient.TypeRecipient, BloodGroup: patient.BloodGroupOPos,
		HeightCm: 175, WeightKg: 80, Phone: "555-0101", Email: "john@example.com",
		MedicalHistory: []string{"Hypertension", "CKD Stage 5"},
	},
	{
		MRN: "MRN-002", Name: "Jane Smith", DateOfBirth: date(1985, time.August, 20),
		Gender: patient.GenderFemale, Type: patient.TypeDonor, BloodGroup: patient.BloodGroupOPos,
		HeightCm: 165, WeightKg: 60, Phone: "555-0102", Email: "jane@example.com",
		MedicalHistory: []string{"None"},
	},
	{
		MRN: "MRN-003", Name: "Robert Brown", DateOfBirth: date(1975, time.February, 10),
		Gender: patient.GenderMale, Type: patient.TypeRecipient, BloodGroup: patient.BloodGroupAPos,
		HeightCm: 180, WeightKg: 90, Phone: "555-0103", Email: "bob@example.com",
		MedicalHistory: []string{"Diabetes Type 2"},
	},
}

// Run registers the demo patients, pairs Jane Smith with John Doe and moves
// both through phase 1 with an in-range lab panel. It does nothing when
// patients already exist.
func Run(ctx context.Context, patients *service.PatientService, pairs *service.PairService, workflows *service.WorkflowService, log *zap.Logger) (*Result, error) {
	existing, err := patients.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Info("store already has patients, skipping seed", zap.Int("patients", len(existing)))
		return &Result{Skipped: true}, nil
	}

	res := &Result{}
	for i := range demoPatients {
		p, err := patients.Register(ctx, &demoPatients[i])
		if err != nil {
			return nil, fmt.Errorf("registering %s: %w", demoPatients[i].Name, err)
		}
		res.Patients = append(res.Patients, p)
	}
	recipient, donor := res.Patients[0], res.Patients[1]

	res.Pair, err = pairs.Create(ctx, &pair.CreateCommand{DonorID: donor.ID, RecipientID: recipient.ID})
	if err != nil {
		return nil, fmt.Errorf("creating pair: %w", err)
	}

	inProgress := workflow.StatusInProgress
	for _, step := range []struct {
		patient  *patient.Patient
		progress int
	}{
		{recipient, 40},
		{donor, 60},
	} {
		if err := completeLabs(ctx, workflows, step.patient); err != nil {
			return nil, fmt.Errorf("completing labs for %s: %w", step.patient.Name, err)
		}
		progress := step.progress
		if _, err := workflows.ApplyPhaseUpdate(ctx, step.patient.ID, workflow.PhaseAssessment, workflow.Update{
			Progress: &progress,
			Status:   &inProgress,
		}); err != nil {
			return nil, fmt.Errorf("starting assessment: %w", err)
		}
	}

	log.Info("demo data seeded",
		zap.Int("patients", len(res.Patients)),
		zap.String("pair_id", res.Pair.ID),
	)
	return res, nil
}

// completeLabs records an in-range result for every phase-1 test, then
// completes the phase.
func completeLabs(ctx context.Context, workflows *service.WorkflowService, p *patient.Patient) error {
	w, err := workflows.GetWorkflow(ctx, p.ID)
	if err != nil {
		return err
	}
	ph, err := w.Phase(workflow.PhaseLabs)
	if err != nil {
		return err
	}
	panel, ok := ph.Data.(*workflow.LabPanel)
	if !ok {
		return fmt.Errorf("phase %d holds %T", workflow.PhaseLabs, ph.Data)
	}

	s := labs.Subject{Gender: p.Gender, Age: p.Age(time.Now().UTC())}
	tests := make([]labs.TestItem, len(panel.Tests))
	copy(tests, panel.Tests)
	for i := range tests {
		if def, ok := labs.Lookup(tests[i].Category, tests[i].Name); ok {
			tests[i].Value = def.TypicalValue(s)
		}
	}

	if _, err := workflows.ApplyPhaseUpdate(ctx, p.ID, workflow.PhaseLabs, workflow.Update{
		Data: workflow.Patch{"tests": tests},
	}); err != nil {
		return err
	}
	_, err = workflows.CompletePhase(ctx, p.ID, workflow.PhaseLabs)
	return err
}
