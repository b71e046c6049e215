package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

type PatientService struct {
	repo        patient.Repository
	workflowSvc *WorkflowService
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
	now         Clock
}

func NewPatientService(repo patient.Repository, workflowSvc *WorkflowService, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger, now Clock) *PatientService {
	if now == nil {
		now = SystemClock
	}
	return &PatientService{
		repo:        repo,
		workflowSvc: workflowSvc,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
		now:         now,
	}
}

// Register creates the patient and its default workflow with the lab panel
// already matched to the patient's demographics.
func (s *PatientService) Register(ctx context.Context, cmd *patient.RegisterCommand) (*patient.Patient, error) {
	if err := s.validateRegisterCommand(cmd); err != nil {
		return nil, err
	}

	p := &patient.Patient{
		ID:             uuid.NewString(),
		MRN:            strings.TrimSpace(cmd.MRN),
		Name:           strings.TrimSpace(cmd.Name),
		DateOfBirth:    cmd.DateOfBirth,
		Gender:         cmd.Gender,
		Type:           cmd.Type,
		BloodGroup:     cmd.BloodGroup,
		HeightCm:       cmd.HeightCm,
		WeightKg:       cmd.WeightKg,
		Phone:          strings.TrimSpace(cmd.Phone),
		Email:          strings.ToLower(strings.TrimSpace(cmd.Email)),
		MedicalHistory: cmd.MedicalHistory,
		RegisteredAt:   s.now(),
	}
	if p.MedicalHistory == nil {
		p.MedicalHistory = []string{}
	}
	p.RefreshBMI()

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	if err := s.workflowSvc.Initialize(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.PatientsRegisteredTotal.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionCreate,
		ResourceType: "patient",
		ResourceID:   p.ID,
		PatientID:    p.ID,
		Changes:      map[string]any{"type": p.Type, "mrn": p.MRN},
	})

	s.log.Info("patient registered",
		zap.String("patient_id", p.ID),
		zap.String("type", string(p.Type)),
	)

	return p, nil
}

func (s *PatientService) Get(ctx context.Context, id string) (*patient.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PatientService) List(ctx context.Context) ([]*patient.Patient, error) {
	return s.repo.List(ctx)
}

// UpdateDemographics applies partial edits and re-syncs the lab panel, since
// age and gender decide which screening tests apply.
func (s *PatientService) UpdateDemographics(ctx context.Context, id string, cmd *patient.UpdateDemographicsCommand) (*patient.Patient, error) {
	if err := s.validateUpdateCommand(cmd); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cmd.Apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		s.log.Error("failed to update patient", zap.String("patient_id", id), zap.Error(err))
		return nil, fmt.Errorf("updating patient: %w", err)
	}

	added, err := s.workflowSvc.SyncLabCatalog(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionUpdate,
		ResourceType: "patient",
		ResourceID:   id,
		PatientID:    id,
		Changes:      map[string]any{"lab_tests_added": added},
	})

	return p, nil
}

func (s *PatientService) validateRegisterCommand(cmd *patient.RegisterCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(cmd.MRN) == "" {
		errs = append(errs, "mrn is required")
	}
	if cmd.DateOfBirth.After(s.now()) {
		errs = append(errs, patient.ErrInvalidDateOfBirth.Error())
	}
	if !cmd.Gender.IsValid() {
		errs = append(errs, "gender must be Male or Female")
	}
	if !cmd.Type.IsValid() {
		errs = append(errs, "type must be DONOR or RECIPIENT")
	}
	if cmd.BloodGroup != "" && !cmd.BloodGroup.IsValid() {
		errs = append(errs, "blood_group is invalid")
	}
	if cmd.HeightCm < 0 {
		errs = append(errs, "height_cm cannot be negative")
	}
	if cmd.WeightKg < 0 {
		errs = append(errs, "weight_kg cannot be negative")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *PatientService) validateUpdateCommand(cmd *patient.UpdateDemographicsCommand) error {
	var errs []string

	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "" {
		errs = append(errs, "name cannot be blank")
	}
	if cmd.DateOfBirth != nil && cmd.DateOfBirth.After(s.now()) {
		errs = append(errs, patient.ErrInvalidDateOfBirth.Error())
	}
	if cmd.Gender != nil && !cmd.Gender.IsValid() {
		errs = append(errs, "gender must be Male or Female")
	}
	if cmd.BloodGroup != nil && !cmd.BloodGroup.IsValid() {
		errs = append(errs, "blood_group is invalid")
	}
	if cmd.HeightCm != nil && *cmd.HeightCm < 0 {
		errs = append(errs, "height_cm cannot be negative")
	}
	if cmd.WeightKg != nil && *cmd.WeightKg < 0 {
		errs = append(errs, "weight_kg cannot be negative")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
