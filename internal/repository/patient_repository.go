package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/store"
)

// PatientRepository keeps the patients collection as one ordered list.
type PatientRepository struct {
	mu    sync.Mutex
	store store.Store
}

func NewPatientRepository(s store.Store) *PatientRepository {
	return &PatientRepository{store: s}
}

func (r *PatientRepository) load(ctx context.Context) ([]*patient.Patient, error) {
	var patients []*patient.Patient
	if err := r.store.ReadAll(ctx, store.CollectionPatients, &patients); err != nil {
		return nil, fmt.Errorf("loading patients: %w", err)
	}
	return patients, nil
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	patients, err := r.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range patients {
		if existing.ID == p.ID {
			return fmt.Errorf("patient %s already exists", p.ID)
		}
	}
	return r.store.WriteAll(ctx, store.CollectionPatients, append(patients, p))
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (*patient.Patient, error) {
	patients, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (r *PatientRepository) Update(ctx context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	patients, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range patients {
		if patients[i].ID == p.ID {
			patients[i] = p
			return r.store.WriteAll(ctx, store.CollectionPatients, patients)
		}
	}
	return patient.ErrPatientNotFound
}

func (r *PatientRepository) List(ctx context.Context) ([]*patient.Patient, error) {
	patients, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []*patient.Patient{}
	}
	return patients, nil
}
