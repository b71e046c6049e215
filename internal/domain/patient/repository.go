package patient

import "context"

type Repository interface {
	// Create persists a new patient.
	Create(ctx context.Context, p *Patient) error

	// GetByID returns ErrPatientNotFound if no patient has the id.
	GetByID(ctx context.Context, id string) (*Patient, error)

	// Update replaces the stored record with p.
	Update(ctx context.Context, p *Patient) error

	// List returns all patients in registration order.
	List(ctx context.Context) ([]*Patient, error)
}
