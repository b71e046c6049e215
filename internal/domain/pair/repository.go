package pair

import "context"

type Repository interface {
	Create(ctx context.Context, p *Pair) error

	// GetByID returns ErrPairNotFound if no pair has the id.
	GetByID(ctx context.Context, id string) (*Pair, error)

	Update(ctx context.Context, p *Pair) error

	// List returns all pairs in creation order.
	List(ctx context.Context) ([]*Pair, error)

	// FindByPatient returns the first pair in creation order that contains
	// patientID as donor or recipient, or ErrPairNotFound.
	FindByPatient(ctx context.Context, patientID string) (*Pair, error)
}
