package workflow

import "context"

type Repository interface {
	// Get returns ErrWorkflowNotFound if the patient has no workflow yet.
	Get(ctx context.Context, patientID string) (*Workflow, error)

	// Save inserts or replaces the workflow for w.PatientID.
	Save(ctx context.Context, w *Workflow) error

	// List returns every stored workflow keyed by patient id.
	List(ctx context.Context) (map[string]*Workflow, error)
}
