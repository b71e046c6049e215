package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/store"
)

// WorkflowRepository keeps the workflows collection as a map keyed by
// patient id.
type WorkflowRepository struct {
	mu    sync.Mutex
	store store.Store
}

func NewWorkflowRepository(s store.Store) *WorkflowRepository {
	return &WorkflowRepository{store: s}
}

func (r *WorkflowRepository) load(ctx context.Context) (map[string]*workflow.Workflow, error) {
	workflows := map[string]*workflow.Workflow{}
	if err := r.store.ReadAll(ctx, store.CollectionWorkflows, &workflows); err != nil {
		return nil, fmt.Errorf("loading workflows: %w", err)
	}
	return workflows, nil
}

func (r *WorkflowRepository) Get(ctx context.Context, patientID string) (*workflow.Workflow, error) {
	workflows, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	w, ok := workflows[patientID]
	if !ok || w == nil {
		return nil, workflow.ErrWorkflowNotFound
	}
	return w, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, w *workflow.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflows, err := r.load(ctx)
	if err != nil {
		return err
	}
	workflows[w.PatientID] = w
	return r.store.WriteAll(ctx, store.CollectionWorkflows, workflows)
}

func (r *WorkflowRepository) List(ctx context.Context) (map[string]*workflow.Workflow, error) {
	return r.load(ctx)
}
