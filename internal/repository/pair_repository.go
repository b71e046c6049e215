package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/store"
)

type PairRepository struct {
	mu    sync.Mutex
	store store.Store
}

func NewPairRepository(s store.Store) *PairRepository {
	return &PairRepository{store: s}
}

func (r *PairRepository) load(ctx context.Context) ([]*pair.Pair, error) {
	var pairs []*pair.Pair
	if err := r.store.ReadAll(ctx, store.CollectionPairs, &pairs); err != nil {
		return nil, fmt.Errorf("loading pairs: %w", err)
	}
	return pairs, nil
}

func (r *PairRepository) Create(ctx context.Context, p *pair.Pair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs, err := r.load(ctx)
	if err != nil {
		return err
	}
	return r.store.WriteAll(ctx, store.CollectionPairs, append(pairs, p))
}

func (r *PairRepository) GetByID(ctx context.Context, id string) (*pair.Pair, error) {
	pairs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, pair.ErrPairNotFound
}

func (r *PairRepository) Update(ctx context.Context, p *pair.Pair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range pairs {
		if pairs[i].ID == p.ID {
			pairs[i] = p
			return r.store.WriteAll(ctx, store.CollectionPairs, pairs)
		}
	}
	return pair.ErrPairNotFound
}

func (r *PairRepository) List(ctx context.Context) ([]*pair.Pair, error) {
	pairs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if pairs == nil {
		pairs = []*pair.Pair{}
	}
	return pairs, nil
}

func (r *PairRepository) FindByPatient(ctx context.Context, patientID string) (*pair.Pair, error) {
	pairs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if p.Contains(patientID) {
			return p, nil
		}
	}
	return nil, pair.ErrPairNotFound
}
