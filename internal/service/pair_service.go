package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

type PairService struct {
	repo     pair.Repository
	patients patient.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
	now      Clock
}

func NewPairService(repo pair.Repository, patients patient.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger, now Clock) *PairService {
	if now == nil {
		now = SystemClock
	}
	return &PairService{
		repo:     repo,
		patients: patients,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
		now:      now,
	}
}

// Create links a donor to a recipient. A patient may appear in more than one
// pair; pair sync uses the first pair found.
func (s *PairService) Create(ctx context.Context, cmd *pair.CreateCommand) (*pair.Pair, error) {
	if cmd.DonorID == cmd.RecipientID {
		return nil, pair.ErrSamePatient
	}

	donor, err := s.patients.GetByID(ctx, cmd.DonorID)
	if err != nil {
		return nil, fmt.Errorf("donor: %w", err)
	}
	if donor.Type != patient.TypeDonor {
		return nil, pair.ErrDonorRoleMismatch
	}

	recipient, err := s.patients.GetByID(ctx, cmd.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	if recipient.Type != patient.TypeRecipient {
		return nil, pair.ErrRecipientRoleMismatch
	}

	p := &pair.Pair{
		ID:          uuid.NewString(),
		DonorID:     donor.ID,
		RecipientID: recipient.ID,
		CreatedAt:   s.now(),
		Status:      pair.StatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create pair", zap.Error(err))
		return nil, fmt.Errorf("creating pair: %w", err)
	}

	s.metrics.PairsCreatedTotal.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionCreate,
		ResourceType: "pair",
		ResourceID:   p.ID,
		Changes:      map[string]any{"donor_id": p.DonorID, "recipient_id": p.RecipientID},
	})

	s.log.Info("pair created",
		zap.String("pair_id", p.ID),
		zap.String("donor_id", p.DonorID),
		zap.String("recipient_id", p.RecipientID),
	)
	return p, nil
}

func (s *PairService) Get(ctx context.Context, id string) (*pair.Pair, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PairService) List(ctx context.Context) ([]*pair.Pair, error) {
	return s.repo.List(ctx)
}

func (s *PairService) UpdateStatus(ctx context.Context, id string, next pair.Status) (*pair.Pair, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := p.Status
	if err := p.TransitionTo(next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("updating pair: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionUpdate,
		ResourceType: "pair",
		ResourceID:   p.ID,
		Changes:      map[string]any{"from": prev, "to": next},
	})
	return p, nil
}
