package pair

import "time"

// Status transitions:
//
//	Active ↔ OnHold
//	Active → Completed
//	OnHold → Completed
type Status string

const (
	StatusActive    Status = "Active"
	StatusOnHold    Status = "OnHold"
	StatusCompleted Status = "Completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}

var validTransitions = map[Status][]Status{
	StatusActive:    {StatusOnHold, StatusCompleted},
	StatusOnHold:    {StatusActive, StatusCompleted},
	StatusCompleted: {},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Pair links a living donor to the recipient they are being evaluated for.
type Pair struct {
	ID          string    `json:"id"`
	DonorID     string    `json:"donor_id"`
	RecipientID string    `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
	Status      Status    `json:"status"`
}

// Contains reports whether patientID is either side of the pair.
func (p *Pair) Contains(patientID string) bool {
	return p.DonorID == patientID || p.RecipientID == patientID
}

// Partner returns the other member of the pair, or "" when patientID is not in it.
func (p *Pair) Partner(patientID string) string {
	switch patientID {
	case p.DonorID:
		return p.RecipientID
	case p.RecipientID:
		return p.DonorID
	}
	return ""
}

func (p *Pair) TransitionTo(next Status) error {
	if !next.IsValid() {
		return ErrInvalidStatus
	}
	if p.Status == next {
		return nil
	}
	if !p.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	p.Status = next
	return nil
}

type CreateCommand struct {
	DonorID     string
	RecipientID string
}
