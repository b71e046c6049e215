package workflow

import (
	"fmt"
	"time"
)

type ConsultationStatus string

const (
	ConsultPending     ConsultationStatus = "Pending"
	ConsultCleared     ConsultationStatus = "Cleared"
	ConsultConditional ConsultationStatus = "Conditional"
	ConsultRejected    ConsultationStatus = "Rejected"
)

func (s ConsultationStatus) IsValid() bool {
	switch s {
	case ConsultPending, ConsultCleared, ConsultConditional, ConsultRejected:
		return true
	}
	return false
}

type Consultation struct {
	ID           string             `json:"id"`
	Specialty    string             `json:"specialty"`
	Practitioner string             `json:"practitioner"`
	Date         string             `json:"date"`
	Status       ConsultationStatus `json:"status"`
	Notes        string             `json:"notes"`
}

var defaultSpecialties = []string{
	"Nephrology",
	"Urology",
	"Social Work",
	"Psychology",
	"Dietitian",
	"Financial Coordinator",
}

// DefaultConsultations returns the standard pre-transplant consult list, all
// pending and dated today.
func DefaultConsultations(now time.Time) []Consultation {
	date := now.Format(time.DateOnly)
	out := make([]Consultation, len(defaultSpecialties))
	for i, s := range defaultSpecialties {
		out[i] = Consultation{
			ID:        fmt.Sprintf("c_%d", i),
			Specialty: s,
			Date:      date,
			Status:    ConsultPending,
		}
	}
	return out
}

// ConsultationUpdate carries partial edits to one consultation.
type ConsultationUpdate struct {
	Practitioner *string
	Date         *string
	Status       *ConsultationStatus
	Notes        *string
}

// UpdateConsultation returns a copy of set with the consult edited.
func (c *ConsultationSet) UpdateConsultation(id string, u ConsultationUpdate) (*ConsultationSet, error) {
	next := &ConsultationSet{Consults: make([]Consultation, len(c.Consults))}
	copy(next.Consults, c.Consults)

	for i := range next.Consults {
		if next.Consults[i].ID != id {
			continue
		}
		cons := &next.Consults[i]
		if u.Practitioner != nil {
			cons.Practitioner = *u.Practitioner
		}
		if u.Date != nil {
			if _, err := time.Parse(time.DateOnly, *u.Date); err != nil {
				return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidPayload)
			}
			cons.Date = *u.Date
		}
		if u.Status != nil {
			if !u.Status.IsValid() {
				return nil, fmt.Errorf("%w: invalid consultation status %q", ErrInvalidPayload, *u.Status)
			}
			cons.Status = *u.Status
		}
		if u.Notes != nil {
			cons.Notes = *u.Notes
		}
		return next, nil
	}
	return nil, ErrConsultationNotFound
}
