package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
)

type PhaseFunnel struct {
	PhaseID   workflow.PhaseID `json:"phase_id"`
	PhaseName string           `json:"phase_name"`
	Patients  int              `json:"patients"`
}

type DashboardStats struct {
	TotalPatients  int                 `json:"total_patients"`
	Donors         int                 `json:"donors"`
	Recipients     int                 `json:"recipients"`
	PairsByStatus  map[pair.Status]int `json:"pairs_by_status"`
	ActivePairs    int                 `json:"active_pairs"`
	CompletedPairs int                 `json:"completed_pairs"`
	// Funnel counts patients by the highest phase they have completed.
	Funnel []PhaseFunnel `json:"funnel"`
	// NotStarted counts patients with no completed phase.
	NotStarted int `json:"not_started"`
}

type DashboardService struct {
	patients  patient.Repository
	pairs     pair.Repository
	workflows workflow.Repository
}

func NewDashboardService(patients patient.Repository, pairs pair.Repository, workflows workflow.Repository) *DashboardService {
	return &DashboardService{patients: patients, pairs: pairs, workflows: workflows}
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	pairs, err := s.pairs.List(ctx)
	if err != nil {
		return nil, err
	}
	workflows, err := s.workflows.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalPatients: len(patients),
		PairsByStatus: map[pair.Status]int{
			pair.StatusActive:    0,
			pair.StatusOnHold:    0,
			pair.StatusCompleted: 0,
		},
	}

	for _, p := range patients {
		if p.IsDonor() {
			stats.Donors++
		} else {
			stats.Recipients++
		}
	}

	for _, p := range pairs {
		stats.PairsByStatus[p.Status]++
	}
	stats.ActivePairs = stats.PairsByStatus[pair.StatusActive]
	stats.CompletedPairs = stats.PairsByStatus[pair.StatusCompleted]

	counts := make(map[workflow.PhaseID]int)
	for _, p := range patients {
		w, ok := workflows[p.ID]
		if !ok {
			stats.NotStarted++
			continue
		}
		highest := w.HighestCompleted()
		if highest == 0 {
			stats.NotStarted++
			continue
		}
		counts[highest]++
	}

	for _, id := range workflow.AllPhases() {
		stats.Funnel = append(stats.Funnel, PhaseFunnel{
			PhaseID:   id,
			PhaseName: id.Name(),
			Patients:  counts[id],
		})
	}

	return stats, nil
}
