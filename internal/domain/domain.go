package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	ActionCreate   AuditAction = "create"
	ActionUpdate   AuditAction = "update"
	ActionComplete AuditAction = "complete"
	ActionSync     AuditAction = "sync"
	ActionExempt   AuditAction = "exempt"
	ActionImport   AuditAction = "import"
)

// AuditLog records one change to engine state.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index" json:"occurred_at"`

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index" json:"action"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(64);index" json:"resource_id"`

	// Workflow context, empty for patient and pair records
	PatientID string `gorm:"column:patient_id;type:varchar(64);index" json:"patient_id,omitempty"`
	PhaseID   int    `gorm:"column:phase_id" json:"phase_id,omitempty"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index" json:"request_id,omitempty"`
	Changes   string `gorm:"column:changes;type:jsonb" json:"changes,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}
