package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain"
)

var (
	ErrTextGenerationUnavailable = errors.New("text generation is not configured")
	ErrTextGenerationFailed      = errors.New("text generation failed")
	ErrReportRequired            = errors.New("report file is required")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

type AuditEntry struct {
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	PatientID    string
	PhaseID      int
	Changes      any
}

type requestIDKey struct{}

// WithRequestID attaches the inbound request id so audit entries can be
// correlated with access logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
