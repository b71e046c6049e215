package workflow

import "errors"

var (
	ErrWorkflowNotFound        = errors.New("workflow not found")
	ErrPhaseNotFound           = errors.New("phase not found")
	ErrInvalidStatus           = errors.New("invalid phase status")
	ErrInvalidStatusTransition = errors.New("invalid phase status transition")
	ErrInvalidPayload          = errors.New("invalid phase data")
	ErrConsultationNotFound    = errors.New("consultation not found")
	ErrPhaseNotReady           = errors.New("phase is not ready to complete")
)
