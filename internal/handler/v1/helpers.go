package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, pair.ErrPairNotFound),
		errors.Is(err, workflow.ErrWorkflowNotFound),
		errors.Is(err, workflow.ErrPhaseNotFound),
		errors.Is(err, workflow.ErrConsultationNotFound),
		errors.Is(err, labs.ErrTestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, workflow.ErrPhaseNotReady):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "PHASE_NOT_READY"})

	case errors.Is(err, workflow.ErrInvalidStatusTransition),
		errors.Is(err, pair.ErrInvalidStatusTransition),
		errors.Is(err, labs.ErrTestExempt),
		errors.Is(err, labs.ErrTestNotExempt):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, workflow.ErrInvalidPayload),
		errors.Is(err, pair.ErrDonorRoleMismatch),
		errors.Is(err, pair.ErrRecipientRoleMismatch):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})

	case errors.Is(err, workflow.ErrInvalidStatus),
		errors.Is(err, pair.ErrInvalidStatus),
		errors.Is(err, pair.ErrSamePatient),
		errors.Is(err, patient.ErrInvalidGender),
		errors.Is(err, patient.ErrInvalidType),
		errors.Is(err, patient.ErrInvalidBloodGroup),
		errors.Is(err, patient.ErrInvalidDateOfBirth),
		errors.Is(err, service.ErrReportRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, labs.ErrExemptionReasonRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "REASON_REQUIRED"})

	case errors.Is(err, labs.ErrConfirmationRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "CONFIRMATION_REQUIRED"})

	case errors.Is(err, service.ErrTextGenerationUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "TEXTGEN_DISABLED"})

	case errors.Is(err, service.ErrTextGenerationFailed):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "text generation failed, try again later",
			Code:  "TEXTGEN_FAILED",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parsePhaseID(c *gin.Context) (workflow.PhaseID, bool) {
	raw := c.Param("phase")
	n, err := strconv.Atoi(raw)
	if err != nil || !workflow.PhaseID(n).IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid phase: must be a number from 1 to 8"})
		return 0, false
	}
	return workflow.PhaseID(n), true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
