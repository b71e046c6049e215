package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/labs"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/workflow"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
)

type WorkflowHandler struct {
	svc   *service.WorkflowService
	audit *service.AuditService
}

func NewWorkflowHandler(svc *service.WorkflowService, audit *service.AuditService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc, audit: audit}
}

func (h *WorkflowHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/patients/:id/workflow", h.get)
	rg.PATCH("/patients/:id/workflow/phases/:phase", h.updatePhase)
	rg.POST("/patients/:id/workflow/phases/:phase/complete", h.completePhase)
	rg.PATCH("/patients/:id/workflow/consultations/:consult", h.updateConsultation)
	rg.GET("/patients/:id/audit", h.history)

	rg.GET("/labs/catalog", h.catalog)
	rg.POST("/patients/:id/labs/sync", h.syncLabs)
	rg.GET("/patients/:id/labs/findings", h.findings)
	rg.PUT("/patients/:id/labs/:test/value", h.recordValue)
	rg.POST("/patients/:id/labs/:test/toggle-abnormal", h.toggleAbnormal)
	rg.POST("/patients/:id/labs/:test/exemption", h.exempt)
	rg.DELETE("/patients/:id/labs/:test/exemption", h.removeExemption)
}

type phaseUpdateRequest struct {
	Data     map[string]any `json:"data"`
	Progress *int           `json:"progress"`
	Status   *string        `json:"status"`
}

type consultationUpdateRequest struct {
	Practitioner *string `json:"practitioner"`
	Date         *string `json:"date"`
	Status       *string `json:"status"`
	Notes        *string `json:"notes"`
}

type labValueRequest struct {
	Value string `json:"value"`
}

type exemptionRequest struct {
	Reason string `json:"reason"`
}

func (h *WorkflowHandler) get(c *gin.Context) {
	w, err := h.svc.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, w)
}

func (h *WorkflowHandler) updatePhase(c *gin.Context) {
	phaseID, ok := parsePhaseID(c)
	if !ok {
		return
	}
	var req phaseUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	u := workflow.Update{Progress: req.Progress}
	if req.Data != nil {
		u.Data = workflow.Patch(req.Data)
	}
	if req.Status != nil {
		s := workflow.Status(*req.Status)
		u.Status = &s
	}

	ph, err := h.svc.ApplyPhaseUpdate(c.Request.Context(), c.Param("id"), phaseID, u)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ph)
}

func (h *WorkflowHandler) completePhase(c *gin.Context) {
	phaseID, ok := parsePhaseID(c)
	if !ok {
		return
	}
	ph, err := h.svc.CompletePhase(c.Request.Context(), c.Param("id"), phaseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ph)
}

func (h *WorkflowHandler) updateConsultation(c *gin.Context) {
	var req consultationUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	u := workflow.ConsultationUpdate{
		Practitioner: req.Practitioner,
		Date:         req.Date,
		Notes:        req.Notes,
	}
	if req.Status != nil {
		s := workflow.ConsultationStatus(*req.Status)
		u.Status = &s
	}

	ph, err := h.svc.UpdateConsultation(c.Request.Context(), c.Param("id"), c.Param("consult"), u)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ph)
}

func (h *WorkflowHandler) history(c *gin.Context) {
	entries, err := h.audit.History(c.Request.Context(), c.Param("id"), parseQueryInt(c, "limit", 100))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entries)
}

func (h *WorkflowHandler) catalog(c *gin.Context) {
	respondOK(c, labs.Catalog())
}

func (h *WorkflowHandler) syncLabs(c *gin.Context) {
	added, err := h.svc.SyncLabCatalog(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"added": added})
}

func (h *WorkflowHandler) findings(c *gin.Context) {
	findings, err := h.svc.AbnormalFindings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, findings)
}

func (h *WorkflowHandler) recordValue(c *gin.Context) {
	var req labValueRequest
	if !bindJSON(c, &req) {
		return
	}
	ph, err := h.svc.RecordLabValue(c.Request.Context(), c.Param("id"), c.Param("test"), req.Value)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ph)
}

func (h *WorkflowHandler) toggleAbnormal(c *gin.Context) {
	ph, err := h.svc.ToggleAbnormal(c.Request.Context(), c.Param("id"), c.Param("test"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ph)
}

func (h *WorkflowHandler) exempt(c *gin.Context) {
	var req exemptionRequest
	if !bindJSON(c, &req) {
		return
	}
	ph, err := h.svc.ExemptLabTest(c.Request.Context(), c.Param("id"), c.Param("test"), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ph)
}

// removeExemption requires ?confirm=true.
func (h *WorkflowHandler) removeExemption(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	ph, err := h.svc.RemoveLabExemption(c.Request.Context(), c.Param("id"), c.Param("test"), confirmed)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ph)
}
