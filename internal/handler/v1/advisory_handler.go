package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
)

type AdvisoryHandler struct {
	svc            *service.AdvisoryService
	dashboard      *service.DashboardService
	maxUploadBytes int64
}

func NewAdvisoryHandler(svc *service.AdvisoryService, dashboard *service.DashboardService, maxUploadBytes int64) *AdvisoryHandler {
	return &AdvisoryHandler{svc: svc, dashboard: dashboard, maxUploadBytes: maxUploadBytes}
}

// Register mounts the text generation routes on limited, which is expected
// to carry a stricter rate limit, and the dashboard on rg.
func (h *AdvisoryHandler) Register(rg, limited *gin.RouterGroup) {
	rg.GET("/dashboard", h.stats)

	limited.POST("/patients/:id/advisory/risk", h.risk)
	limited.POST("/patients/:id/advisory/summary", h.summary)
	limited.POST("/pairs/:id/advisory/summary", h.pairSummary)
	limited.POST("/patients/:id/hla-reports", h.importHLA)
}

type advisoryResponse struct {
	Text string `json:"text"`
}

func (h *AdvisoryHandler) stats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}

func (h *AdvisoryHandler) risk(c *gin.Context) {
	text, err := h.svc.RiskAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, advisoryResponse{Text: text})
}

func (h *AdvisoryHandler) summary(c *gin.Context) {
	text, err := h.svc.EvaluationSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, advisoryResponse{Text: text})
}

func (h *AdvisoryHandler) pairSummary(c *gin.Context) {
	text, err := h.svc.PairSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, advisoryResponse{Text: text})
}

// importHLA takes a multipart upload in the "report" field.
func (h *AdvisoryHandler) importHLA(c *gin.Context) {
	header, err := c.FormFile("report")
	if err != nil {
		respondServiceError(c, service.ErrReportRequired)
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "report exceeds upload limit")
		return
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	res, err := h.svc.ImportHLAReport(c.Request.Context(), c.Param("id"), data, mimeType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}
