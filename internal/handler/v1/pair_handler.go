package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/pair"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
)

type PairHandler struct {
	svc *service.PairService
}

func NewPairHandler(svc *service.PairService) *PairHandler {
	return &PairHandler{svc: svc}
}

func (h *PairHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/pairs", h.create)
	rg.GET("/pairs", h.list)
	rg.GET("/pairs/:id", h.get)
	rg.PUT("/pairs/:id/status", h.updateStatus)
}

type createPairRequest struct {
	DonorID     string `json:"donor_id" binding:"required"`
	RecipientID string `json:"recipient_id" binding:"required"`
}

type pairStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *PairHandler) create(c *gin.Context) {
	var req createPairRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), &pair.CreateCommand{
		DonorID:     req.DonorID,
		RecipientID: req.RecipientID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *PairHandler) list(c *gin.Context) {
	pairs, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pairs)
}

func (h *PairHandler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PairHandler) updateStatus(c *gin.Context) {
	var req pairStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), pair.Status(req.Status))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}
