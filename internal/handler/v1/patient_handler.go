package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
)

type PatientHandler struct {
	svc *service.PatientService
}

func NewPatientHandler(svc *service.PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

func (h *PatientHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/patients", h.create)
	rg.GET("/patients", h.list)
	rg.GET("/patients/:id", h.get)
	rg.PATCH("/patients/:id", h.update)
}

type registerPatientRequest struct {
	MRN            string   `json:"mrn"`
	Name           string   `json:"name"`
	DateOfBirth    string   `json:"date_of_birth"`
	Gender         string   `json:"gender"`
	Type           string   `json:"type"`
	BloodGroup     string   `json:"blood_group"`
	HeightCm       float64  `json:"height_cm"`
	WeightKg       float64  `json:"weight_kg"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email" binding:"omitempty,email"`
	MedicalHistory []string `json:"medical_history"`
}

type updatePatientRequest struct {
	Name           *string   `json:"name"`
	DateOfBirth    *string   `json:"date_of_birth"`
	Gender         *string   `json:"gender"`
	BloodGroup     *string   `json:"blood_group"`
	HeightCm       *float64  `json:"height_cm"`
	WeightKg       *float64  `json:"weight_kg"`
	Phone          *string   `json:"phone"`
	Email          *string   `json:"email" binding:"omitempty,email"`
	MedicalHistory *[]string `json:"medical_history"`
}

// parseDate accepts YYYY-MM-DD. An empty string means unknown.
func parseDate(c *gin.Context, field, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, field+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (h *PatientHandler) create(c *gin.Context) {
	var req registerPatientRequest
	if !bindJSON(c, &req) {
		return
	}
	dob, ok := parseDate(c, "date_of_birth", req.DateOfBirth)
	if !ok {
		return
	}

	p, err := h.svc.Register(c.Request.Context(), &patient.RegisterCommand{
		MRN:            req.MRN,
		Name:           req.Name,
		DateOfBirth:    dob,
		Gender:         patient.Gender(req.Gender),
		Type:           patient.Type(req.Type),
		BloodGroup:     patient.BloodGroup(req.BloodGroup),
		HeightCm:       req.HeightCm,
		WeightKg:       req.WeightKg,
		Phone:          req.Phone,
		Email:          req.Email,
		MedicalHistory: req.MedicalHistory,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *PatientHandler) list(c *gin.Context) {
	patients, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if t := c.Query("type"); t != "" {
		filtered := make([]*patient.Patient, 0, len(patients))
		for _, p := range patients {
			if string(p.Type) == t {
				filtered = append(filtered, p)
			}
		}
		patients = filtered
	}
	respondOK(c, patients)
}

func (h *PatientHandler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) update(c *gin.Context) {
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &patient.UpdateDemographicsCommand{
		Name:           req.Name,
		HeightCm:       req.HeightCm,
		WeightKg:       req.WeightKg,
		Phone:          req.Phone,
		Email:          req.Email,
		MedicalHistory: req.MedicalHistory,
	}
	if req.DateOfBirth != nil {
		dob, ok := parseDate(c, "date_of_birth", *req.DateOfBirth)
		if !ok {
			return
		}
		cmd.DateOfBirth = &dob
	}
	if req.Gender != nil {
		g := patient.Gender(*req.Gender)
		cmd.Gender = &g
	}
	if req.BloodGroup != nil {
		b := patient.BloodGroup(*req.BloodGroup)
		cmd.BloodGroup = &b
	}

	p, err := h.svc.UpdateDemographics(c.Request.Context(), c.Param("id"), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}
