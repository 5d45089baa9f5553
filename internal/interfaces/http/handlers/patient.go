// internal/interfaces/http/handlers/patient.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"gorm.io/gorm"
)

// PatientHandler handles patient registration and visit endpoints
type PatientHandler struct {
	patientService *patient.Service
	config         *config.Config
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(db *gorm.DB, cfg *config.Config) *PatientHandler {
	return &PatientHandler{
		patientService: patient.NewService(db, cfg),
		config:         cfg,
	}
}

// Register handles POST /patients
func (h *PatientHandler) Register(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req patient.RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	registered, err := h.patientService.Register(tenantID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Patient registered successfully",
		"data":    registered,
	})
}

// Get handles GET /patients/:id
func (h *PatientHandler) Get(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pat, err := h.patientService.GetByID(tenantID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Patient retrieved successfully",
		"data":    pat,
	})
}

// GetByMRN handles GET /patients/mrn/:mrn
func (h *PatientHandler) GetByMRN(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	mrn := c.Param("mrn")
	if mrn == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "MRN is required",
		})
		return
	}

	pat, err := h.patientService.GetByMRN(tenantID, mrn)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Patient retrieved successfully",
		"data":    pat,
	})
}

// Update handles PUT /patients/:id
func (h *PatientHandler) Update(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req patient.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.patientService.Update(tenantID, userID, patientID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Patient updated successfully",
		"data":    updated,
	})
}

// OpenVisit handles POST /patients/:id/visits
func (h *PatientHandler) OpenVisit(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req patient.OpenVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	visit, err := h.patientService.OpenVisit(tenantID, userID, patientID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Visit opened successfully",
		"data":    visit,
	})
}

// ListVisits handles GET /patients/:id/visits
func (h *PatientHandler) ListVisits(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	visits, err := h.patientService.ListVisits(tenantID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Visits retrieved successfully",
		"data":    visits,
	})
}

// CloseVisit handles POST /patients/visits/:id/close
func (h *PatientHandler) CloseVisit(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	visitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	visit, err := h.patientService.CloseVisit(tenantID, userID, visitID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Visit closed successfully",
		"data":    visit,
	})
}
