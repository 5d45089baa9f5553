// internal/interfaces/http/handlers/prescription.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/prescription"
	"gorm.io/gorm"
)

// PrescriptionHandler handles prescription endpoints
type PrescriptionHandler struct {
	prescriptionService *prescription.Service
	config              *config.Config
}

// NewPrescriptionHandler creates a new prescription handler
func NewPrescriptionHandler(db *gorm.DB, cfg *config.Config) *PrescriptionHandler {
	return &PrescriptionHandler{
		prescriptionService: prescription.NewService(db, cfg),
		config:              cfg,
	}
}

// Create handles POST /patients/:id/prescriptions. The patient comes
// from the path, not the body.
func (h *PrescriptionHandler) Create(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		DoctorID uint                                         `json:"doctor_id" binding:"required"`
		VisitID  *uint                                        `json:"visit_id"`
		Notes    string                                       `json:"notes"`
		Items    []prescription.CreatePrescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	presc, err := h.prescriptionService.Create(tenantID, userID, &prescription.CreatePrescriptionRequest{
		PatientID: patientID,
		DoctorID:  body.DoctorID,
		VisitID:   body.VisitID,
		Notes:     body.Notes,
		Items:     body.Items,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Prescription created successfully",
		"data":    presc,
	})
}

// ListByPatient handles GET /patients/:id/prescriptions
func (h *PrescriptionHandler) ListByPatient(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	prescs, err := h.prescriptionService.ListByPatient(tenantID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Prescriptions retrieved successfully",
		"data":    prescs,
	})
}

// Get handles GET /prescriptions/:id
func (h *PrescriptionHandler) Get(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	prescriptionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	presc, err := h.prescriptionService.GetByID(tenantID, prescriptionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Prescription retrieved successfully",
		"data":    presc,
	})
}

// Cancel handles POST /prescriptions/:id/cancel
func (h *PrescriptionHandler) Cancel(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	prescriptionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.prescriptionService.Cancel(tenantID, userID, prescriptionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Prescription cancelled successfully",
	})
}
