// internal/interfaces/http/handlers/audit.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/audit"
	"gorm.io/gorm"
)

// AuditHandler handles audit trail endpoints
type AuditHandler struct {
	auditWriter *audit.Writer
	config      *config.Config
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(db *gorm.DB, cfg *config.Config) *AuditHandler {
	return &AuditHandler{
		auditWriter: audit.NewWriter(db),
		config:      cfg,
	}
}

// EntityTrail handles GET /admin/audit/:entity_type/:id
func (h *AuditHandler) EntityTrail(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	entityType := c.Param("entity_type")
	if entityType == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Entity type is required",
		})
		return
	}

	entityID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	trail, err := h.auditWriter.ForEntity(tenantID, entityType, entityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Audit trail retrieved successfully",
		"data":    trail,
	})
}
