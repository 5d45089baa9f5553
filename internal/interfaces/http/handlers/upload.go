// internal/interfaces/http/handlers/upload.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/upload"
	"gorm.io/gorm"
)

// UploadHandler handles attachment endpoints
type UploadHandler struct {
	uploadService *upload.Service
	config        *config.Config
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(db *gorm.DB, cfg *config.Config) *UploadHandler {
	return &UploadHandler{
		uploadService: upload.NewService(db, cfg),
		config:        cfg,
	}
}

// Upload handles POST /uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	tenantID, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(h.config.Upload.MaxSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to parse upload form",
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No file provided",
		})
		return
	}
	defer file.Close()

	entityType := c.PostForm("entity_type")
	entityID, err := strconv.ParseUint(c.PostForm("entity_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Valid entity_id form field is required",
		})
		return
	}

	attachment, err := h.uploadService.Save(tenantID, userID, &upload.SaveRequest{
		EntityType:  entityType,
		EntityID:    uint(entityID),
		Header:      header,
		Description: c.PostForm("description"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "File uploaded successfully",
		"data":    attachment,
	})
}

// Get handles GET /uploads/:id
func (h *UploadHandler) Get(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	attachmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	attachment, err := h.uploadService.Get(tenantID, attachmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Attachment retrieved successfully",
		"data":    attachment,
	})
}

// Download handles GET /uploads/:id/download
func (h *UploadHandler) Download(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	attachmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	attachment, err := h.uploadService.Get(tenantID, attachmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", attachment.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", attachment.OriginalName))

	c.File(attachment.Path)
}

// ListForEntity handles GET /uploads
func (h *UploadHandler) ListForEntity(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	entityType := c.Query("entity_type")
	entityID, err := strconv.ParseUint(c.Query("entity_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Valid entity_type and entity_id query parameters are required",
		})
		return
	}

	attachments, err := h.uploadService.ForEntity(tenantID, entityType, uint(entityID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Attachments retrieved successfully",
		"data":    attachments,
	})
}

// Delete handles DELETE /uploads/:id
func (h *UploadHandler) Delete(c *gin.Context) {
	tenantID, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	attachmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.uploadService.Delete(tenantID, attachmentID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Attachment deleted successfully",
	})
}
