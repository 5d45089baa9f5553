// internal/domain/upload/service.go
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"gorm.io/gorm"
)

// Error codes surfaced by attachment operations
const (
	ErrCodeAttachmentNotFound = "ATTACHMENT_NOT_FOUND"
	ErrCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrCodeFileTypeNotAllowed = "FILE_TYPE_NOT_ALLOWED"
	ErrCodeUnknownEntityType  = "UNKNOWN_ENTITY_TYPE"
)

var allowedEntityTypes = map[string]bool{
	EntityPatient:      true,
	EntityPrescription: true,
	EntityGoodsReceipt: true,
	EntitySaleReturn:   true,
}

// Service handles attachment storage business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new upload service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// SaveRequest represents an attachment upload
type SaveRequest struct {
	EntityType  string
	EntityID    uint
	Header      *multipart.FileHeader
	Description string
}

// Save validates and stores one uploaded file, writing it under a
// per-tenant directory and recording the attachment row
func (s *Service) Save(tenantID, userID uint, req *SaveRequest) (*Attachment, error) {
	if !allowedEntityTypes[req.EntityType] {
		return nil, apperror.DomainRulef(ErrCodeUnknownEntityType,
			"cannot attach files to entity type %q", req.EntityType)
	}
	if req.Header.Size > s.config.Upload.MaxSize {
		return nil, apperror.DomainRulef(ErrCodeFileTooLarge,
			"file is %d bytes, limit is %d", req.Header.Size, s.config.Upload.MaxSize)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Header.Filename)), ".")
	if !s.extensionAllowed(ext) {
		return nil, apperror.DomainRulef(ErrCodeFileTypeNotAllowed,
			"file type %q is not allowed", ext)
	}

	storedName := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	dir := filepath.Join(s.config.Upload.LocalPath, fmt.Sprintf("tenant_%d", tenantID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	path := filepath.Join(dir, storedName)

	if err := s.writeFile(req.Header, path); err != nil {
		return nil, err
	}

	attachment := Attachment{
		TenantID:     tenantID,
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		OriginalName: req.Header.Filename,
		FileName:     storedName,
		Path:         path,
		ContentType:  req.Header.Header.Get("Content-Type"),
		Size:         req.Header.Size,
		Description:  req.Description,
		UploadedBy:   userID,
	}
	if err := s.db.Create(&attachment).Error; err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to create attachment record: %w", err)
	}
	return &attachment, nil
}

// Get retrieves one attachment record
func (s *Service) Get(tenantID, attachmentID uint) (*Attachment, error) {
	var attachment Attachment
	err := s.db.
		Where("id = ? AND tenant_id = ?", attachmentID, tenantID).
		First(&attachment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(ErrCodeAttachmentNotFound, "attachment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve attachment: %w", err)
	}
	return &attachment, nil
}

// ForEntity lists attachments pinned to one record, newest first
func (s *Service) ForEntity(tenantID uint, entityType string, entityID uint) ([]Attachment, error) {
	if !allowedEntityTypes[entityType] {
		return nil, apperror.DomainRulef(ErrCodeUnknownEntityType,
			"cannot list attachments for entity type %q", entityType)
	}
	var attachments []Attachment
	err := s.db.
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("id DESC").
		Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// Delete removes the attachment record and its file. The row goes
// first; a leftover file on disk is harmless, a dangling row is not.
func (s *Service) Delete(tenantID, attachmentID uint) error {
	attachment, err := s.Get(tenantID, attachmentID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(attachment).Error; err != nil {
		return fmt.Errorf("failed to delete attachment record: %w", err)
	}
	os.Remove(attachment.Path)
	return nil
}

// Private helper methods

func (s *Service) extensionAllowed(ext string) bool {
	for _, allowed := range s.config.Upload.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func (s *Service) writeFile(header *multipart.FileHeader, path string) error {
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
