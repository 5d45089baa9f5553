// internal/domain/audit/writer.go
package audit

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// Writer appends audit rows inside business transactions
type Writer struct {
	db *gorm.DB
}

// NewWriter creates a new audit writer
func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db}
}

// Record writes one audit row in the caller's transaction. Details may
// be nil; anything else is serialized to JSON.
func (w *Writer) Record(tx *gorm.DB, tenantID, userID uint, action, entityType string, entityID uint, details interface{}) error {
	log := Log{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to serialize audit details: %w", err)
		}
		log.Details = string(payload)
	}
	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// ForEntity returns the audit trail for one entity, newest first
func (w *Writer) ForEntity(tenantID uint, entityType string, entityID uint) ([]Log, error) {
	var logs []Log
	err := w.db.
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	return logs, nil
}
