// internal/domain/sequence/service.go
package sequence

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service hands out document numbers from per-tenant counter rows
type Service struct {
	db *gorm.DB
}

// NewService creates a new sequence service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Next draws the next document number for a prefix inside the caller's
// transaction. The counter row is created on first use and locked for
// update afterwards, so two concurrent callers can never draw the same
// number.
func (s *Service) Next(tx *gorm.DB, tenantID uint, prefix string, at time.Time) (string, error) {
	year := at.Year()

	var seq DocumentSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND prefix = ? AND year = ?", tenantID, prefix, year).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = DocumentSequence{
			TenantID: tenantID,
			Prefix:   prefix,
			Year:     year,
		}
		if err := tx.Create(&seq).Error; err != nil {
			return "", fmt.Errorf("failed to create sequence counter: %w", err)
		}
		// Re-read under lock: a concurrent first draw may have created
		// the row between our miss and our insert.
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND prefix = ? AND year = ?", tenantID, prefix, year).
			First(&seq).Error
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock sequence counter: %w", err)
	}

	seq.LastValue++
	if err := tx.Model(&DocumentSequence{}).
		Where("id = ?", seq.ID).
		Update("last_value", seq.LastValue).Error; err != nil {
		return "", fmt.Errorf("failed to advance sequence counter: %w", err)
	}

	return Format(prefix, year, seq.LastValue), nil
}

// Format renders a document number as PREFIX-YEAR-NNNNN
func Format(prefix string, year, value int) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, value)
}
