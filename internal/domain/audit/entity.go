// internal/domain/audit/entity.go
package audit

import (
	"time"
)

// Audit actions
const (
	ActionCreate  = "CREATE"
	ActionApprove = "APPROVE"
	ActionCancel  = "CANCEL"
	ActionReceive = "RECEIVE"
	ActionUpdate  = "UPDATE"
)

// Log is one audit trail row. Rows are written inside the same
// transaction as the change they describe, so a rolled-back operation
// leaves no trail.
type Log struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TenantID   uint      `json:"tenant_id" gorm:"not null;index:idx_audit_logs_scope"`
	UserID     uint      `json:"user_id" gorm:"not null"`
	Action     string    `json:"action" gorm:"not null;size:20"`
	EntityType string    `json:"entity_type" gorm:"not null;size:50;index:idx_audit_logs_scope"`
	EntityID   uint      `json:"entity_id" gorm:"not null;index:idx_audit_logs_scope"`
	Details    string    `json:"details" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the table name for Log model
func (Log) TableName() string {
	return "audit_logs"
}
