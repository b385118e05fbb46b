package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionInvoiceImport  = "invoice_import"
	ActionReviewApprove  = "invoice_review_approve"
	ActionReviewReject   = "invoice_review_reject"
	ActionBillingCreate  = "billing_create"
	ActionBillingStatus  = "billing_status_update"
	ActionInventoryAdjst = "inventory_adjust"
	ActionOCRIntake      = "inventory_ocr_intake"
	ActionMedicineCreate = "medicine_create"
)

// AuditLog is a write-once trace of who did what. Invoice imports also keep
// the parser's raw answer for later inspection.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User         *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action       string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID     string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName   string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Summary      datatypes.JSON `gorm:"type:jsonb" json:"summary"`
	RawRowsCount int            `gorm:"type:int;not null;default:0" json:"raw_rows_count"`
	RawResponse  datatypes.JSON `gorm:"type:jsonb" json:"raw_response,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}
