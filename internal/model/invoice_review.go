package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Review status enum
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// InvoiceReview holds an imported invoice row that was not trusted enough to
// touch inventory. An admin approves it (with a chosen medicine) or rejects it.
type InvoiceReview struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Description      string            `gorm:"type:varchar(255);not null;default:''" json:"description"`
	Batch            string            `gorm:"type:varchar(100)" json:"batch"`
	Expiry           string            `gorm:"type:varchar(50)" json:"expiry"` // raw text from the parser
	Quantity         int               `gorm:"type:int;not null;default:0" json:"quantity"`
	Price            *decimal.Decimal  `gorm:"type:decimal(18,2)" json:"price"`
	Reason           string            `gorm:"type:text" json:"reason"`
	Rating           float64           `gorm:"type:decimal(5,4);not null;default:0" json:"rating"`
	Raw              datatypes.JSON    `gorm:"type:jsonb" json:"raw"`
	CandidateMatches []ReviewCandidate `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"candidate_matches"`
	SupplierID       *uuid.UUID        `gorm:"type:uuid" json:"supplier_id"`
	Status           string            `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedBy       *uuid.UUID        `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt       *time.Time        `json:"reviewed_at"`
	AppliedBatchID   *uuid.UUID        `gorm:"type:uuid" json:"applied_batch_id"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ReviewCandidate is a medicine suggested by the matcher for a review row
type ReviewCandidate struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReviewID   uuid.UUID `gorm:"type:uuid;not null;index" json:"review_id"`
	MedicineID uuid.UUID `gorm:"type:uuid;not null" json:"medicine_id"`
	Medicine   *Medicine `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	Rating     float64   `gorm:"type:decimal(5,4);not null" json:"rating"`
}
