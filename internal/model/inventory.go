package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBatchNumber is stored when an invoice row carries no batch number
const DefaultBatchNumber = "UNKNOWN"

// InventoryBatch is one lot of a medicine on the shelf.
// Quantity never goes below zero; empty batches are kept for history.
type InventoryBatch struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MedicineID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_batch_lookup,priority:1" json:"medicine_id"`
	Medicine    *Medicine  `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	BatchNumber string     `gorm:"type:varchar(100);not null;index:idx_batch_lookup,priority:2" json:"batch_number"`
	ExpiryDate  *time.Time `gorm:"index" json:"expiry_date"`
	Quantity    int        `gorm:"type:int;not null;default:0;check:chk_inventory_quantity_non_negative,quantity >= 0" json:"quantity"`
	SupplierID  *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id"`
	Supplier    *Supplier  `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TransactionType Enum Simulation
const (
	TxTypeIn     = "IN"
	TxTypeOut    = "OUT"
	TxTypeAdjust = "ADJUST"
)

// Stock movement sources
const (
	TxSourceInvoiceImport = "INVOICE_IMPORT"
	TxSourceReviewApprove = "REVIEW_APPROVE"
	TxSourceBilling       = "BILLING"
	TxSourceManual        = "MANUAL"
	TxSourceOCRIntake     = "OCR_INTAKE"
)

// InventoryTransaction (stock card) records every quantity change of a batch
type InventoryTransaction struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BatchID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"batch_id"`
	MedicineID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"medicine_id"`
	BillingID       *uuid.UUID `gorm:"type:uuid;index" json:"billing_id"`
	Source          string     `gorm:"type:varchar(30);not null" json:"source"`
	TransactionType string     `gorm:"type:varchar(10);not null" json:"transaction_type"` // IN, OUT, ADJUST
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	UserID          *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	CreatedAt       time.Time  `json:"created_at"`
}
