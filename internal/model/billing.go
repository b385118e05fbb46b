package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Billing status enum. Unpaid is the default for new invoices.
const (
	BillingStatusUnpaid    = "Unpaid"
	BillingStatusPaid      = "Paid"
	BillingStatusCancelled = "Cancelled"
	BillingStatusRefunded  = "Refunded"
)

// BillingStatuses lists every accepted status value
var BillingStatuses = []string{BillingStatusUnpaid, BillingStatusPaid, BillingStatusCancelled, BillingStatusRefunded}

// IsValidBillingStatus reports whether s is one of BillingStatuses
func IsValidBillingStatus(s string) bool {
	for _, st := range BillingStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Billing is a patient invoice. Subtotal is the sum of line amounts and
// Total = Subtotal + Tax; both are recomputed on every save.
type Billing struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber string            `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	PatientName   string            `gorm:"type:varchar(255);not null;default:'Walk-in'" json:"patient_name"`
	BilledBy      *uuid.UUID        `gorm:"type:uuid;index" json:"billed_by"`
	BilledByUser  *User             `gorm:"foreignKey:BilledBy" json:"billed_by_user,omitempty"`
	LineItems     []BillingLineItem `gorm:"foreignKey:BillingID;constraint:OnDelete:CASCADE" json:"line_items"`
	Subtotal      decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"subtotal"`
	Tax           decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	Total         decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"total"`
	PaidAmount    decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	Status        string            `gorm:"type:varchar(20);not null;default:'Unpaid';index" json:"status"`
	Notes         string            `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// BillingLineItem is a single billed medicine or service
type BillingLineItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BillingID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"billing_id"`
	MedicineID  *uuid.UUID      `gorm:"type:uuid;index" json:"medicine_id"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    int             `gorm:"type:int;not null" json:"qty"`
	Rate        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
}

// Recalculate rounds rates to the stored 2dp, then recomputes every line amount
// (qty x rate), the subtotal and the total. Client supplied amounts are never trusted.
func (b *Billing) Recalculate() {
	subtotal := decimal.Zero
	for i := range b.LineItems {
		li := &b.LineItems[i]
		li.Rate = li.Rate.Round(2)
		li.Amount = li.Rate.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)
		subtotal = subtotal.Add(li.Amount)
	}
	b.Subtotal = subtotal
	b.Total = subtotal.Add(b.Tax)
}

// BeforeSave keeps the totals invariant whatever path writes the row
func (b *Billing) BeforeSave(tx *gorm.DB) error {
	if len(b.LineItems) > 0 {
		b.Recalculate()
	}
	if b.Status == "" {
		b.Status = BillingStatusUnpaid
	}
	return nil
}
