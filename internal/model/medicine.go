package model

import (
	"time"

	"github.com/google/uuid"
)

// UnknownBrand is used for medicines created from an invoice row that carries no brand
const UnknownBrand = "Unknown"

// Medicine is the canonical master record that batches and bill lines point at
type Medicine struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Brand       string    `gorm:"type:varchar(255);not null" json:"brand"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"type:varchar(100);index" json:"category"` // e.g. Antibiotic, Painkiller
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
