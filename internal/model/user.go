package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles recognised by the role gate
const (
	RoleAdmin   = "Admin"
	RoleStaff   = "Staff"
	RoleDoctor  = "Doctor"
	RoleNurse   = "Nurse"
	RolePatient = "Patient"
)

// IsValidRole reports whether r is a known role
func IsValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleDoctor, RoleNurse, RolePatient:
		return true
	}
	return false
}

// User is a login account of staff or a patient
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FirstName string         `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string         `gorm:"type:varchar(100)" json:"last_name"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`   // Omit password from JSON requests/responses
	Role      string         `gorm:"type:varchar(20);not null" json:"role"` // Admin, Staff, Doctor, Nurse, Patient
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}
