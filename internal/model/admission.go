package model

import (
	"time"

	"github.com/google/uuid"
)

// Room types a patient can be admitted to
const (
	RoomGeneral     = "General"
	RoomSemiPrivate = "Semi-Private"
	RoomPrivate     = "Private"
	RoomICU         = "ICU"
)

const (
	AdmissionAdmitted   = "Admitted"
	AdmissionDischarged = "Discharged"
)

// IsValidRoomType reports whether r is one of the room constants
func IsValidRoomType(r string) bool {
	switch r {
	case RoomGeneral, RoomSemiPrivate, RoomPrivate, RoomICU:
		return true
	}
	return false
}

type Admission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PatientName string    `gorm:"type:varchar(255);not null" json:"patient_name"`
	Age         *int      `gorm:"type:int" json:"age"`
	Gender      string    `gorm:"type:varchar(20)" json:"gender"`
	RoomType    string    `gorm:"type:varchar(20);not null" json:"room_type"`
	Doctor      string    `gorm:"type:varchar(255)" json:"doctor"`
	AdmittedAt  time.Time `gorm:"index" json:"admitted_at"`
	Status      string    `gorm:"type:varchar(20);not null;default:'Admitted'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
