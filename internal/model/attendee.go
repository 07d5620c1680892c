package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAttendee = "attendee"
	RoleStaff    = "staff"
)

const (
	// QRTokenMaxLen is the width of the qr_token column.
	QRTokenMaxLen = 64
	// QRTokenSuffixLen is the random part after "<prefix>-".
	QRTokenSuffixLen = 8
)

// Attendee is one registered person, attendee or staff.
//
// Email is stored lower-cased and unique through the lower(email) index
// created in infra.applySchemaPatches. QRToken is issued once at creation
// and never changes. CheckedInAt is set iff CheckedIn is true; a CHECK
// constraint enforces this at the database level.
type Attendee struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"type:varchar(320);not null"`
	Name         string     `gorm:"not null"`
	Role         string     `gorm:"type:varchar(20);not null;default:'attendee'"`
	QRToken      string     `gorm:"column:qr_token;type:varchar(64);uniqueIndex;not null"` // QRTokenMaxLen
	PasswordHash string     `gorm:"not null;default:''"`
	CheckedIn    bool       `gorm:"not null;default:false"`
	CheckedInAt  *time.Time `gorm:"type:timestamptz"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the record is excluded from check-in transitions.
func (a *Attendee) IsStaff() bool {
	return a.Role == RoleStaff
}
