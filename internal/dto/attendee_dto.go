package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RegisterAttendeeRequest creates a registry record. Password is optional:
// records created without one cannot log in until the auth collaborator sets it.
type RegisterAttendeeRequest struct {
	Email    string `json:"email"    validate:"required,email,max=320"`
	Name     string `json:"name"     validate:"required,min=1,max=200"`
	Role     string `json:"role"     validate:"omitempty,oneof=attendee staff"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// AttendeeResponse is the staff-facing view used by search and registration.
type AttendeeResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	CheckedIn   bool       `json:"checkedIn"`
	CheckedInAt *time.Time `json:"checkedInAt"`
}

// ProfileResponse is what an authenticated user sees about themself,
// including the QR token they present at the door.
type ProfileResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	QRToken     string     `json:"qrToken"`
	CheckedIn   bool       `json:"checkedIn"`
	CheckedInAt *time.Time `json:"checkedInAt"`
}
