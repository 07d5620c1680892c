package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CheckInRequest struct {
	QRToken string `json:"qrToken" validate:"required"`
}

type AttendeeIDRequest struct {
	AttendeeID string `json:"attendeeId" validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CheckInUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CheckInResponse covers both the success shape and the soft
// "already checked in" shape returned by the token path.
type CheckInResponse struct {
	Success          bool        `json:"success"`
	AlreadyCheckedIn bool        `json:"alreadyCheckedIn,omitempty"`
	User             CheckInUser `json:"user"`
}

type StatsResponse struct {
	TotalRegistered    int64 `json:"totalRegistered"`
	CheckedIn          int64 `json:"checkedIn"`
	Pending            int64 `json:"pending"`
	AttendeeCount      int64 `json:"attendeeCount"`
	StaffCount         int64 `json:"staffCount"`
	CheckInRatePercent int64 `json:"checkInRatePercent"`
}

type RecentCheckInResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CheckedInAt time.Time `json:"checkedInAt"`
}
