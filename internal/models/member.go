package models

import "time"

// Member statuses. Members are never hard-deleted; lapses and suspensions are
// status changes.
const (
	MemberStatusActive    = "active"
	MemberStatusLapsed    = "lapsed"
	MemberStatusSuspended = "suspended"
)

// Member is the durable individual record created exactly once, at application
// approval.
type Member struct {
	BaseModel

	// MembershipNumber is the formatted naming-series identifier, for example
	// EAC-MBR-2026-0001.
	MembershipNumber string `gorm:"uniqueIndex;not null" json:"membership_number"`

	ApplicantID   string `gorm:"type:uuid;not null;index" json:"applicant_id"`
	ApplicationID string `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`

	FirstName string `gorm:"not null" json:"first_name"`
	Surname   string `gorm:"not null" json:"surname"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`

	Status    string     `gorm:"not null;default:active;index" json:"status"`
	JoinedAt  time.Time  `json:"joined_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	RenewedAt *time.Time `json:"renewed_at"`
}
