package models

import "time"

// Organization is the durable organization record created exactly once, at
// application approval. Status changes mirror Member (active/lapsed/suspended).
type Organization struct {
	BaseModel

	// RegistrationNumber is the formatted naming-series identifier, for example
	// EAC-ORG-2026-0001.
	RegistrationNumber string `gorm:"uniqueIndex;not null" json:"registration_number"`

	ApplicantID   string `gorm:"type:uuid;not null;index" json:"applicant_id"`
	ApplicationID string `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`

	LegalName   string `gorm:"not null" json:"legal_name"`
	TradingName string `json:"trading_name"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`

	Status    string     `gorm:"not null;default:active;index" json:"status"`
	JoinedAt  time.Time  `json:"joined_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	RenewedAt *time.Time `json:"renewed_at"`
}
