package models

import (
	"strings"
	"time"
)

// Applicant statuses.
const (
	ApplicantStatusRegistered    = "registered"
	ApplicantStatusEmailVerified = "email_verified"
)

// Applicant kinds.
const (
	ApplicantKindIndividual   = "individual"
	ApplicantKindOrganization = "organization"
)

// Applicant is a person or organization that has started registration but has
// not yet been converted into a durable Member or Organization record.
// Applicants are never hard-deleted.
type Applicant struct {
	BaseModel

	Kind   string `gorm:"not null;index" json:"kind"`
	Status string `gorm:"not null;default:registered;index" json:"status"`

	// TrackingNumber is the naming-series identifier issued at registration,
	// for example MBR-APP-2026-0001.
	TrackingNumber string `gorm:"uniqueIndex;not null" json:"tracking_number"`

	FirstName        string `json:"first_name"`
	Surname          string `json:"surname"`
	OrganizationName string `json:"organization_name"`
	Email            string `gorm:"uniqueIndex;not null" json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`

	// One-time email verification token, stored hashed.
	VerificationTokenHash string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	EmailVerifiedAt       *time.Time `json:"email_verified_at"`

	Applications []Application `gorm:"foreignKey:ApplicantID" json:"applications,omitempty"`
}

// DisplayName is the salutation used in outbound email.
func (a *Applicant) DisplayName() string {
	if a.Kind == ApplicantKindOrganization && a.OrganizationName != "" {
		return a.OrganizationName
	}
	name := strings.TrimSpace(a.FirstName + " " + a.Surname)
	if name == "" {
		return a.Email
	}
	return name
}
