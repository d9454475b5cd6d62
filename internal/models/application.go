package models

import (
	"time"

	"gorm.io/datatypes"
)

// Application statuses, in lifecycle order.
const (
	ApplicationStatusDraft           = "draft"
	ApplicationStatusSubmitted       = "submitted"
	ApplicationStatusPaymentPending  = "payment_pending"
	ApplicationStatusPaymentReceived = "payment_received"
	ApplicationStatusUnderReview     = "under_review"
	ApplicationStatusDocumentReview  = "document_review"
	ApplicationStatusApproved        = "approved"
	ApplicationStatusRejected        = "rejected"
)

// SectionsVersion identifies the current shape of the typed section records.
const SectionsVersion = 1

// PersonalSection captures the personal details step of an individual
// application.
type PersonalSection struct {
	FirstName   string `json:"first_name"`
	Surname     string `json:"surname"`
	NationalID  string `json:"national_id"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
}

// EducationSection captures qualifications.
type EducationSection struct {
	HighestQualification string   `json:"highest_qualification"`
	Institution          string   `json:"institution"`
	YearCompleted        int      `json:"year_completed"`
	Certifications       []string `json:"certifications,omitempty"`
}

// EmploymentSection captures current employment details.
type EmploymentSection struct {
	Employer  string `json:"employer"`
	Position  string `json:"position"`
	StartDate string `json:"start_date"`
}

// CompanySection captures the organization details step of an organization
// application.
type CompanySection struct {
	LegalName          string `json:"legal_name"`
	TradingName        string `json:"trading_name"`
	RegistrationNumber string `json:"registration_number"`
	TaxNumber          string `json:"tax_number"`
	DirectorName       string `json:"director_name"`
	Address            string `json:"address"`
}

// Application is an in-progress submission. On approval it is converted into a
// Member or Organization record; approved and rejected are terminal.
type Application struct {
	BaseModel

	ApplicantID string     `gorm:"type:uuid;not null;index" json:"applicant_id"`
	Applicant   *Applicant `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`

	Kind   string `gorm:"not null;index" json:"kind"`
	Status string `gorm:"not null;default:draft;index" json:"status"`

	SectionsVersion int `gorm:"not null;default:1" json:"sections_version"`

	Personal   datatypes.JSONType[PersonalSection]   `json:"personal"`
	Education  datatypes.JSONType[EducationSection]  `json:"education"`
	Employment datatypes.JSONType[EmploymentSection] `json:"employment"`
	Company    datatypes.JSONType[CompanySection]    `json:"company"`

	ReviewedBy      *string    `gorm:"type:uuid" json:"reviewed_by"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	PaymentAt       *time.Time `json:"payment_at"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	DecidedAt       *time.Time `json:"decided_at"`

	Documents []UploadedDocument `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
	Payments  []Payment          `gorm:"foreignKey:ApplicationID" json:"payments,omitempty"`
}

// Terminal reports whether the application has reached a final status.
func (a *Application) Terminal() bool {
	return a.Status == ApplicationStatusApproved || a.Status == ApplicationStatusRejected
}
