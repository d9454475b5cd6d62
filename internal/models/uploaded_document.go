package models

// Uploaded document statuses.
const (
	DocumentStatusPending = "pending"
	DocumentStatusClean   = "clean"
	DocumentStatusFlagged = "flagged"
)

// UploadedDocument records the metadata of a finalized upload. SHA256 is
// unique system-wide: identical bytes are rejected as a duplicate at finalize
// rather than stored twice.
type UploadedDocument struct {
	BaseModel

	ApplicantID   string  `gorm:"type:uuid;not null;index" json:"applicant_id"`
	ApplicationID *string `gorm:"type:uuid;index" json:"application_id"`

	FileKey  string `gorm:"uniqueIndex;not null" json:"file_key"`
	FileName string `gorm:"not null" json:"file_name"`
	DocType  string `gorm:"not null;index" json:"doc_type"`
	MimeType string `json:"mime_type"`

	SHA256    string `gorm:"column:sha256;uniqueIndex;not null" json:"sha256"`
	SizeBytes int64  `gorm:"not null" json:"size_bytes"`

	Status   string `gorm:"not null;default:pending" json:"status"`
	Warnings string `json:"warnings,omitempty"`
}
