package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is a staff login session. Only the SHA-256 hash of the cookie token
// is stored.
type Session struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	StaffUserID string     `gorm:"type:uuid;not null;index" json:"staff_user_id"`
	StaffUser   *StaffUser `gorm:"foreignKey:StaffUserID" json:"staff_user,omitempty"`
	TokenHash   string     `gorm:"uniqueIndex;not null" json:"-"`
	IPAddress   string     `json:"ip_address"`
	UserAgent   string     `json:"user_agent"`
	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt  time.Time  `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
