package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffUser is a council back-office account. Role membership controls which
// review and administration routes the account may call.
type StaffUser struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Roles    []Role    `gorm:"many2many:staff_user_roles;" json:"roles,omitempty"`
	Sessions []Session `gorm:"foreignKey:StaffUserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *StaffUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasRole reports whether the user holds the named role. Roles must be preloaded.
func (u *StaffUser) HasRole(names ...string) bool {
	for _, role := range u.Roles {
		for _, name := range names {
			if role.ID == name {
				return true
			}
		}
	}
	return false
}
