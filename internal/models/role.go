package models

// Role names staff capabilities. Seeded roles use their ID as the role string
// checked per route (admin, member_manager, staff, accountant).
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"`

	Users []StaffUser `gorm:"many2many:staff_user_roles;" json:"users,omitempty"`
}

// Seeded role identifiers.
const (
	RoleAdmin         = "admin"
	RoleMemberManager = "member_manager"
	RoleStaff         = "staff"
	RoleAccountant    = "accountant"
)
