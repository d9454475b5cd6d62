package database

import (
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.StaffUser{},
		&models.Role{},
		&models.Session{},
		&models.Applicant{},
		&models.Application{},
		&models.Member{},
		&models.Organization{},
		&models.NamingSeriesCounter{},
		&models.UploadedDocument{},
		&models.Payment{},
		&models.CacheEntry{},
	)
}

// SeedData populates the staff roles checked per route.
func SeedData(db *gorm.DB) error {
	roles := []models.Role{
		{
			BaseModel:   models.BaseModel{ID: models.RoleAdmin},
			Name:        "Administrator",
			Description: "Full system access",
			IsSystem:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: models.RoleMemberManager},
			Name:        "Member Manager",
			Description: "Reviews applications and manages member records",
			IsSystem:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: models.RoleStaff},
			Name:        "Staff",
			Description: "Read-only back-office access",
			IsSystem:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: models.RoleAccountant},
			Name:        "Accountant",
			Description: "Payment review and reconciliation",
			IsSystem:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{BaseModel: models.BaseModel{ID: role.ID}}).
			Attrs(role).
			FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	return nil
}
