package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/models"
	apperrors "github.com/eacouncil/membership/pkg/errors"
)

// OrganizationService mirrors MemberService for the organization register.
type OrganizationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOrganizationService(db *gorm.DB) (*OrganizationService, error) {
	if db == nil {
		return nil, fmt.Errorf("organization service requires a database connection")
	}
	return &OrganizationService{db: db, now: time.Now}, nil
}

// WithClock overrides time lookups for tests.
func (s *OrganizationService) WithClock(now func() time.Time) *OrganizationService {
	s.now = now
	return s
}

// GetByID loads an organization.
func (s *OrganizationService) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	var organization models.Organization
	err := s.db.WithContext(ctx).First(&organization, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &organization, nil
}

// OrganizationFilter narrows List results.
type OrganizationFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// List returns organizations ordered by registration number.
func (s *OrganizationService) List(ctx context.Context, filter OrganizationFilter) ([]models.Organization, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Organization{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(legal_name) LIKE ? OR LOWER(trading_name) LIKE ? OR registration_number LIKE ?",
			like, like, "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	var organizations []models.Organization
	err := query.
		Order("registration_number ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&organizations).Error
	if err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}
	return organizations, total, nil
}

// UpdateProfile applies contact corrections.
func (s *OrganizationService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*models.Organization, error) {
	organization, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if len(updates) == 0 {
		return organization, nil
	}

	if err := s.db.WithContext(ctx).Model(organization).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return s.GetByID(ctx, id)
}

// Renew extends the registration by one year, matching member renewal.
func (s *OrganizationService) Renew(ctx context.Context, id string) (*models.Organization, error) {
	organization, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if organization.Status == models.MemberStatusSuspended {
		return nil, apperrors.NewConflict("ORGANIZATION_SUSPENDED", "suspended organizations cannot renew")
	}

	now := s.now()
	base := now
	if organization.ExpiresAt != nil && organization.ExpiresAt.After(now) {
		base = *organization.ExpiresAt
	}
	expiresAt := base.AddDate(1, 0, 0)

	updates := map[string]interface{}{
		"status":     models.MemberStatusActive,
		"expires_at": expiresAt,
		"renewed_at": now,
	}
	if err := s.db.WithContext(ctx).Model(organization).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	organization.Status = models.MemberStatusActive
	organization.ExpiresAt = &expiresAt
	organization.RenewedAt = &now
	return organization, nil
}

// LapseExpired marks organizations past their expiry as lapsed.
func (s *OrganizationService) LapseExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.MemberStatusActive, s.now()).
		Update("status", models.MemberStatusLapsed)
	if res.Error != nil {
		return 0, apperrors.ErrInternalServer.WithInternal(res.Error)
	}
	return res.RowsAffected, nil
}

// SetStatus moves an organization between active, lapsed and suspended.
func (s *OrganizationService) SetStatus(ctx context.Context, id, status string) (*models.Organization, error) {
	switch status {
	case models.MemberStatusActive, models.MemberStatusLapsed, models.MemberStatusSuspended:
	default:
		return nil, apperrors.NewBadRequest("unknown organization status " + status)
	}

	organization, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(organization).Update("status", status).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	organization.Status = status
	return organization, nil
}
