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

// MemberService maintains the durable member register. Members are created
// only through application approval; this service covers everything after.
type MemberService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMemberService(db *gorm.DB) (*MemberService, error) {
	if db == nil {
		return nil, fmt.Errorf("member service requires a database connection")
	}
	return &MemberService{db: db, now: time.Now}, nil
}

// WithClock overrides time lookups for tests.
func (s *MemberService) WithClock(now func() time.Time) *MemberService {
	s.now = now
	return s
}

// GetByID loads a member.
func (s *MemberService) GetByID(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	err := s.db.WithContext(ctx).First(&member, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &member, nil
}

// MemberFilter narrows List results.
type MemberFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// List returns members ordered by membership number.
func (s *MemberService) List(ctx context.Context, filter MemberFilter) ([]models.Member, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Member{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(surname) LIKE ? OR LOWER(email) LIKE ? OR membership_number LIKE ?",
			like, like, "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	var members []models.Member
	err := query.
		Order("membership_number ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&members).Error
	if err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}
	return members, total, nil
}

// UpdateProfileInput carries the contact fields staff may correct. The
// membership number, names and status are not editable here.
type UpdateProfileInput struct {
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Email   *string `json:"email" binding:"omitempty,email"`
}

// UpdateProfile applies contact corrections.
func (s *MemberService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*models.Member, error) {
	member, err := s.GetByID(ctx, id)
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
		return member, nil
	}

	if err := s.db.WithContext(ctx).Model(member).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return s.GetByID(ctx, id)
}

// Renew extends the membership by one year from the later of now and the
// current expiry, and reactivates lapsed members.
func (s *MemberService) Renew(ctx context.Context, id string) (*models.Member, error) {
	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.Status == models.MemberStatusSuspended {
		return nil, apperrors.NewConflict("MEMBER_SUSPENDED", "suspended members cannot renew")
	}

	now := s.now()
	base := now
	if member.ExpiresAt != nil && member.ExpiresAt.After(now) {
		base = *member.ExpiresAt
	}
	expiresAt := base.AddDate(1, 0, 0)

	updates := map[string]interface{}{
		"status":     models.MemberStatusActive,
		"expires_at": expiresAt,
		"renewed_at": now,
	}
	if err := s.db.WithContext(ctx).Model(member).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	member.Status = models.MemberStatusActive
	member.ExpiresAt = &expiresAt
	member.RenewedAt = &now
	return member, nil
}

// SetStatus moves a member between active, lapsed and suspended.
func (s *MemberService) SetStatus(ctx context.Context, id, status string) (*models.Member, error) {
	switch status {
	case models.MemberStatusActive, models.MemberStatusLapsed, models.MemberStatusSuspended:
	default:
		return nil, apperrors.NewBadRequest("unknown member status " + status)
	}

	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(member).Update("status", status).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	member.Status = status
	return member, nil
}

// LapseExpired marks members past their expiry as lapsed. The maintenance
// job runs it daily.
func (s *MemberService) LapseExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.MemberStatusActive, s.now()).
		Update("status", models.MemberStatusLapsed)
	if res.Error != nil {
		return 0, apperrors.ErrInternalServer.WithInternal(res.Error)
	}
	return res.RowsAffected, nil
}
