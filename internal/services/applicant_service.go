package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/notifications"
	"github.com/eacouncil/membership/pkg/crypto"
	apperrors "github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/logger"
	"github.com/eacouncil/membership/pkg/metrics"
)

// DefaultVerificationTTL is how long an email-verification link stays valid.
const DefaultVerificationTTL = 48 * time.Hour

const verificationTokenBytes = 32

// ApplicantService handles self-registration, email verification and draft
// maintenance for prospective members.
type ApplicantService struct {
	db       *gorm.DB
	series   *NamingSeriesService
	notifier *notifications.Notifier
	log      *zap.Logger

	now      func() time.Time
	tokenTTL time.Duration
}

func NewApplicantService(db *gorm.DB, series *NamingSeriesService, notifier *notifications.Notifier) (*ApplicantService, error) {
	if db == nil {
		return nil, fmt.Errorf("applicant service requires a database connection")
	}
	if series == nil {
		return nil, fmt.Errorf("applicant service requires a naming series service")
	}
	if notifier == nil {
		return nil, fmt.Errorf("applicant service requires a notifier")
	}
	return &ApplicantService{
		db:       db,
		series:   series,
		notifier: notifier,
		log:      logger.WithModule("applicants"),
		now:      time.Now,
		tokenTTL: DefaultVerificationTTL,
	}, nil
}

// WithClock overrides time lookups for tests.
func (s *ApplicantService) WithClock(now func() time.Time) *ApplicantService {
	s.now = now
	return s
}

// RegisterInput is the self-registration payload. Payload validation happens
// at the handler; the service revalidates the kind-specific name rules.
type RegisterInput struct {
	Kind             string `json:"kind"`
	FirstName        string `json:"first_name"`
	Surname          string `json:"surname"`
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
}

// RegisterResult carries the created applicant. EmailError is set when the
// verification email could not be delivered; registration itself succeeded.
type RegisterResult struct {
	Applicant  *models.Applicant `json:"applicant"`
	EmailError string            `json:"email_error,omitempty"`
}

// Register creates an applicant, mints its tracking number in the same
// transaction, and emails the verification link.
func (s *ApplicantService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	switch input.Kind {
	case models.ApplicantKindIndividual:
		if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.Surname) == "" {
			return nil, apperrors.NewBadRequest("first_name and surname are required for individual applicants")
		}
	case models.ApplicantKindOrganization:
		if strings.TrimSpace(input.OrganizationName) == "" {
			return nil, apperrors.NewBadRequest("organization_name is required for organization applicants")
		}
	default:
		return nil, apperrors.NewBadRequest("kind must be individual or organization")
	}

	token, err := crypto.GenerateToken(verificationTokenBytes)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	expiresAt := s.now().Add(s.tokenTTL)

	applicant := &models.Applicant{
		Kind:                  input.Kind,
		Status:                models.ApplicantStatusRegistered,
		FirstName:             strings.TrimSpace(input.FirstName),
		Surname:               strings.TrimSpace(input.Surname),
		OrganizationName:      strings.TrimSpace(input.OrganizationName),
		Email:                 email,
		Phone:                 strings.TrimSpace(input.Phone),
		Address:               strings.TrimSpace(input.Address),
		VerificationTokenHash: hashToken(token),
		VerificationExpiresAt: &expiresAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Applicant{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewConflict("EMAIL_EXISTS", "an applicant with this email already exists")
		}

		series := SeriesApplicantTracking
		if applicant.Kind == models.ApplicantKindOrganization {
			series = SeriesOrgTracking
		}
		tracking, err := s.series.NextFormattedIn(ctx, tx, series)
		if err != nil {
			return err
		}
		applicant.TrackingNumber = tracking

		return tx.Create(applicant).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	metrics.Registrations.WithLabelValues(applicant.Kind).Inc()
	s.log.Info("applicant registered",
		zap.String("tracking_number", applicant.TrackingNumber),
		zap.String("kind", applicant.Kind))

	result := &RegisterResult{Applicant: applicant}
	if err := s.notifier.SendVerificationEmail(ctx, applicant, token); err != nil {
		result.EmailError = "verification email could not be sent"
	}
	return result, nil
}

// VerifyEmail consumes a verification token. Verifying an already verified
// applicant with a fresh token is not possible since the hash is cleared on
// first use.
func (s *ApplicantService) VerifyEmail(ctx context.Context, token string) (*models.Applicant, error) {
	if token == "" {
		return nil, apperrors.NewBadRequest("verification token is required")
	}

	var applicant models.Applicant
	err := s.db.WithContext(ctx).
		Where("verification_token_hash = ?", hashToken(token)).
		First(&applicant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New("INVALID_TOKEN", "verification token is invalid or already used", 400)
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if applicant.VerificationExpiresAt == nil || s.now().After(*applicant.VerificationExpiresAt) {
		return nil, apperrors.New("TOKEN_EXPIRED", "verification token has expired", 400)
	}

	verifiedAt := s.now()
	updates := map[string]interface{}{
		"status":                  models.ApplicantStatusEmailVerified,
		"email_verified_at":       verifiedAt,
		"verification_token_hash": "",
		"verification_expires_at": nil,
	}
	if err := s.db.WithContext(ctx).Model(&applicant).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	applicant.Status = models.ApplicantStatusEmailVerified
	applicant.EmailVerifiedAt = &verifiedAt
	applicant.VerificationTokenHash = ""
	applicant.VerificationExpiresAt = nil

	s.log.Info("applicant email verified", zap.String("tracking_number", applicant.TrackingNumber))
	return &applicant, nil
}

// DraftInput carries the sections being saved. Nil sections are left as-is,
// so each step of the multi-step form can be saved independently.
type DraftInput struct {
	Personal   *models.PersonalSection   `json:"personal"`
	Education  *models.EducationSection  `json:"education"`
	Employment *models.EmploymentSection `json:"employment"`
	Company    *models.CompanySection    `json:"company"`
}

// SaveDraft upserts the applicant's draft application. The applicant must
// have verified their email first.
func (s *ApplicantService) SaveDraft(ctx context.Context, applicantID string, input DraftInput) (*models.Application, error) {
	applicant, err := s.GetByID(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if applicant.Status != models.ApplicantStatusEmailVerified {
		return nil, apperrors.New("EMAIL_NOT_VERIFIED", "verify your email before starting an application", 403)
	}

	var application models.Application
	err = s.db.WithContext(ctx).
		Where("applicant_id = ? AND status = ?", applicant.ID, models.ApplicationStatusDraft).
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		application = models.Application{
			ApplicantID:     applicant.ID,
			Kind:            applicant.Kind,
			Status:          models.ApplicationStatusDraft,
			SectionsVersion: models.SectionsVersion,
		}
		if err := s.db.WithContext(ctx).Create(&application).Error; err != nil {
			return nil, apperrors.ErrInternalServer.WithInternal(err)
		}
	} else if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if input.Personal != nil {
		application.Personal = datatypes.NewJSONType(*input.Personal)
	}
	if input.Education != nil {
		application.Education = datatypes.NewJSONType(*input.Education)
	}
	if input.Employment != nil {
		application.Employment = datatypes.NewJSONType(*input.Employment)
	}
	if input.Company != nil {
		application.Company = datatypes.NewJSONType(*input.Company)
	}
	application.SectionsVersion = models.SectionsVersion

	if err := s.db.WithContext(ctx).Save(&application).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &application, nil
}

// GetByID loads an applicant.
func (s *ApplicantService) GetByID(ctx context.Context, id string) (*models.Applicant, error) {
	var applicant models.Applicant
	err := s.db.WithContext(ctx).First(&applicant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &applicant, nil
}

// ApplicantFilter narrows List results.
type ApplicantFilter struct {
	Kind   string
	Status string
	Search string
	Page   int
	Limit  int
}

// List returns applicants for the staff views, newest first.
func (s *ApplicantService) List(ctx context.Context, filter ApplicantFilter) ([]models.Applicant, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Applicant{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(surname) LIKE ? OR LOWER(organization_name) LIKE ? OR tracking_number LIKE ?",
			like, like, like, "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	var applicants []models.Applicant
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&applicants).Error
	if err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}
	return applicants, total, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
