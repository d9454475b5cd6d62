package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/notifications"
	apperrors "github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/logger"
	"github.com/eacouncil/membership/pkg/metrics"
)

// allowedFrom lists the statuses each transition accepts as its starting
// point. Payment stages may be skipped when a fee is waived, but decisions
// always require the application to have reached review.
var allowedFrom = map[string][]string{
	models.ApplicationStatusSubmitted: {
		models.ApplicationStatusDraft,
	},
	models.ApplicationStatusPaymentPending: {
		models.ApplicationStatusSubmitted,
	},
	models.ApplicationStatusPaymentReceived: {
		models.ApplicationStatusSubmitted,
		models.ApplicationStatusPaymentPending,
	},
	models.ApplicationStatusUnderReview: {
		models.ApplicationStatusSubmitted,
		models.ApplicationStatusPaymentPending,
		models.ApplicationStatusPaymentReceived,
	},
	models.ApplicationStatusDocumentReview: {
		models.ApplicationStatusSubmitted,
		models.ApplicationStatusPaymentPending,
		models.ApplicationStatusPaymentReceived,
		models.ApplicationStatusUnderReview,
	},
	models.ApplicationStatusApproved: {
		models.ApplicationStatusUnderReview,
		models.ApplicationStatusDocumentReview,
	},
	models.ApplicationStatusRejected: {
		models.ApplicationStatusSubmitted,
		models.ApplicationStatusPaymentPending,
		models.ApplicationStatusPaymentReceived,
		models.ApplicationStatusUnderReview,
		models.ApplicationStatusDocumentReview,
	},
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedFrom[to] {
		if from == allowed {
			return true
		}
	}
	return false
}

// TransitionResult is the outcome of a lifecycle operation. EmailError is
// set when a notification failed to send; the transition itself committed.
type TransitionResult struct {
	Application  *models.Application  `json:"application"`
	Member       *models.Member       `json:"member,omitempty"`
	Organization *models.Organization `json:"organization,omitempty"`
	EmailError   string               `json:"email_error,omitempty"`
}

// ApplicationService drives the application lifecycle from submission to
// decision, including the member/organization conversion at approval.
type ApplicationService struct {
	db       *gorm.DB
	series   *NamingSeriesService
	notifier *notifications.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewApplicationService(db *gorm.DB, series *NamingSeriesService, notifier *notifications.Notifier) (*ApplicationService, error) {
	if db == nil {
		return nil, fmt.Errorf("application service requires a database connection")
	}
	if series == nil {
		return nil, fmt.Errorf("application service requires a naming series service")
	}
	if notifier == nil {
		return nil, fmt.Errorf("application service requires a notifier")
	}
	return &ApplicationService{
		db:       db,
		series:   series,
		notifier: notifier,
		log:      logger.WithModule("applications"),
		now:      time.Now,
	}, nil
}

// WithClock overrides time lookups for tests.
func (s *ApplicationService) WithClock(now func() time.Time) *ApplicationService {
	s.now = now
	return s
}

// Submit moves a draft into the review queue and notifies the applicant and
// the membership team.
func (s *ApplicationService) Submit(ctx context.Context, applicationID string) (*TransitionResult, error) {
	application, err := s.getWithApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	submittedAt := s.now()
	if err := s.transition(ctx, application, models.ApplicationStatusSubmitted, map[string]interface{}{
		"submitted_at": submittedAt,
	}); err != nil {
		return nil, err
	}
	application.SubmittedAt = &submittedAt

	result := &TransitionResult{Application: application}
	var emailErrs []string
	if err := s.notifier.SendSubmissionReceipt(ctx, application.Applicant); err != nil {
		emailErrs = append(emailErrs, "applicant receipt")
	}
	if err := s.notifier.NotifySubmission(ctx, application.Applicant); err != nil {
		emailErrs = append(emailErrs, "staff alert")
	}
	result.EmailError = joinEmailErrors(emailErrs)
	return result, nil
}

// MarkPaymentPending records that the fee invoice was issued.
func (s *ApplicationService) MarkPaymentPending(ctx context.Context, applicationID string, reviewerID *string) (*TransitionResult, error) {
	application, err := s.getWithApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, application, models.ApplicationStatusPaymentPending, map[string]interface{}{
		"reviewed_by": reviewerID,
	}); err != nil {
		return nil, err
	}
	application.ReviewedBy = reviewerID
	return &TransitionResult{Application: application}, nil
}

// RecordPaymentReceived marks the fee as settled. It is driven by the
// payment-notification flow or recorded manually by an accountant.
func (s *ApplicationService) RecordPaymentReceived(ctx context.Context, applicationID string) (*TransitionResult, error) {
	application, err := s.getWithApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	paidAt := s.now()
	if err := s.transition(ctx, application, models.ApplicationStatusPaymentReceived, map[string]interface{}{
		"payment_at": paidAt,
	}); err != nil {
		return nil, err
	}
	application.PaymentAt = &paidAt

	result := &TransitionResult{Application: application}
	if err := s.notifier.SendStatusUpdate(ctx, application.Applicant, "payment received"); err != nil {
		result.EmailError = "applicant update could not be sent"
	}
	return result, nil
}

// MoveToUnderReview assigns the application to a reviewer.
func (s *ApplicationService) MoveToUnderReview(ctx context.Context, applicationID, reviewerID string) (*TransitionResult, error) {
	application, err := s.getWithApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	reviewedAt := s.now()
	if err := s.transition(ctx, application, models.ApplicationStatusUnderReview, map[string]interface{}{
		"reviewed_by": reviewerID,
		"reviewed_at": reviewedAt,
	}); err != nil {
		return nil, err
	}
	application.ReviewedBy = &reviewerID
	application.ReviewedAt = &reviewedAt
	return &TransitionResult{Application: application}, nil
}

// MoveToDocumentReview flags the supporting documents for checking and
// notifies the applicant and the membership team.
func (s *ApplicationService) MoveToDocumentReview(ctx context.Context, applicationID, reviewerID string) (*TransitionResult, error) {
	application, err := s.getWithApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	reviewedAt := s.now()
	if err := s.transition(ctx, application, models.ApplicationStatusDocumentReview, map[string]interface{}{
		"reviewed_by": reviewerID,
		"reviewed_at": reviewedAt,
	}); err != nil {
		return nil, err
	}
	application.ReviewedBy = &reviewerID
	application.ReviewedAt = &reviewedAt

	result := &TransitionResult{Application: application}
	var emailErrs []string
	if err := s.notifier.SendStatusUpdate(ctx, application.Applicant, "your documents are being reviewed"); err != nil {
		emailErrs = append(emailErrs, "applicant update")
	}
	if err := s.notifier.NotifyDocumentReview(ctx, application.Applicant); err != nil {
		emailErrs = append(emailErrs, "staff alert")
	}
	result.EmailError = joinEmailErrors(emailErrs)
	return result, nil
}

// Approve grants membership. The status update, the number mint and the
// member or organization insert commit in one transaction; the approval
// email is sent after commit and never rolls it back.
func (s *ApplicationService) Approve(ctx context.Context, applicationID, reviewerID string) (*TransitionResult, error) {
	application, err := s.getWithApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(application.Status, models.ApplicationStatusApproved) {
		return nil, illegalTransition(application.Status, models.ApplicationStatusApproved)
	}

	decidedAt := s.now()
	result := &TransitionResult{Application: application}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyTransition(ctx, tx, application, models.ApplicationStatusApproved, map[string]interface{}{
			"reviewed_by": reviewerID,
			"decided_at":  decidedAt,
		}); err != nil {
			return err
		}

		switch application.Kind {
		case models.ApplicantKindIndividual:
			member, err := s.createMember(ctx, tx, application, decidedAt)
			if err != nil {
				return err
			}
			result.Member = member
		case models.ApplicantKindOrganization:
			organization, err := s.createOrganization(ctx, tx, application, decidedAt)
			if err != nil {
				return err
			}
			result.Organization = organization
		default:
			return fmt.Errorf("unknown application kind %q", application.Kind)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	application.ReviewedBy = &reviewerID
	application.DecidedAt = &decidedAt

	number := ""
	if result.Member != nil {
		number = result.Member.MembershipNumber
	} else if result.Organization != nil {
		number = result.Organization.RegistrationNumber
	}
	s.log.Info("application approved",
		zap.String("tracking_number", application.Applicant.TrackingNumber),
		zap.String("number", number))

	if err := s.notifier.SendApprovalEmail(ctx, application.Applicant, number); err != nil {
		result.EmailError = "approval email could not be sent"
	}
	return result, nil
}

// Reject closes the application with a reason.
func (s *ApplicationService) Reject(ctx context.Context, applicationID, reviewerID, reason string) (*TransitionResult, error) {
	application, err := s.getWithApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	decidedAt := s.now()
	if err := s.transition(ctx, application, models.ApplicationStatusRejected, map[string]interface{}{
		"reviewed_by":      reviewerID,
		"decided_at":       decidedAt,
		"rejection_reason": reason,
	}); err != nil {
		return nil, err
	}
	application.ReviewedBy = &reviewerID
	application.DecidedAt = &decidedAt
	application.RejectionReason = reason

	result := &TransitionResult{Application: application}
	if err := s.notifier.SendRejectionEmail(ctx, application.Applicant, reason); err != nil {
		result.EmailError = "rejection email could not be sent"
	}
	return result, nil
}

// GetByID loads an application with its applicant and documents.
func (s *ApplicationService) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var application models.Application
	err := s.db.WithContext(ctx).
		Preload("Applicant").
		Preload("Documents").
		Preload("Payments").
		First(&application, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &application, nil
}

// ApplicationFilter narrows List results.
type ApplicationFilter struct {
	Status      string
	Kind        string
	ApplicantID string
	Page        int
	Limit       int
}

// List returns applications for the staff queue, oldest submissions first so
// the queue drains fairly.
func (s *ApplicationService) List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Application{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.ApplicantID != "" {
		query = query.Where("applicant_id = ?", filter.ApplicantID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	var applications []models.Application
	err := query.
		Preload("Applicant").
		Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&applications).Error
	if err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}
	return applications, total, nil
}

func (s *ApplicationService) getWithApplicant(ctx context.Context, id string) (*models.Application, error) {
	var application models.Application
	err := s.db.WithContext(ctx).
		Preload("Applicant").
		First(&application, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	if application.Applicant == nil {
		return nil, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("application %s has no applicant", id))
	}
	return &application, nil
}

// transition is the single-UPDATE path used by non-approval operations.
func (s *ApplicationService) transition(ctx context.Context, application *models.Application, target string, extra map[string]interface{}) error {
	if !transitionAllowed(application.Status, target) {
		return illegalTransition(application.Status, target)
	}
	return s.applyTransition(ctx, s.db, application, target, extra)
}

// applyTransition performs the guarded status UPDATE. The WHERE clause
// re-checks the current status so two concurrent reviewers cannot both win.
func (s *ApplicationService) applyTransition(ctx context.Context, tx *gorm.DB, application *models.Application, target string, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": target}
	for key, value := range extra {
		updates[key] = value
	}

	res := tx.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ? AND status = ?", application.ID, application.Status).
		Updates(updates)
	if res.Error != nil {
		return apperrors.ErrInternalServer.WithInternal(res.Error)
	}
	if res.RowsAffected == 0 {
		return illegalTransition(application.Status, target)
	}

	metrics.ApplicationTransitions.WithLabelValues(target).Inc()
	s.log.Info("application transition",
		zap.String("application_id", application.ID),
		zap.String("from", application.Status),
		zap.String("to", target))
	application.Status = target
	return nil
}

func (s *ApplicationService) createMember(ctx context.Context, tx *gorm.DB, application *models.Application, joinedAt time.Time) (*models.Member, error) {
	number, err := s.series.NextFormattedIn(ctx, tx, SeriesMemberNumber)
	if err != nil {
		return nil, err
	}

	personal := application.Personal.Data()
	firstName := personal.FirstName
	surname := personal.Surname
	if firstName == "" {
		firstName = application.Applicant.FirstName
	}
	if surname == "" {
		surname = application.Applicant.Surname
	}

	expiresAt := joinedAt.AddDate(1, 0, 0)
	member := &models.Member{
		MembershipNumber: number,
		ApplicantID:      application.ApplicantID,
		ApplicationID:    application.ID,
		FirstName:        firstName,
		Surname:          surname,
		Email:            application.Applicant.Email,
		Phone:            application.Applicant.Phone,
		Address:          application.Applicant.Address,
		Status:           models.MemberStatusActive,
		JoinedAt:         joinedAt,
		ExpiresAt:        &expiresAt,
	}
	if err := tx.Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (s *ApplicationService) createOrganization(ctx context.Context, tx *gorm.DB, application *models.Application, joinedAt time.Time) (*models.Organization, error) {
	number, err := s.series.NextFormattedIn(ctx, tx, SeriesOrganizationNumber)
	if err != nil {
		return nil, err
	}

	company := application.Company.Data()
	legalName := company.LegalName
	if legalName == "" {
		legalName = application.Applicant.OrganizationName
	}

	expiresAt := joinedAt.AddDate(1, 0, 0)
	organization := &models.Organization{
		RegistrationNumber: number,
		ApplicantID:        application.ApplicantID,
		ApplicationID:      application.ID,
		LegalName:          legalName,
		TradingName:        company.TradingName,
		Email:              application.Applicant.Email,
		Phone:              application.Applicant.Phone,
		Address:            application.Applicant.Address,
		Status:             models.MemberStatusActive,
		JoinedAt:           joinedAt,
		ExpiresAt:          &expiresAt,
	}
	if err := tx.Create(organization).Error; err != nil {
		return nil, err
	}
	return organization, nil
}

func illegalTransition(from, to string) *apperrors.AppError {
	return apperrors.NewConflict("ILLEGAL_TRANSITION",
		fmt.Sprintf("application cannot move from %s to %s", from, to))
}

func joinEmailErrors(failed []string) string {
	if len(failed) == 0 {
		return ""
	}
	return "email delivery failed: " + strings.Join(failed, ", ")
}
