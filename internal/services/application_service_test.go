package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/database/testutil"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/notifications"
	apperrors "github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/mail"
)

type lifecycleFixture struct {
	db           *gorm.DB
	applications *ApplicationService
	recorder     *mail.Recorder
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	recorder := mail.NewRecorder()
	notifier, err := notifications.NewNotifier(db, recorder, notifications.Config{
		From:    "no-reply@eacouncil.example",
		BaseURL: "https://portal.eacouncil.example",
	})
	require.NoError(t, err)

	series, err := NewNamingSeriesService(db)
	require.NoError(t, err)
	series.WithClock(fixedClock(2026))

	applications, err := NewApplicationService(db, series, notifier)
	require.NoError(t, err)
	applications.WithClock(fixedClock(2026))

	return &lifecycleFixture{db: db, applications: applications, recorder: recorder}
}

func (f *lifecycleFixture) seedApplication(t *testing.T, kind, status string) *models.Application {
	t.Helper()

	applicant := &models.Applicant{
		Kind:             kind,
		Status:           models.ApplicantStatusEmailVerified,
		TrackingNumber:   "MBR-APP-2026-" + randomSuffix(t),
		FirstName:        "Jane",
		Surname:          "Doe",
		OrganizationName: "Acme Engineering Ltd",
		Email:            "applicant-" + randomSuffix(t) + "@example.com",
	}
	require.NoError(t, f.db.Create(applicant).Error)

	application := &models.Application{
		ApplicantID:     applicant.ID,
		Kind:            kind,
		Status:          status,
		SectionsVersion: models.SectionsVersion,
	}
	require.NoError(t, f.db.Create(application).Error)
	application.Applicant = applicant
	return application
}

func randomSuffix(t *testing.T) string {
	t.Helper()
	return uuid.NewString()[:8]
}

func TestSubmitMovesDraftForward(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusDraft)

	result, err := f.applications.Submit(context.Background(), application.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusSubmitted, result.Application.Status)
	require.NotNil(t, result.Application.SubmittedAt)
	require.Empty(t, result.EmailError, "staff alert with no recipients is not a failure")

	var stored models.Application
	require.NoError(t, f.db.First(&stored, "id = ?", application.ID).Error)
	require.Equal(t, models.ApplicationStatusSubmitted, stored.Status)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusDraft)

	_, err := f.applications.Submit(context.Background(), application.ID)
	require.NoError(t, err)

	_, err = f.applications.Submit(context.Background(), application.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
	require.Equal(t, "ILLEGAL_TRANSITION", appErr.Code)
}

func TestApproveFromDraftIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusDraft)

	_, err := f.applications.Approve(context.Background(), application.ID, "reviewer-1")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "ILLEGAL_TRANSITION", appErr.Code)

	var members int64
	require.NoError(t, f.db.Model(&models.Member{}).Count(&members).Error)
	require.Zero(t, members, "no member row without a legal approval")
}

func TestBackwardTransitionIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusUnderReview)

	_, err := f.applications.Submit(context.Background(), application.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "ILLEGAL_TRANSITION", appErr.Code)
}

func TestPaymentMayBeSkipped(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusSubmitted)

	result, err := f.applications.MoveToDocumentReview(context.Background(), application.ID, "reviewer-1")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusDocumentReview, result.Application.Status)
}

func TestApproveCreatesMemberAtomically(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusDocumentReview)

	result, err := f.applications.Approve(context.Background(), application.ID, "reviewer-1")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApproved, result.Application.Status)
	require.NotNil(t, result.Member)
	require.Regexp(t, `^EAC-MBR-2026-\d{4}$`, result.Member.MembershipNumber)
	require.Equal(t, "Jane", result.Member.FirstName)
	require.Equal(t, models.MemberStatusActive, result.Member.Status)

	var stored models.Member
	require.NoError(t, f.db.First(&stored, "application_id = ?", application.ID).Error)
	require.Equal(t, result.Member.MembershipNumber, stored.MembershipNumber)
}

func TestApproveOrganizationCreatesOrganization(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindOrganization, models.ApplicationStatusDocumentReview)

	result, err := f.applications.Approve(context.Background(), application.ID, "reviewer-1")
	require.NoError(t, err)
	require.Nil(t, result.Member)
	require.NotNil(t, result.Organization)
	require.Regexp(t, `^EAC-ORG-2026-\d{4}$`, result.Organization.RegistrationNumber)
	require.Equal(t, "Acme Engineering Ltd", result.Organization.LegalName)
}

func TestApproveAfterDecisionIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusDocumentReview)

	_, err := f.applications.Approve(context.Background(), application.ID, "reviewer-1")
	require.NoError(t, err)

	_, err = f.applications.Approve(context.Background(), application.ID, "reviewer-2")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "ILLEGAL_TRANSITION", appErr.Code)

	var members int64
	require.NoError(t, f.db.Model(&models.Member{}).Count(&members).Error)
	require.EqualValues(t, 1, members)
}

func TestRejectRecordsReason(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusUnderReview)

	result, err := f.applications.Reject(context.Background(), application.ID, "reviewer-1", "incomplete qualifications")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, result.Application.Status)

	var stored models.Application
	require.NoError(t, f.db.First(&stored, "id = ?", application.ID).Error)
	require.Equal(t, "incomplete qualifications", stored.RejectionReason)
}

func TestEmailFailureIsNonFatal(t *testing.T) {
	f := newLifecycleFixture(t)
	application := f.seedApplication(t, models.ApplicantKindIndividual, models.ApplicationStatusDraft)
	f.recorder.FailWith = errors.New("smtp unreachable")

	result, err := f.applications.Submit(context.Background(), application.ID)
	require.NoError(t, err, "transition committed despite delivery failure")
	require.Contains(t, result.EmailError, "email delivery failed")

	var stored models.Application
	require.NoError(t, f.db.First(&stored, "id = ?", application.ID).Error)
	require.Equal(t, models.ApplicationStatusSubmitted, stored.Status)
}

func TestTransitionNotFound(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.applications.Submit(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
