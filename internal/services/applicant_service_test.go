package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/database/testutil"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/notifications"
	apperrors "github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/mail"
)

var verificationTokenRe = regexp.MustCompile(`verify-email\?token=([A-Za-z0-9_-]+)`)

type applicantFixture struct {
	db         *gorm.DB
	applicants *ApplicantService
	recorder   *mail.Recorder
}

func newApplicantFixture(t *testing.T) *applicantFixture {
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

	applicants, err := NewApplicantService(db, series, notifier)
	require.NoError(t, err)
	applicants.WithClock(fixedClock(2026))

	return &applicantFixture{db: db, applicants: applicants, recorder: recorder}
}

func (f *applicantFixture) issuedToken(t *testing.T) string {
	t.Helper()
	messages := f.recorder.Messages()
	require.NotEmpty(t, messages)
	match := verificationTokenRe.FindStringSubmatch(messages[len(messages)-1].Body)
	require.Len(t, match, 2, "verification email must carry the token link")
	return match[1]
}

func TestRegisterMintsTrackingNumber(t *testing.T) {
	f := newApplicantFixture(t)

	result, err := f.applicants.Register(context.Background(), RegisterInput{
		Kind:      models.ApplicantKindIndividual,
		FirstName: "Jane",
		Surname:   "Doe",
		Email:     "Jane.Doe@Example.com",
	})
	require.NoError(t, err)
	require.Regexp(t, `^MBR-APP-\d{4}-\d{4}$`, result.Applicant.TrackingNumber)
	require.Equal(t, "jane.doe@example.com", result.Applicant.Email, "email is normalized")
	require.Equal(t, models.ApplicantStatusRegistered, result.Applicant.Status)
	require.Empty(t, result.EmailError)

	require.Len(t, f.recorder.Messages(), 1)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	f := newApplicantFixture(t)

	input := RegisterInput{
		Kind:      models.ApplicantKindIndividual,
		FirstName: "Jane",
		Surname:   "Doe",
		Email:     "jane@example.com",
	}
	_, err := f.applicants.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = f.applicants.Register(context.Background(), input)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_EXISTS", appErr.Code)
	require.Equal(t, 409, appErr.StatusCode)
}

func TestRegisterOrganizationRequiresName(t *testing.T) {
	f := newApplicantFixture(t)

	_, err := f.applicants.Register(context.Background(), RegisterInput{
		Kind:  models.ApplicantKindOrganization,
		Email: "org@example.com",
	})
	require.Error(t, err)

	result, err := f.applicants.Register(context.Background(), RegisterInput{
		Kind:             models.ApplicantKindOrganization,
		OrganizationName: "Acme Engineering Ltd",
		Email:            "org@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, models.ApplicantKindOrganization, result.Applicant.Kind)
	require.Regexp(t, `^ORG-APP-\d{4}-\d{4}$`, result.Applicant.TrackingNumber)
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	f := newApplicantFixture(t)

	_, err := f.applicants.Register(context.Background(), RegisterInput{
		Kind:      models.ApplicantKindIndividual,
		FirstName: "Jane",
		Surname:   "Doe",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)
	token := f.issuedToken(t)

	applicant, err := f.applicants.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, models.ApplicantStatusEmailVerified, applicant.Status)
	require.NotNil(t, applicant.EmailVerifiedAt)

	// One-time: the hash is cleared, so replaying the token fails.
	_, err = f.applicants.VerifyEmail(context.Background(), token)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_TOKEN", appErr.Code)
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	f := newApplicantFixture(t)

	_, err := f.applicants.Register(context.Background(), RegisterInput{
		Kind:      models.ApplicantKindIndividual,
		FirstName: "Jane",
		Surname:   "Doe",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)
	token := f.issuedToken(t)

	// Advance past the 48 hour window.
	f.applicants.WithClock(func() time.Time {
		return fixedClock(2026)().Add(DefaultVerificationTTL + time.Hour)
	})

	_, err = f.applicants.VerifyEmail(context.Background(), token)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "TOKEN_EXPIRED", appErr.Code)
}

func TestSaveDraftRequiresVerifiedEmail(t *testing.T) {
	f := newApplicantFixture(t)

	result, err := f.applicants.Register(context.Background(), RegisterInput{
		Kind:      models.ApplicantKindIndividual,
		FirstName: "Jane",
		Surname:   "Doe",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)

	_, err = f.applicants.SaveDraft(context.Background(), result.Applicant.ID, DraftInput{})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_NOT_VERIFIED", appErr.Code)
}

func TestSaveDraftUpsertsSections(t *testing.T) {
	f := newApplicantFixture(t)

	result, err := f.applicants.Register(context.Background(), RegisterInput{
		Kind:      models.ApplicantKindIndividual,
		FirstName: "Jane",
		Surname:   "Doe",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)
	_, err = f.applicants.VerifyEmail(context.Background(), f.issuedToken(t))
	require.NoError(t, err)

	first, err := f.applicants.SaveDraft(context.Background(), result.Applicant.ID, DraftInput{
		Personal: &models.PersonalSection{FirstName: "Jane", Surname: "Doe", NationalID: "12-345678"},
	})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusDraft, first.Status)

	// A later step only sends its own section; earlier ones survive.
	second, err := f.applicants.SaveDraft(context.Background(), result.Applicant.ID, DraftInput{
		Education: &models.EducationSection{HighestQualification: "BEng", Institution: "UZ", YearCompleted: 2020},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "draft is upserted, not duplicated")
	require.Equal(t, "12-345678", second.Personal.Data().NationalID)
	require.Equal(t, "BEng", second.Education.Data().HighestQualification)
}

func TestListApplicantsFilters(t *testing.T) {
	f := newApplicantFixture(t)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := f.applicants.Register(context.Background(), RegisterInput{
			Kind:      models.ApplicantKindIndividual,
			FirstName: "Test",
			Surname:   "User",
			Email:     email,
		})
		require.NoError(t, err)
	}

	all, total, err := f.applicants.List(context.Background(), ApplicantFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, all, 2)

	filtered, total, err := f.applicants.List(context.Background(), ApplicantFilter{Search: "a@example"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "a@example.com", filtered[0].Email)
}
