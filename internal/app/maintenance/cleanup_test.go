package maintenance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/eacouncil/membership/internal/auth"
	testutil "github.com/eacouncil/membership/internal/database/testutil"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/services"
)

type fixedClock struct {
	current time.Time
}

func (c fixedClock) Now() time.Time { return c.current }

func seedApplicant(t *testing.T, db *gorm.DB, n int, tokenHash string, expiresAt *time.Time) models.Applicant {
	t.Helper()
	applicant := models.Applicant{
		Kind:                  models.ApplicantKindIndividual,
		Status:                models.ApplicantStatusRegistered,
		TrackingNumber:        fmt.Sprintf("MBR-APP-2026-%04d", n),
		FirstName:             "Test",
		Surname:               fmt.Sprintf("Applicant%d", n),
		Email:                 fmt.Sprintf("applicant%d@example.com", n),
		VerificationTokenHash: tokenHash,
		VerificationExpiresAt: expiresAt,
	}
	require.NoError(t, db.Create(&applicant).Error)
	return applicant
}

func TestCleanupVerificationTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	staleExpiry := now.Add(-time.Hour)
	freshExpiry := now.Add(time.Hour)

	stale := seedApplicant(t, db, 1, "hash-stale", &staleExpiry)
	fresh := seedApplicant(t, db, 2, "hash-fresh", &freshExpiry)
	verified := seedApplicant(t, db, 3, "", nil)

	cleared, err := CleanupVerificationTokens(context.Background(), db, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), cleared)

	var reloadedStale models.Applicant
	require.NoError(t, db.First(&reloadedStale, "id = ?", stale.ID).Error)
	require.Empty(t, reloadedStale.VerificationTokenHash)
	require.Nil(t, reloadedStale.VerificationExpiresAt)

	var reloadedFresh models.Applicant
	require.NoError(t, db.First(&reloadedFresh, "id = ?", fresh.ID).Error)
	require.Equal(t, "hash-fresh", reloadedFresh.VerificationTokenHash)

	var reloadedVerified models.Applicant
	require.NoError(t, db.First(&reloadedVerified, "id = ?", verified.ID).Error)
	require.Empty(t, reloadedVerified.VerificationTokenHash)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	clock := fixedClock{current: time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)}

	sessionSvc, err := iauth.NewSessionService(db, iauth.SessionConfig{TTL: time.Hour})
	require.NoError(t, err)
	sessionSvc.WithClock(clock.Now)

	memberSvc, err := services.NewMemberService(db)
	require.NoError(t, err)
	memberSvc.WithClock(clock.Now)

	orgSvc, err := services.NewOrganizationService(db)
	require.NoError(t, err)
	orgSvc.WithClock(clock.Now)

	staff := models.StaffUser{
		Username: "cleanup-staff",
		Email:    "cleanup@example.com",
		Password: "irrelevant",
		IsActive: true,
	}
	require.NoError(t, db.Create(&staff).Error)

	expiredSession := models.Session{
		StaffUserID: staff.ID,
		TokenHash:   "session-expired",
		ExpiresAt:   clock.Now().Add(-2 * time.Hour),
	}
	activeSession := models.Session{
		StaffUserID: staff.ID,
		TokenHash:   "session-active",
		ExpiresAt:   clock.Now().Add(2 * time.Hour),
	}
	require.NoError(t, db.Create(&expiredSession).Error)
	require.NoError(t, db.Create(&activeSession).Error)

	staleExpiry := clock.Now().Add(-time.Hour)
	seedApplicant(t, db, 10, "hash-stale", &staleExpiry)

	pastDue := clock.Now().AddDate(-1, 0, 0)
	stillValid := clock.Now().AddDate(0, 6, 0)
	require.NoError(t, db.Create(&models.Member{
		MembershipNumber: "EAC-MBR-2025-0001",
		ApplicantID:      uuid.NewString(),
		ApplicationID:    uuid.NewString(),
		FirstName:        "Lapsed",
		Surname:          "Member",
		Email:            "lapsed@example.com",
		Status:           models.MemberStatusActive,
		ExpiresAt:        &pastDue,
	}).Error)
	require.NoError(t, db.Create(&models.Member{
		MembershipNumber: "EAC-MBR-2026-0001",
		ApplicantID:      uuid.NewString(),
		ApplicationID:    uuid.NewString(),
		FirstName:        "Current",
		Surname:          "Member",
		Email:            "current@example.com",
		Status:           models.MemberStatusActive,
		ExpiresAt:        &stillValid,
	}).Error)
	require.NoError(t, db.Create(&models.Organization{
		RegistrationNumber: "EAC-ORG-2025-0001",
		ApplicantID:        uuid.NewString(),
		ApplicationID:      uuid.NewString(),
		LegalName:          "Stale Engineering Ltd",
		Email:              "stale@example.com",
		Status:             models.MemberStatusActive,
		ExpiresAt:          &pastDue,
	}).Error)

	c := NewCleaner(db, sessionSvc, memberSvc, orgSvc,
		WithNow(clock.Now),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, c.RunOnce(context.Background()))

	var session models.Session
	err = db.First(&session, "id = ?", expiredSession.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.NoError(t, db.First(&session, "id = ?", activeSession.ID).Error)

	var applicant models.Applicant
	require.NoError(t, db.First(&applicant, "email = ?", "applicant10@example.com").Error)
	require.Empty(t, applicant.VerificationTokenHash)

	var lapsedCount int64
	require.NoError(t, db.Model(&models.Member{}).
		Where("status = ?", models.MemberStatusLapsed).
		Count(&lapsedCount).Error)
	require.Equal(t, int64(1), lapsedCount)

	var org models.Organization
	require.NoError(t, db.First(&org, "registration_number = ?", "EAC-ORG-2025-0001").Error)
	require.Equal(t, models.MemberStatusLapsed, org.Status)
}

func TestCleanerSkipsNilDependencies(t *testing.T) {
	c := NewCleaner(nil, nil, nil, nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
	c.Stop()
}
