package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/database/testutil"
	"github.com/eacouncil/membership/internal/models"
	apperrors "github.com/eacouncil/membership/pkg/errors"
)

func seedMember(t *testing.T, db *gorm.DB, number, status string, expiresAt *time.Time) *models.Member {
	t.Helper()

	member := &models.Member{
		MembershipNumber: number,
		ApplicantID:      uuidString(t),
		ApplicationID:    uuidString(t),
		FirstName:        "Jane",
		Surname:          "Doe",
		Email:            number + "@example.com",
		Status:           status,
		JoinedAt:         fixedClock(2026)(),
		ExpiresAt:        expiresAt,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func uuidString(t *testing.T) string {
	t.Helper()
	return "00000000-0000-4000-8000-" + randomSuffix(t) + "0000"
}

func TestMemberRenewExtendsFromExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewMemberService(db)
	require.NoError(t, err)
	svc.WithClock(fixedClock(2026))

	expiry := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	member := seedMember(t, db, "EAC-MBR-2026-0001", models.MemberStatusActive, &expiry)

	renewed, err := svc.Renew(context.Background(), member.ID)
	require.NoError(t, err)
	require.Equal(t, models.MemberStatusActive, renewed.Status)
	require.Equal(t, expiry.AddDate(1, 0, 0), renewed.ExpiresAt.UTC(), "renewal extends the unexpired term")
	require.NotNil(t, renewed.RenewedAt)
}

func TestMemberRenewReactivatesLapsed(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewMemberService(db)
	require.NoError(t, err)
	svc.WithClock(fixedClock(2026))

	expiry := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	member := seedMember(t, db, "EAC-MBR-2025-0001", models.MemberStatusLapsed, &expiry)

	renewed, err := svc.Renew(context.Background(), member.ID)
	require.NoError(t, err)
	require.Equal(t, models.MemberStatusActive, renewed.Status)
	require.Equal(t, fixedClock(2026)().AddDate(1, 0, 0), renewed.ExpiresAt.UTC(), "lapsed renewal counts from today")
}

func TestMemberRenewRefusesSuspended(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewMemberService(db)
	require.NoError(t, err)

	member := seedMember(t, db, "EAC-MBR-2026-0002", models.MemberStatusSuspended, nil)

	_, err = svc.Renew(context.Background(), member.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "MEMBER_SUSPENDED", appErr.Code)
}

func TestMemberUpdateProfile(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewMemberService(db)
	require.NoError(t, err)

	member := seedMember(t, db, "EAC-MBR-2026-0003", models.MemberStatusActive, nil)

	phone := "+263 77 000 0000"
	updated, err := svc.UpdateProfile(context.Background(), member.ID, UpdateProfileInput{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, phone, updated.Phone)
	require.Equal(t, member.MembershipNumber, updated.MembershipNumber)
}

func TestLapseExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewMemberService(db)
	require.NoError(t, err)
	svc.WithClock(fixedClock(2026))

	past := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	expired := seedMember(t, db, "EAC-MBR-2025-0010", models.MemberStatusActive, &past)
	current := seedMember(t, db, "EAC-MBR-2026-0010", models.MemberStatusActive, &future)

	lapsed, err := svc.LapseExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, lapsed)

	got, err := svc.GetByID(context.Background(), expired.ID)
	require.NoError(t, err)
	require.Equal(t, models.MemberStatusLapsed, got.Status)

	got, err = svc.GetByID(context.Background(), current.ID)
	require.NoError(t, err)
	require.Equal(t, models.MemberStatusActive, got.Status)
}

func TestMemberListPagination(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewMemberService(db)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		seedMember(t, db, "EAC-MBR-2026-000"+string(rune('1'+i)), models.MemberStatusActive, nil)
	}

	page1, total, err := svc.List(context.Background(), MemberFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page1, 2)
	require.Equal(t, "EAC-MBR-2026-0001", page1[0].MembershipNumber)

	page3, _, err := svc.List(context.Background(), MemberFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page3, 1)
}
