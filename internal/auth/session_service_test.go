package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/database/testutil"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/pkg/crypto"
)

func seedStaffUser(t *testing.T, db *gorm.DB, username, password string, active bool) *models.StaffUser {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := models.StaffUser{
		Username: username,
		Email:    username + "@council.example",
		Password: hash,
		IsActive: active,
	}
	require.NoError(t, db.Create(&user).Error)
	// IsActive carries a `default:true` tag, so GORM omits the zero value
	// from the INSERT; persist the requested flag explicitly.
	require.NoError(t, db.Model(&user).Update("is_active", active).Error)
	return &user
}

func TestSessionLoginAndAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedStaffUser(t, db, "reviewer", "pass-word-123", true)

	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	user, token, err := svc.Login(context.Background(), "reviewer", "pass-word-123", "10.0.0.1", "go-test")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "reviewer", user.Username)

	authed, session, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
	require.Equal(t, user.ID, session.StaffUserID)

	// Token is stored hashed, never in the clear.
	var stored models.Session
	require.NoError(t, db.First(&stored).Error)
	require.NotEqual(t, token, stored.TokenHash)
}

func TestSessionLoginRejectsBadCredentials(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedStaffUser(t, db, "reviewer", "pass-word-123", true)

	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "reviewer", "wrong", "", "")
	require.ErrorIs(t, err, ErrBadCredentials)

	_, _, err = svc.Login(context.Background(), "nobody", "pass-word-123", "", "")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestSessionLoginRejectsDisabledAccount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedStaffUser(t, db, "departed", "pass-word-123", false)

	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "departed", "pass-word-123", "", "")
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestSessionExpiryAndLogout(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedStaffUser(t, db, "reviewer", "pass-word-123", true)

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewSessionService(db, SessionConfig{TTL: time.Hour})
	require.NoError(t, err)
	svc.WithClock(func() time.Time { return current })

	_, token, err := svc.Login(context.Background(), "reviewer", "pass-word-123", "", "")
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, _, err = svc.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, ErrSessionExpired)

	// A fresh session can be revoked explicitly.
	_, token, err = svc.Login(context.Background(), "reviewer", "pass-word-123", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), token))

	_, _, err = svc.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestSessionCleanupExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedStaffUser(t, db, "reviewer", "pass-word-123", true)

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewSessionService(db, SessionConfig{TTL: time.Hour})
	require.NoError(t, err)
	svc.WithClock(func() time.Time { return current })

	_, _, err = svc.Login(context.Background(), "reviewer", "pass-word-123", "", "")
	require.NoError(t, err)

	current = current.Add(3 * time.Hour)
	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}
