package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/database/testutil"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/pkg/mail"
)

func newTestNotifier(t *testing.T) (*Notifier, *mail.Recorder, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	recorder := mail.NewRecorder()
	notifier, err := NewNotifier(db, recorder, Config{
		From:    "no-reply@eacouncil.example",
		BaseURL: "https://portal.eacouncil.example",
	})
	require.NoError(t, err)
	return notifier, recorder, db
}

func seedStaff(t *testing.T, db *gorm.DB, username, email, roleName string, active bool) {
	t.Helper()

	var role models.Role
	require.NoError(t, db.First(&role, "id = ?", roleName).Error)

	user := models.StaffUser{
		Username: username,
		Email:    email,
		IsActive: active,
		Roles:    []models.Role{role},
	}
	require.NoError(t, db.Create(&user).Error)
	// IsActive carries a `default:true` tag, so GORM omits the zero value
	// from the INSERT; persist the requested flag explicitly.
	require.NoError(t, db.Model(&user).Update("is_active", active).Error)
}

func testApplicant() *models.Applicant {
	return &models.Applicant{
		Kind:           models.ApplicantKindIndividual,
		TrackingNumber: "MBR-APP-2026-0001",
		FirstName:      "Jane",
		Surname:        "Doe",
		Email:          "jane.doe@example.com",
	}
}

func TestSendVerificationEmail(t *testing.T) {
	notifier, recorder, _ := newTestNotifier(t)

	require.NoError(t, notifier.SendVerificationEmail(context.Background(), testApplicant(), "tok123"))

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, []string{"jane.doe@example.com"}, messages[0].To)
	require.Contains(t, messages[0].Body, "https://portal.eacouncil.example/verify-email?token=tok123")
	require.Contains(t, messages[0].Body, "MBR-APP-2026-0001")
}

func TestNotifySubmissionFansOutToActiveRoleHolders(t *testing.T) {
	notifier, recorder, db := newTestNotifier(t)

	seedStaff(t, db, "admin1", "admin@eacouncil.example", models.RoleAdmin, true)
	seedStaff(t, db, "mgr1", "manager@eacouncil.example", models.RoleMemberManager, true)
	seedStaff(t, db, "acct1", "accounts@eacouncil.example", models.RoleAccountant, true)
	seedStaff(t, db, "mgr2", "former@eacouncil.example", models.RoleMemberManager, false)

	require.NoError(t, notifier.NotifySubmission(context.Background(), testApplicant()))

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	require.ElementsMatch(t,
		[]string{"admin@eacouncil.example", "manager@eacouncil.example"},
		messages[0].To,
		"accountants and deactivated staff are not alerted")
	require.Contains(t, messages[0].Subject, "MBR-APP-2026-0001")
}

func TestNotifyStaffWithNoRecipientsIsNotAnError(t *testing.T) {
	notifier, recorder, _ := newTestNotifier(t)

	require.NoError(t, notifier.NotifyStaff(context.Background(), []string{models.RoleAdmin}, "subject", "body"))
	require.Empty(t, recorder.Messages())
}

func TestSendRejectionEmailDefaultsReason(t *testing.T) {
	notifier, recorder, _ := newTestNotifier(t)

	require.NoError(t, notifier.SendRejectionEmail(context.Background(), testApplicant(), ""))

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	require.Contains(t, messages[0].Body, "Reason: not specified")
}

func TestSendReportsDeliveryFailure(t *testing.T) {
	notifier, recorder, _ := newTestNotifier(t)
	recorder.FailWith = errors.New("connection refused")

	err := notifier.SendSubmissionReceipt(context.Background(), testApplicant())
	require.Error(t, err)
}

func TestOrganizationSalutationUsesOrganizationName(t *testing.T) {
	notifier, recorder, _ := newTestNotifier(t)

	applicant := &models.Applicant{
		Kind:             models.ApplicantKindOrganization,
		TrackingNumber:   "MBR-APP-2026-0002",
		OrganizationName: "Acme Engineering Ltd",
		Email:            "contact@acme.example",
	}
	require.NoError(t, notifier.SendApprovalEmail(context.Background(), applicant, "EAC-ORG-2026-0001"))

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	require.Contains(t, messages[0].Body, "Dear Acme Engineering Ltd")
	require.Contains(t, messages[0].Body, "EAC-ORG-2026-0001")
}
