// Package notifications renders and delivers the plain-text emails the
// membership workflow produces, and fans staff alerts out to role holders.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/pkg/logger"
	"github.com/eacouncil/membership/pkg/mail"
	"github.com/eacouncil/membership/pkg/metrics"
)

// Config carries the sender identity and the portal base URL used in links.
type Config struct {
	From    string
	BaseURL string
}

// Notifier sends workflow emails. Delivery failures are reported to the
// caller but never abort the triggering operation.
type Notifier struct {
	db     *gorm.DB
	mailer mail.Mailer
	cfg    Config
	log    *zap.Logger
}

func NewNotifier(db *gorm.DB, mailer mail.Mailer, cfg Config) (*Notifier, error) {
	if db == nil {
		return nil, fmt.Errorf("notifications: database is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("notifications: mailer is required")
	}
	if cfg.From == "" {
		cfg.From = "no-reply@eacouncil.example"
	}
	return &Notifier{db: db, mailer: mailer, cfg: cfg, log: logger.WithModule("notifications")}, nil
}

// SendVerificationEmail delivers the email-verification link issued at
// registration.
func (n *Notifier) SendVerificationEmail(ctx context.Context, applicant *models.Applicant, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(n.cfg.BaseURL, "/"), token)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Thank you for registering with the Engineering Accreditation Council.\n"+
			"Your tracking number is %s.\n\n"+
			"Please verify your email address by visiting:\n%s\n\n"+
			"The link expires in 48 hours. If you did not register, ignore this email.\n",
		applicant.DisplayName(), applicant.TrackingNumber, link)

	return n.send(ctx, []string{applicant.Email}, "Verify your email address", body)
}

// SendSubmissionReceipt confirms to the applicant that their application
// entered the review queue.
func (n *Notifier) SendSubmissionReceipt(ctx context.Context, applicant *models.Applicant) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your membership application %s has been received and is awaiting payment.\n"+
			"You can follow its progress on the portal using your tracking number.\n",
		applicant.DisplayName(), applicant.TrackingNumber)

	return n.send(ctx, []string{applicant.Email}, "Application received", body)
}

// SendApprovalEmail tells the applicant their membership was granted.
func (n *Notifier) SendApprovalEmail(ctx context.Context, applicant *models.Applicant, memberNumber string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Congratulations. Your membership application %s has been approved.\n"+
			"Your membership number is %s.\n",
		applicant.DisplayName(), applicant.TrackingNumber, memberNumber)

	return n.send(ctx, []string{applicant.Email}, "Membership approved", body)
}

// SendStatusUpdate tells the applicant their application moved to a new
// stage, phrased in plain language.
func (n *Notifier) SendStatusUpdate(ctx context.Context, applicant *models.Applicant, stage string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your membership application %s has progressed: %s.\n"+
			"No action is required unless the council contacts you.\n",
		applicant.DisplayName(), applicant.TrackingNumber, stage)

	return n.send(ctx, []string{applicant.Email}, "Application update: "+applicant.TrackingNumber, body)
}

// SendRejectionEmail tells the applicant the outcome and the recorded reason.
func (n *Notifier) SendRejectionEmail(ctx context.Context, applicant *models.Applicant, reason string) error {
	if reason == "" {
		reason = "not specified"
	}
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"We regret to inform you that your membership application %s was not successful.\n"+
			"Reason: %s\n\n"+
			"You may contact the council office for further guidance.\n",
		applicant.DisplayName(), applicant.TrackingNumber, reason)

	return n.send(ctx, []string{applicant.Email}, "Membership application outcome", body)
}

// NotifyStaff emails every active staff user holding any of the given roles.
// Missing recipients are not an error; there is simply no one to alert.
func (n *Notifier) NotifyStaff(ctx context.Context, roles []string, subject, body string) error {
	recipients, err := n.staffEmails(roles)
	if err != nil {
		return fmt.Errorf("notifications: resolve staff recipients: %w", err)
	}
	if len(recipients) == 0 {
		n.log.Warn("no staff recipients for alert", zap.Strings("roles", roles))
		return nil
	}
	return n.send(ctx, recipients, subject, body)
}

// NotifySubmission alerts the membership team that a new application needs
// attention.
func (n *Notifier) NotifySubmission(ctx context.Context, applicant *models.Applicant) error {
	body := fmt.Sprintf(
		"Application %s (%s, %s) has been submitted and is awaiting processing.\n",
		applicant.TrackingNumber, applicant.DisplayName(), applicant.Kind)

	return n.NotifyStaff(ctx,
		[]string{models.RoleAdmin, models.RoleMemberManager},
		"New membership application: "+applicant.TrackingNumber, body)
}

// NotifyDocumentReview alerts reviewers that an application's documents are
// ready for checking.
func (n *Notifier) NotifyDocumentReview(ctx context.Context, applicant *models.Applicant) error {
	body := fmt.Sprintf(
		"Application %s (%s) has moved to document review.\n",
		applicant.TrackingNumber, applicant.DisplayName())

	return n.NotifyStaff(ctx,
		[]string{models.RoleAdmin, models.RoleMemberManager},
		"Documents ready for review: "+applicant.TrackingNumber, body)
}

func (n *Notifier) staffEmails(roles []string) ([]string, error) {
	var users []models.StaffUser
	err := n.db.
		Joins("JOIN staff_user_roles ON staff_user_roles.staff_user_id = staff_users.id").
		Joins("JOIN roles ON roles.id = staff_user_roles.role_id").
		Where("roles.id IN ?", roles).
		Where("staff_users.is_active = ?", true).
		Distinct("staff_users.email").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(users))
	for _, user := range users {
		emails = append(emails, user.Email)
	}
	return emails, nil
}

func (n *Notifier) send(ctx context.Context, to []string, subject, body string) error {
	err := n.mailer.Send(ctx, mail.Message{
		From:    n.cfg.From,
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		n.log.Error("email delivery failed", zap.String("subject", subject), zap.Error(err))
		return err
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	return nil
}
