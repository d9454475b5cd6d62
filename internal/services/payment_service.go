package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/payments"
	apperrors "github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/logger"
)

// PaymentService records application fees and reconciles gateway
// notifications against them.
type PaymentService struct {
	db           *gorm.DB
	series       *NamingSeriesService
	gateway      payments.Gateway
	applications *ApplicationService
	log          *zap.Logger
	now          func() time.Time
}

func NewPaymentService(db *gorm.DB, series *NamingSeriesService, gateway payments.Gateway, applications *ApplicationService) (*PaymentService, error) {
	if db == nil {
		return nil, fmt.Errorf("payment service requires a database connection")
	}
	if series == nil {
		return nil, fmt.Errorf("payment service requires a naming series service")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment service requires a gateway")
	}
	if applications == nil {
		return nil, fmt.Errorf("payment service requires the application service")
	}
	return &PaymentService{
		db:           db,
		series:       series,
		gateway:      gateway,
		applications: applications,
		log:          logger.WithModule("payments"),
		now:          time.Now,
	}, nil
}

// Initiate registers an expected fee for the application and moves it to
// payment_pending, returning the gateway redirect.
func (s *PaymentService) Initiate(ctx context.Context, applicationID string, amount decimal.Decimal, currency string) (*payments.InitiatedPayment, error) {
	if !s.gateway.Enabled() {
		return nil, payments.ErrPaymentsDisabled
	}
	if currency == "" {
		currency = "USD"
	}

	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if application.Terminal() {
		return nil, apperrors.NewConflict("APPLICATION_CLOSED", "cannot take payment on a decided application")
	}

	reference, err := s.series.NextFormatted(ctx, SeriesPaymentReference)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	payment := &models.Payment{
		ApplicationID: application.ID,
		Reference:     reference,
		Amount:        amount,
		Currency:      currency,
		Gateway:       "form",
		Status:        models.PaymentStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if application.Status == models.ApplicationStatusSubmitted {
		if _, err := s.applications.MarkPaymentPending(ctx, application.ID, nil); err != nil {
			return nil, err
		}
	}

	initiated, err := s.gateway.InitiatePayment(ctx, reference, amount, currency)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment initiated", zap.String("reference", reference), zap.String("application_id", application.ID))
	return initiated, nil
}

// HandleNotification reconciles a verified gateway callback. Confirming an
// already-confirmed payment is a no-op, so gateway retries are safe.
func (s *PaymentService) HandleNotification(ctx context.Context, notification *payments.Notification) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Where("reference = ?", notification.Reference).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New("UNKNOWN_PAYMENT", "no payment matches this reference", 404)
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if payment.Status == models.PaymentStatusConfirmed {
		return &payment, nil
	}

	if !notification.Succeeded {
		updates := map[string]interface{}{
			"status":       models.PaymentStatusFailed,
			"failure_code": "gateway_declined",
		}
		if err := s.db.WithContext(ctx).Model(&payment).Updates(updates).Error; err != nil {
			return nil, apperrors.ErrInternalServer.WithInternal(err)
		}
		payment.Status = models.PaymentStatusFailed
		return &payment, nil
	}

	if !notification.Amount.Equal(payment.Amount) {
		return nil, apperrors.NewConflict("AMOUNT_MISMATCH",
			fmt.Sprintf("expected %s, gateway reported %s", payment.Amount.StringFixed(2), notification.Amount.StringFixed(2)))
	}

	confirmedAt := s.now()
	updates := map[string]interface{}{
		"status":       models.PaymentStatusConfirmed,
		"confirmed_at": confirmedAt,
	}
	if err := s.db.WithContext(ctx).Model(&payment).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	payment.Status = models.PaymentStatusConfirmed
	payment.ConfirmedAt = &confirmedAt

	if _, err := s.applications.RecordPaymentReceived(ctx, payment.ApplicationID); err != nil {
		// The money is recorded; a transition conflict only means staff
		// already moved the application on.
		s.log.Warn("payment confirmed but application transition refused",
			zap.String("reference", payment.Reference), zap.Error(err))
	}

	s.log.Info("payment confirmed", zap.String("reference", payment.Reference))
	return &payment, nil
}

// PaymentFilter narrows List results.
type PaymentFilter struct {
	Status        string
	ApplicationID string
	Page          int
	Limit         int
}

// List returns payments for the accounting views, newest first.
func (s *PaymentService) List(ctx context.Context, filter PaymentFilter) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ApplicationID != "" {
		query = query.Where("application_id = ?", filter.ApplicationID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	var rows []models.Payment
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}
	return rows, total, nil
}
