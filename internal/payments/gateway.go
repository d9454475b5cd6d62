// Package payments abstracts the external payment gateway behind a small
// capability interface so the application service never branches on whether
// a gateway is configured.
package payments

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/eacouncil/membership/pkg/errors"
)

// ErrPaymentsDisabled is returned by the null gateway. Handlers surface it
// as a 501 so staff can record payments manually instead.
var ErrPaymentsDisabled = apperrors.New("PAYMENTS_DISABLED", "online payments are not configured", 501)

// ErrBadSignature rejects a notification whose HMAC does not verify.
var ErrBadSignature = apperrors.New("PAYMENT_BAD_SIGNATURE", "payment notification signature is invalid", 400)

// InitiatedPayment points the applicant at the gateway's hosted page.
type InitiatedPayment struct {
	Reference   string            `json:"reference"`
	RedirectURL string            `json:"redirect_url"`
	Fields      map[string]string `json:"fields,omitempty"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// Notification is a verified server-to-server payment callback.
type Notification struct {
	Reference  string
	Amount     decimal.Decimal
	Currency   string
	Succeeded  bool
	ReceivedAt time.Time
}

// Gateway is implemented by each configured payment provider.
type Gateway interface {
	// InitiatePayment registers an expected payment and returns the
	// redirect the applicant completes it at.
	InitiatePayment(ctx context.Context, reference string, amount decimal.Decimal, currency string) (*InitiatedPayment, error)

	// VerifyNotification authenticates a callback's form values and
	// extracts the payment outcome. ErrBadSignature means the payload
	// must be discarded, not retried.
	VerifyNotification(ctx context.Context, values url.Values) (*Notification, error)

	Enabled() bool
}

// Disabled is the null gateway used when no provider is configured.
type Disabled struct{}

func NewDisabled() *Disabled { return &Disabled{} }

func (*Disabled) Enabled() bool { return false }

func (*Disabled) InitiatePayment(context.Context, string, decimal.Decimal, string) (*InitiatedPayment, error) {
	return nil, ErrPaymentsDisabled
}

func (*Disabled) VerifyNotification(context.Context, url.Values) (*Notification, error) {
	return nil, ErrPaymentsDisabled
}
