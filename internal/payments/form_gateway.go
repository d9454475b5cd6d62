package payments

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eacouncil/membership/pkg/crypto"
)

// DefaultPaymentTTL bounds how long an initiated payment stays payable.
const DefaultPaymentTTL = 24 * time.Hour

// FormConfig configures the hosted-form gateway integration.
type FormConfig struct {
	MerchantID string
	SecretKey  string
	PayURL     string
	ReturnURL  string
	NotifyURL  string
	PaymentTTL time.Duration
}

// FormGateway implements the hosted-payment-page flow: the applicant is
// redirected with signed form fields, and the provider posts a signed
// notification back. Signatures are HMAC-SHA512 over the sorted form
// values, excluding the signature field itself.
type FormGateway struct {
	cfg FormConfig
	now func() time.Time
}

func NewFormGateway(cfg FormConfig) (*FormGateway, error) {
	if cfg.MerchantID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("payments: merchant_id and secret_key are required")
	}
	if cfg.PayURL == "" {
		return nil, fmt.Errorf("payments: pay_url is required")
	}
	if cfg.PaymentTTL <= 0 {
		cfg.PaymentTTL = DefaultPaymentTTL
	}
	return &FormGateway{cfg: cfg, now: time.Now}, nil
}

func (g *FormGateway) Enabled() bool { return true }

func (g *FormGateway) InitiatePayment(_ context.Context, reference string, amount decimal.Decimal, currency string) (*InitiatedPayment, error) {
	if reference == "" {
		return nil, fmt.Errorf("payments: reference is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("payments: amount must be positive")
	}

	fields := map[string]string{
		"merchant_id": g.cfg.MerchantID,
		"reference":   reference,
		"amount":      amount.StringFixed(2),
		"currency":    currency,
		"return_url":  g.cfg.ReturnURL,
		"notify_url":  g.cfg.NotifyURL,
	}
	fields["signature"] = g.sign(fields)

	return &InitiatedPayment{
		Reference:   reference,
		RedirectURL: g.cfg.PayURL,
		Fields:      fields,
		ExpiresAt:   g.now().Add(g.cfg.PaymentTTL),
	}, nil
}

func (g *FormGateway) VerifyNotification(_ context.Context, values url.Values) (*Notification, error) {
	signature := values.Get("signature")
	if signature == "" {
		return nil, ErrBadSignature
	}

	fields := make(map[string]string, len(values))
	for key := range values {
		if key == "signature" {
			continue
		}
		fields[key] = values.Get(key)
	}
	if !crypto.VerifyHMAC(canonicalize(fields), g.cfg.SecretKey, signature) {
		return nil, ErrBadSignature
	}

	amount, err := decimal.NewFromString(values.Get("amount"))
	if err != nil {
		return nil, fmt.Errorf("payments: parse amount: %w", err)
	}

	return &Notification{
		Reference:  values.Get("reference"),
		Amount:     amount,
		Currency:   values.Get("currency"),
		Succeeded:  values.Get("status") == "paid",
		ReceivedAt: g.now(),
	}, nil
}

func (g *FormGateway) sign(fields map[string]string) string {
	return crypto.SignHMAC(canonicalize(fields), g.cfg.SecretKey)
}

// canonicalize joins key=value pairs in key order so both sides sign the
// same byte sequence regardless of form-field ordering.
func canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}
	return strings.Join(pairs, "&")
}
