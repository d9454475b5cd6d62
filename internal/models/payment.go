package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
)

// Payment records an application fee. Amounts use fixed-point decimals; the
// gateway reference ties the row to the external payment.
type Payment struct {
	BaseModel

	ApplicationID string       `gorm:"type:uuid;not null;index" json:"application_id"`
	Application   *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`

	Reference string          `gorm:"uniqueIndex;not null" json:"reference"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency  string          `gorm:"size:3;not null;default:USD" json:"currency"`
	Gateway   string          `gorm:"not null" json:"gateway"`

	Status      string     `gorm:"not null;default:pending;index" json:"status"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	FailureCode string     `json:"failure_code,omitempty"`
}
