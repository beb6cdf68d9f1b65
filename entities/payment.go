package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentOrder records which user and package a checkout session belongs to,
// so the webhook can settle from an order id alone. It carries no settlement
// state: whether a payment was already credited is answered only by the
// ledger's unique transaction index.
type PaymentOrder struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID        string          `gorm:"uniqueIndex" json:"order_id"`
	UserID         uuid.UUID       `gorm:"index" json:"user_id"`
	PackageID      string          `json:"package_id"`
	GrossAmountMxn decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"gross_amount_mxn"`

	User *User `gorm:"foreignKey:UserID"`
	Timestamp
}
