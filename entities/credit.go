package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditAccount caches the sum of all CreditTransaction amounts for a user.
// The balance column is only ever updated in the same database transaction as
// the CreditTransaction insert that justifies the change.
type CreditAccount struct {
	UserID         uuid.UUID       `gorm:"type:uuid;primary_key" json:"user_id"`
	Balance        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	TotalPurchased decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_purchased"`
	TotalSpent     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_spent"`

	User *User `gorm:"foreignKey:UserID"`
	Timestamp
}

// CreditTransaction is append-only. Rows are never updated or deleted.
// ExternalPaymentID carries the idempotency key for payment settlement; the
// unique index rejects a second settlement of the same payment. A purchase and
// its bonus entry share one payment id, so uniqueness is scoped per kind.
type CreditTransaction struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID            uuid.UUID       `gorm:"index" json:"user_id"`
	Kind              string          `gorm:"uniqueIndex:ux_transactions_payment_kind" json:"kind"` // Purchase, Bonus, Usage, Refund
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	BalanceBefore     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance_before"`
	BalanceAfter      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance_after"`
	ExternalPaymentID *string         `gorm:"uniqueIndex:ux_transactions_payment_kind" json:"external_payment_id,omitempty"`
	GenerationID      *uuid.UUID      `gorm:"type:uuid" json:"generation_id,omitempty"`
	Description       string          `json:"description"`

	User *User `gorm:"foreignKey:UserID"`
	Timestamp
}
