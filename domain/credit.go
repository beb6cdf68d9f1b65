package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	MessageSuccessGetBalance       = "credit balance retrieved successfully"
	MessageSuccessGetCreditHistory = "credit transaction history retrieved successfully"

	MessageFailedGetBalance       = "failed to retrieve credit balance"
	MessageFailedGetCreditHistory = "failed to retrieve credit transaction history"

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidCreditAmount = errors.New("credit amount must be positive")
	ErrInvalidCreditKind   = errors.New("invalid credit kind")
)

// Transaction kinds. Usage entries carry negative amounts, everything else
// positive.
const (
	KindPurchase = "Purchase"
	KindBonus    = "Bonus"
	KindUsage    = "Usage"
	KindRefund   = "Refund"
)

type (
	UserCredits struct {
		Balance        decimal.Decimal `json:"balance"`
		TotalPurchased decimal.Decimal `json:"total_purchased"`
		TotalSpent     decimal.Decimal `json:"total_spent"`
	}

	CreditTransaction struct {
		ID                string          `json:"id"`
		Kind              string          `json:"kind"`
		Amount            decimal.Decimal `json:"amount"`
		BalanceBefore     decimal.Decimal `json:"balance_before"`
		BalanceAfter      decimal.Decimal `json:"balance_after"`
		ExternalPaymentID string          `json:"external_payment_id,omitempty"`
		GenerationID      string          `json:"generation_id,omitempty"`
		Description       string          `json:"description"`
		CreatedAt         time.Time       `json:"created_at"`
	}
)
