package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	MessageSuccessGetCreditPackages = "credit packages retrieved successfully"
	MessageSuccessBuyCredits        = "checkout session created successfully"
	MessageSuccessProcessPayment    = "payment processed successfully"

	MessageFailedGetCreditPackages = "failed to retrieve credit packages"
	MessageFailedBuyCredits        = "failed to create checkout session"
	MessageFailedProcessPayment    = "failed to process payment"

	ErrInvalidCreditPackage = errors.New("invalid credit package")
	ErrPaymentFailed        = errors.New("payment processing failed")
	ErrPaymentNotSettled    = errors.New("payment is not settled yet")
)

// CreditPackage maps a purchasable package to the credits it grants. Credits
// are MXN-denominated with two fractional digits; BonusCredits settles in the
// same unit of work as BaseCredits or not at all.
type CreditPackage struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BaseCredits  decimal.Decimal `json:"base_credits"`
	BonusCredits decimal.Decimal `json:"bonus_credits"`
	PriceMxn     decimal.Decimal `json:"price_mxn"`
}

// CreditPackages is the static catalog. Package contents are part of the
// product contract, not user data, so they live in code.
var CreditPackages = map[string]CreditPackage{
	"basic": {
		ID:           "basic",
		Name:         "Basic",
		BaseCredits:  decimal.NewFromInt(100),
		BonusCredits: decimal.NewFromInt(20),
		PriceMxn:     decimal.NewFromInt(99),
	},
	"plus": {
		ID:           "plus",
		Name:         "Plus",
		BaseCredits:  decimal.NewFromInt(300),
		BonusCredits: decimal.NewFromInt(90),
		PriceMxn:     decimal.NewFromInt(249),
	},
	"pro": {
		ID:           "pro",
		Name:         "Pro",
		BaseCredits:  decimal.NewFromInt(1000),
		BonusCredits: decimal.NewFromInt(400),
		PriceMxn:     decimal.NewFromInt(699),
	},
}

type (
	BuyCreditsRequest struct {
		PackageID string `json:"package_id" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
	}

	BuyCreditsResponse struct {
		OrderID     string `json:"order_id"`
		RedirectURL string `json:"redirect_url"`
	}

	ProcessPaymentRequest struct {
		OrderID   string `json:"order_id" validate:"required"`
		PackageID string `json:"package_id" validate:"required"`
	}

	// PaymentNotification is the subset of the midtrans webhook payload the
	// settlement path cares about. The package behind an order id is recovered
	// from the order record written at checkout.
	PaymentNotification struct {
		OrderID           string `json:"order_id"`
		TransactionStatus string `json:"transaction_status"`
		FraudStatus       string `json:"fraud_status"`
	}
)
