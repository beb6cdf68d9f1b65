package ledger

import (
	"clipify-backend/domain"
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	LedgerService interface {
		GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
		GetUserCredits(ctx context.Context, userID string) (*domain.UserCredits, error)
		Deduct(ctx context.Context, userID string, amount decimal.Decimal, description string, generationID *uuid.UUID) (decimal.Decimal, error)
		Credit(ctx context.Context, userID string, entries []Entry, externalPaymentID string) (decimal.Decimal, bool, error)
		GetTransactionHistory(ctx context.Context, userID string, page, limit int) ([]*domain.CreditTransaction, int64, error)
	}

	ledgerService struct {
		ledgerRepository LedgerRepository
	}
)

func NewLedgerService(ledgerRepository LedgerRepository) LedgerService {
	return &ledgerService{
		ledgerRepository: ledgerRepository,
	}
}

func (s *ledgerService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return decimal.Zero, domain.ErrParseUUID
	}

	account, err := s.ledgerRepository.GetOrCreateAccount(ctx, userUUID)
	if err != nil {
		return decimal.Zero, err
	}

	return account.Balance, nil
}

func (s *ledgerService) GetUserCredits(ctx context.Context, userID string) (*domain.UserCredits, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	account, err := s.ledgerRepository.GetOrCreateAccount(ctx, userUUID)
	if err != nil {
		return nil, err
	}

	return &domain.UserCredits{
		Balance:        account.Balance,
		TotalPurchased: account.TotalPurchased,
		TotalSpent:     account.TotalSpent,
	}, nil
}

func (s *ledgerService) Deduct(ctx context.Context, userID string, amount decimal.Decimal, description string, generationID *uuid.UUID) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidCreditAmount
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return decimal.Zero, domain.ErrParseUUID
	}

	account, err := s.ledgerRepository.Deduct(ctx, userUUID, amount, description, generationID)
	if err != nil {
		return decimal.Zero, err
	}

	return account.Balance, nil
}

func (s *ledgerService) Credit(ctx context.Context, userID string, entries []Entry, externalPaymentID string) (decimal.Decimal, bool, error) {
	if len(entries) == 0 {
		return decimal.Zero, false, domain.ErrInvalidCreditAmount
	}
	for _, entry := range entries {
		if !entry.Amount.IsPositive() {
			return decimal.Zero, false, domain.ErrInvalidCreditAmount
		}
		switch entry.Kind {
		case domain.KindPurchase, domain.KindBonus, domain.KindRefund:
		default:
			return decimal.Zero, false, domain.ErrInvalidCreditKind
		}
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return decimal.Zero, false, domain.ErrParseUUID
	}

	var paymentID *string
	if externalPaymentID != "" {
		paymentID = &externalPaymentID
	}

	account, applied, err := s.ledgerRepository.Credit(ctx, userUUID, entries, paymentID)
	if err != nil {
		return decimal.Zero, false, err
	}

	return account.Balance, applied, nil
}

func (s *ledgerService) GetTransactionHistory(ctx context.Context, userID string, page, limit int) ([]*domain.CreditTransaction, int64, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, domain.ErrParseUUID
	}

	transactions, count, err := s.ledgerRepository.GetTransactions(ctx, userUUID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*domain.CreditTransaction, 0, len(transactions))
	for _, tx := range transactions {
		item := &domain.CreditTransaction{
			ID:            tx.ID.String(),
			Kind:          tx.Kind,
			Amount:        tx.Amount,
			BalanceBefore: tx.BalanceBefore,
			BalanceAfter:  tx.BalanceAfter,
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt,
		}
		if tx.ExternalPaymentID != nil {
			item.ExternalPaymentID = *tx.ExternalPaymentID
		}
		if tx.GenerationID != nil {
			item.GenerationID = tx.GenerationID.String()
		}
		result = append(result, item)
	}

	return result, count, nil
}
