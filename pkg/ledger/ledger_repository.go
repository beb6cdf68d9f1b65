package ledger

import (
	"clipify-backend/domain"
	"clipify-backend/entities"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	// Entry is one credit line to append to the ledger. A settlement may carry
	// two entries (purchase plus bonus) that commit together or not at all.
	Entry struct {
		Kind        string
		Amount      decimal.Decimal
		Description string
	}

	LedgerRepository interface {
		GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*entities.CreditAccount, error)
		Deduct(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string, generationID *uuid.UUID) (*entities.CreditAccount, error)
		Credit(ctx context.Context, userID uuid.UUID, entries []Entry, externalPaymentID *string) (*entities.CreditAccount, bool, error)
		GetTransactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.CreditTransaction, int64, error)
		SumTransactionAmounts(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	}

	ledgerRepository struct {
		db *gorm.DB
	}
)

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{
		db: db,
	}
}

func (r *ledgerRepository) GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*entities.CreditAccount, error) {
	var account entities.CreditAccount
	if err := r.db.WithContext(ctx).
		Where(entities.CreditAccount{UserID: userID}).
		FirstOrCreate(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Deduct performs the balance check, the balance update and the transaction
// insert in one database transaction. The check is a guarded UPDATE, so two
// concurrent deductions against the same account cannot both pass it.
func (r *ledgerRepository) Deduct(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string, generationID *uuid.UUID) (*entities.CreditAccount, error) {
	var account entities.CreditAccount

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(entities.CreditAccount{UserID: userID}).
			FirstOrCreate(&account).Error; err != nil {
			return err
		}

		res := tx.Model(&entities.CreditAccount{}).
			Where("user_id = ? AND balance >= ?", userID, amount).
			Updates(map[string]any{
				"balance":     gorm.Expr("balance - ?", amount),
				"total_spent": gorm.Expr("total_spent + ?", amount),
				"updated_at":  time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInsufficientCredits
		}

		if err := tx.First(&account, "user_id = ?", userID).Error; err != nil {
			return err
		}

		transaction := &entities.CreditTransaction{
			ID:            uuid.New(),
			UserID:        userID,
			Kind:          domain.KindUsage,
			Amount:        amount.Neg(),
			BalanceBefore: account.Balance.Add(amount),
			BalanceAfter:  account.Balance,
			GenerationID:  generationID,
			Description:   description,
		}
		return tx.Create(transaction).Error
	})
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// Credit appends the given entries and updates the cached balance atomically.
// When externalPaymentID is set and a transaction with that id already exists,
// nothing is written and the current account is returned with applied=false.
// The existence check and the insert run in the same transaction; a lost race
// surfaces as a duplicate-key error from the unique index and is treated the
// same as an ordinary replay.
func (r *ledgerRepository) Credit(ctx context.Context, userID uuid.UUID, entries []Entry, externalPaymentID *string) (*entities.CreditAccount, bool, error) {
	var account entities.CreditAccount
	applied := true

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if externalPaymentID != nil {
			var existing entities.CreditTransaction
			err := tx.Where("external_payment_id = ?", *externalPaymentID).
				First(&existing).Error
			if err == nil {
				applied = false
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := tx.Where(entities.CreditAccount{UserID: userID}).
			FirstOrCreate(&account).Error; err != nil {
			return err
		}

		total := decimal.Zero
		purchased := decimal.Zero
		for _, entry := range entries {
			total = total.Add(entry.Amount)
			if entry.Kind == domain.KindPurchase || entry.Kind == domain.KindBonus {
				purchased = purchased.Add(entry.Amount)
			}
		}

		res := tx.Model(&entities.CreditAccount{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"balance":         gorm.Expr("balance + ?", total),
				"total_purchased": gorm.Expr("total_purchased + ?", purchased),
				"updated_at":      time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.First(&account, "user_id = ?", userID).Error; err != nil {
			return err
		}

		running := account.Balance.Sub(total)
		for _, entry := range entries {
			transaction := &entities.CreditTransaction{
				ID:                uuid.New(),
				UserID:            userID,
				Kind:              entry.Kind,
				Amount:            entry.Amount,
				BalanceBefore:     running,
				BalanceAfter:      running.Add(entry.Amount),
				ExternalPaymentID: externalPaymentID,
				Description:       entry.Description,
			}
			if err := tx.Create(transaction).Error; err != nil {
				return err
			}
			running = running.Add(entry.Amount)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the settlement race; the other writer's credit stands.
			current, getErr := r.GetOrCreateAccount(ctx, userID)
			if getErr != nil {
				return nil, false, getErr
			}
			return current, false, nil
		}
		return nil, false, err
	}
	if !applied {
		current, err := r.GetOrCreateAccount(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}

	return &account, true, nil
}

func (r *ledgerRepository) GetTransactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.CreditTransaction, int64, error) {
	var transactions []*entities.CreditTransaction
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.CreditTransaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, count, nil
}

func (r *ledgerRepository) SumTransactionAmounts(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&entities.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
