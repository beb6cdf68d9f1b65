package ledger

import (
	"clipify-backend/domain"
	"clipify-backend/entities"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.CreditAccount{},
		&entities.CreditTransaction{},
	))
	return db
}

func newTestLedger(t *testing.T) (LedgerService, LedgerRepository, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	return NewLedgerService(repo), repo, db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimalEqual(t *testing.T, expected, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, expected.Equal(actual), "expected %s, got %s", expected, actual)
}

func TestBalanceMatchesTransactionSum(t *testing.T) {
	svc, repo, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	steps := []func() error{
		func() error {
			_, _, err := svc.Credit(ctx, userID.String(), []Entry{
				{Kind: domain.KindPurchase, Amount: dec("100"), Description: "seed"},
			}, "")
			return err
		},
		func() error {
			_, err := svc.Deduct(ctx, userID.String(), dec("5"), "image generation", nil)
			return err
		},
		func() error {
			_, _, err := svc.Credit(ctx, userID.String(), []Entry{
				{Kind: domain.KindRefund, Amount: dec("2.50"), Description: "partial refund"},
			}, "")
			return err
		},
		func() error {
			_, err := svc.Deduct(ctx, userID.String(), dec("28"), "video generation", nil)
			return err
		},
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)

		balance, err := svc.GetBalance(ctx, userID.String())
		require.NoError(t, err)
		sum, err := repo.SumTransactionAmounts(ctx, userID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(sum), "step %d: balance %s != transaction sum %s", i, balance, sum)
	}

	balance, err := svc.GetBalance(ctx, userID.String())
	require.NoError(t, err)
	assertDecimalEqual(t, dec("69.50"), balance)
}

func TestDeductInsufficientFundsLeavesBalanceIntact(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New().String()

	_, _, err := svc.Credit(ctx, userID, []Entry{
		{Kind: domain.KindPurchase, Amount: dec("10"), Description: "seed"},
	}, "")
	require.NoError(t, err)

	_, err = svc.Deduct(ctx, userID, dec("15"), "too expensive", nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assertDecimalEqual(t, dec("10"), balance)

	transactions, count, err := svc.GetTransactionHistory(ctx, userID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "failed deduction must not append a transaction")
	require.Len(t, transactions, 1)
	assert.Equal(t, domain.KindPurchase, transactions[0].Kind)
}

func TestDeductOnMissingAccount(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Deduct(ctx, uuid.New().String(), dec("1"), "no funds", nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
}

func TestCreditIdempotentOnPaymentID(t *testing.T) {
	svc, _, db := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New().String()

	entries := []Entry{
		{Kind: domain.KindPurchase, Amount: dec("100"), Description: "Purchased Basic package"},
		{Kind: domain.KindBonus, Amount: dec("20"), Description: "Bonus credits for Basic package"},
	}

	balance, applied, err := svc.Credit(ctx, userID, entries, "pay_1")
	require.NoError(t, err)
	assert.True(t, applied)
	assertDecimalEqual(t, dec("120"), balance)

	balance, applied, err = svc.Credit(ctx, userID, entries, "pay_1")
	require.NoError(t, err)
	assert.False(t, applied, "replayed settlement must not apply")
	assertDecimalEqual(t, dec("120"), balance)

	var count int64
	require.NoError(t, db.Model(&entities.CreditTransaction{}).
		Where("external_payment_id = ?", "pay_1").
		Count(&count).Error)
	assert.EqualValues(t, 2, count, "one purchase plus one bonus entry, never more")
}

func TestCreditDistinctPaymentsAccumulate(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New().String()

	for _, paymentID := range []string{"pay_a", "pay_b"} {
		_, applied, err := svc.Credit(ctx, userID, []Entry{
			{Kind: domain.KindPurchase, Amount: dec("100"), Description: "purchase"},
		}, paymentID)
		require.NoError(t, err)
		assert.True(t, applied)
	}

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assertDecimalEqual(t, dec("200"), balance)
}

func TestCreditRunningBalanceStamps(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New().String()

	_, _, err := svc.Credit(ctx, userID, []Entry{
		{Kind: domain.KindPurchase, Amount: dec("100"), Description: "purchase"},
		{Kind: domain.KindBonus, Amount: dec("20"), Description: "bonus"},
	}, "pay_1")
	require.NoError(t, err)

	transactions, _, err := svc.GetTransactionHistory(ctx, userID, 1, 10)
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	for _, tx := range transactions {
		switch tx.Kind {
		case domain.KindPurchase:
			assertDecimalEqual(t, dec("0"), tx.BalanceBefore)
			assertDecimalEqual(t, dec("100"), tx.BalanceAfter)
		case domain.KindBonus:
			assertDecimalEqual(t, dec("100"), tx.BalanceBefore)
			assertDecimalEqual(t, dec("120"), tx.BalanceAfter)
		default:
			t.Fatalf("unexpected kind %s", tx.Kind)
		}
		assert.Equal(t, "pay_1", tx.ExternalPaymentID)
	}
}

func TestCreditValidation(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New().String()

	_, _, err := svc.Credit(ctx, userID, nil, "pay_x")
	assert.ErrorIs(t, err, domain.ErrInvalidCreditAmount)

	_, _, err = svc.Credit(ctx, userID, []Entry{
		{Kind: domain.KindPurchase, Amount: dec("0")},
	}, "pay_x")
	assert.ErrorIs(t, err, domain.ErrInvalidCreditAmount)

	_, _, err = svc.Credit(ctx, userID, []Entry{
		{Kind: domain.KindUsage, Amount: dec("10")},
	}, "pay_x")
	assert.ErrorIs(t, err, domain.ErrInvalidCreditKind)

	_, err = svc.Deduct(ctx, userID, dec("-3"), "negative", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCreditAmount)

	_, err = svc.Deduct(ctx, "not-a-uuid", dec("1"), "bad id", nil)
	assert.ErrorIs(t, err, domain.ErrParseUUID)
}

func TestDeductAllOrNothing(t *testing.T) {
	svc, repo, db := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	_, _, err := svc.Credit(ctx, userID.String(), []Entry{
		{Kind: domain.KindPurchase, Amount: dec("50"), Description: "seed"},
	}, "")
	require.NoError(t, err)

	// Make the transaction insert fail after the balance update succeeded; the
	// whole deduction must roll back.
	injected := errors.New("injected insert failure")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("fail_ledger_insert", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "credit_transactions" {
			tx.AddError(injected)
		}
	}))
	t.Cleanup(func() {
		_ = db.Callback().Create().Remove("fail_ledger_insert")
	})

	_, err = svc.Deduct(ctx, userID.String(), dec("20"), "doomed", nil)
	assert.ErrorIs(t, err, injected)

	require.NoError(t, db.Callback().Create().Remove("fail_ledger_insert"))

	balance, err := svc.GetBalance(ctx, userID.String())
	require.NoError(t, err)
	assertDecimalEqual(t, dec("50"), balance)

	sum, err := repo.SumTransactionAmounts(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(sum), "balance %s diverged from transaction sum %s", balance, sum)
}

func TestUsageTransactionCarriesGenerationID(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New().String()
	generationID := uuid.New()

	_, _, err := svc.Credit(ctx, userID, []Entry{
		{Kind: domain.KindPurchase, Amount: dec("10"), Description: "seed"},
	}, "")
	require.NoError(t, err)

	balance, err := svc.Deduct(ctx, userID, dec("5"), "Image generation", &generationID)
	require.NoError(t, err)
	assertDecimalEqual(t, dec("5"), balance)

	transactions, _, err := svc.GetTransactionHistory(ctx, userID, 1, 10)
	require.NoError(t, err)

	var usage *domain.CreditTransaction
	for _, tx := range transactions {
		if tx.Kind == domain.KindUsage {
			usage = tx
		}
	}
	require.NotNil(t, usage)
	assertDecimalEqual(t, dec("-5"), usage.Amount)
	assertDecimalEqual(t, dec("10"), usage.BalanceBefore)
	assertDecimalEqual(t, dec("5"), usage.BalanceAfter)
	assert.Equal(t, generationID.String(), usage.GenerationID)
}

func TestGetUserCreditsAggregates(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New().String()

	_, _, err := svc.Credit(ctx, userID, []Entry{
		{Kind: domain.KindPurchase, Amount: dec("100"), Description: "purchase"},
		{Kind: domain.KindBonus, Amount: dec("20"), Description: "bonus"},
	}, "pay_1")
	require.NoError(t, err)

	_, err = svc.Deduct(ctx, userID, dec("28"), "video", nil)
	require.NoError(t, err)

	credits, err := svc.GetUserCredits(ctx, userID)
	require.NoError(t, err)
	assertDecimalEqual(t, dec("92"), credits.Balance)
	assertDecimalEqual(t, dec("120"), credits.TotalPurchased)
	assertDecimalEqual(t, dec("28"), credits.TotalSpent)
}
