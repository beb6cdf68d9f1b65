package payment

import (
	"clipify-backend/domain"
	"clipify-backend/entities"
	"clipify-backend/internal/utils"
	"clipify-backend/internal/utils/mailing"
	"clipify-backend/pkg/ledger"
	"clipify-backend/pkg/user"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	PaymentService interface {
		GetCreditPackages(ctx context.Context) []domain.CreditPackage
		CreateCheckout(ctx context.Context, req domain.BuyCreditsRequest, userID string) (*domain.BuyCreditsResponse, error)
		ProcessPayment(ctx context.Context, req domain.ProcessPaymentRequest, userID string) (decimal.Decimal, error)
		HandleNotification(ctx context.Context, notif domain.PaymentNotification) error
		Settle(ctx context.Context, paymentID, packageID, userID string) (decimal.Decimal, error)
	}

	paymentService struct {
		paymentRepository PaymentRepository
		userRepository    user.UserRepository
		ledgerService     ledger.LedgerService
		snapClient        snap.Client
		coreClient        coreapi.Client
	}
)

func NewPaymentService(
	paymentRepository PaymentRepository,
	userRepository user.UserRepository,
	ledgerService ledger.LedgerService,
) PaymentService {
	serverKey := utils.GetConfig("SERVER_KEY")
	env := midtrans.Sandbox
	if utils.GetConfig("IsProd") == "true" {
		env = midtrans.Production
	}

	var snapClient snap.Client
	snapClient.New(serverKey, env)
	var coreClient coreapi.Client
	coreClient.New(serverKey, env)

	return &paymentService{
		paymentRepository: paymentRepository,
		userRepository:    userRepository,
		ledgerService:     ledgerService,
		snapClient:        snapClient,
		coreClient:        coreClient,
	}
}

func (s *paymentService) GetCreditPackages(ctx context.Context) []domain.CreditPackage {
	packages := make([]domain.CreditPackage, 0, len(domain.CreditPackages))
	for _, pkg := range domain.CreditPackages {
		packages = append(packages, pkg)
	}
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].PriceMxn.LessThan(packages[j].PriceMxn)
	})
	return packages
}

// CreateCheckout opens a payment session for a credit package. No credits move
// here; the ledger is only touched once the gateway confirms the payment.
func (s *paymentService) CreateCheckout(ctx context.Context, req domain.BuyCreditsRequest, userID string) (*domain.BuyCreditsResponse, error) {
	pkg, ok := domain.CreditPackages[req.PackageID]
	if !ok {
		return nil, domain.ErrInvalidCreditPackage
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	orderID := fmt.Sprintf("clipify-%s-%s", pkg.ID, uuid.New().String())

	order := &entities.PaymentOrder{
		ID:             uuid.New(),
		OrderID:        orderID,
		UserID:         userUUID,
		PackageID:      pkg.ID,
		GrossAmountMxn: pkg.PriceMxn,
	}
	if err := s.paymentRepository.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: pkg.PriceMxn.IntPart(),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: req.Email,
		},
	}

	snapResp, snapErr := s.snapClient.CreateTransaction(snapReq)
	if snapErr != nil {
		return nil, domain.ErrPaymentFailed
	}

	return &domain.BuyCreditsResponse{
		OrderID:     orderID,
		RedirectURL: snapResp.RedirectURL,
	}, nil
}

// ProcessPayment is the synchronous settlement path used by the checkout
// return page. It verifies the payment state with the gateway before settling;
// the webhook may have settled the same order already, in which case Settle is
// a no-op.
func (s *paymentService) ProcessPayment(ctx context.Context, req domain.ProcessPaymentRequest, userID string) (decimal.Decimal, error) {
	order, err := s.paymentRepository.GetOrderByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrInvalidCreditPackage
		}
		return decimal.Zero, err
	}
	if order.UserID.String() != userID {
		return decimal.Zero, domain.ErrUserNotAllowed
	}

	status, statusErr := s.coreClient.CheckTransaction(req.OrderID)
	if statusErr != nil {
		return decimal.Zero, domain.ErrPaymentFailed
	}
	if !isPaid(status.TransactionStatus, status.FraudStatus) {
		return decimal.Zero, domain.ErrPaymentNotSettled
	}

	return s.Settle(ctx, req.OrderID, order.PackageID, userID)
}

// HandleNotification is the webhook settlement path. The caller acknowledges
// the gateway regardless of what this returns; errors here are for logging.
func (s *paymentService) HandleNotification(ctx context.Context, notif domain.PaymentNotification) error {
	if !isPaid(notif.TransactionStatus, notif.FraudStatus) {
		return nil
	}

	order, err := s.paymentRepository.GetOrderByOrderID(ctx, notif.OrderID)
	if err != nil {
		return fmt.Errorf("unknown order %s: %w", notif.OrderID, err)
	}

	_, err = s.Settle(ctx, notif.OrderID, order.PackageID, order.UserID.String())
	return err
}

// Settle converts a confirmed payment into ledger credit. Both settlement
// paths funnel through here, and both may race on the same payment id: the
// ledger's atomic idempotency guard is the only thing that keeps the credit
// single. There is no separate already-processed bookkeeping.
func (s *paymentService) Settle(ctx context.Context, paymentID, packageID, userID string) (decimal.Decimal, error) {
	pkg, ok := domain.CreditPackages[packageID]
	if !ok {
		return decimal.Zero, domain.ErrInvalidCreditPackage
	}

	entries := []ledger.Entry{
		{
			Kind:        domain.KindPurchase,
			Amount:      pkg.BaseCredits,
			Description: fmt.Sprintf("Purchased %s package", pkg.Name),
		},
	}
	if pkg.BonusCredits.IsPositive() {
		entries = append(entries, ledger.Entry{
			Kind:        domain.KindBonus,
			Amount:      pkg.BonusCredits,
			Description: fmt.Sprintf("Bonus credits for %s package", pkg.Name),
		})
	}

	balance, applied, err := s.ledgerService.Credit(ctx, userID, entries, paymentID)
	if err != nil {
		return decimal.Zero, err
	}

	if applied {
		s.sendReceipt(ctx, userID, pkg)
	}

	return balance, nil
}

// Receipt mail is best effort; a mail failure never fails a settlement.
func (s *paymentService) sendReceipt(ctx context.Context, userID string, pkg domain.CreditPackage) {
	account, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("payment: receipt skipped, user %s lookup failed: %v", userID, err)
		return
	}

	total := pkg.BaseCredits.Add(pkg.BonusCredits)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your purchase of the <b>%s</b> package is confirmed. %s credits were added to your account.</p>",
		account.Name, pkg.Name, total.String(),
	)
	if err := mailing.SendMail(account.Email, "Your Clipify credits", body); err != nil {
		log.Printf("payment: receipt mail to %s failed: %v", account.Email, err)
	}
}

func isPaid(transactionStatus, fraudStatus string) bool {
	switch transactionStatus {
	case "settlement":
		return true
	case "capture":
		return fraudStatus == "accept"
	default:
		return false
	}
}
