package handlers

import (
	"clipify-backend/domain"
	"clipify-backend/internal/api/presenters"
	"clipify-backend/pkg/payment"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	PaymentHandler interface {
		GetCreditPackages(c *fiber.Ctx) error
		BuyCredits(c *fiber.Ctx) error
		ProcessPayment(c *fiber.Ctx) error
		PaymentWebhookHandler(c *fiber.Ctx) error
	}

	paymentHandler struct {
		paymentService payment.PaymentService
		validator      *validator.Validate
	}
)

func NewPaymentHandler(paymentService payment.PaymentService, validator *validator.Validate) PaymentHandler {
	return &paymentHandler{
		paymentService: paymentService,
		validator:      validator,
	}
}

func (h *paymentHandler) GetCreditPackages(c *fiber.Ctx) error {
	packages := h.paymentService.GetCreditPackages(c.Context())
	return presenters.SuccessResponse(c, packages, fiber.StatusOK, domain.MessageSuccessGetCreditPackages)
}

func (h *paymentHandler) BuyCredits(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.BuyCreditsRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBuyCredits, err)
	}

	resp, err := h.paymentService.CreateCheckout(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBuyCredits, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessBuyCredits)
}

func (h *paymentHandler) ProcessPayment(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.ProcessPaymentRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedProcessPayment, err)
	}

	balance, err := h.paymentService.ProcessPayment(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedProcessPayment, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"balance": balance,
	}, fiber.StatusOK, domain.MessageSuccessProcessPayment)
}

// PaymentWebhookHandler always acknowledges with 200. The gateway retries
// aggressively on anything else, and a replayed notification is harmless:
// settlement is idempotent on the order id.
func (h *paymentHandler) PaymentWebhookHandler(c *fiber.Ctx) error {
	notif := new(domain.PaymentNotification)
	if err := c.BodyParser(notif); err != nil {
		log.Printf("webhook: unreadable notification payload: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	if err := h.paymentService.HandleNotification(c.Context(), *notif); err != nil {
		log.Printf("webhook: settlement for order %s failed: %v", notif.OrderID, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
