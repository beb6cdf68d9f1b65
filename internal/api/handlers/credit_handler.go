package handlers

import (
	"clipify-backend/domain"
	"clipify-backend/internal/api/presenters"
	"clipify-backend/pkg/ledger"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type (
	CreditHandler interface {
		GetUserCredits(c *fiber.Ctx) error
		GetCreditHistory(c *fiber.Ctx) error
	}

	creditHandler struct {
		ledgerService ledger.LedgerService
	}
)

func NewCreditHandler(ledgerService ledger.LedgerService) CreditHandler {
	return &creditHandler{
		ledgerService: ledgerService,
	}
}

func (h *creditHandler) GetUserCredits(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	credits, err := h.ledgerService.GetUserCredits(c.Context(), userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetBalance, err)
	}

	return presenters.SuccessResponse(c, credits, fiber.StatusOK, domain.MessageSuccessGetBalance)
}

func (h *creditHandler) GetCreditHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	transactions, count, err := h.ledgerService.GetTransactionHistory(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetCreditHistory, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"transactions": transactions,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetCreditHistory)
}
