package handlers

import (
	"clipify-backend/domain"
	"clipify-backend/internal/api/presenters"
	"clipify-backend/pkg/generation"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	GenerationHandler interface {
		Generate(c *fiber.Ctx) error
		CreateGeneration(c *fiber.Ctx) error
		CompleteGeneration(c *fiber.Ctx) error
		FailGeneration(c *fiber.Ctx) error
		GetGeneration(c *fiber.Ctx) error
		GetGenerations(c *fiber.Ctx) error
	}

	generationHandler struct {
		generationService generation.GenerationService
		validator         *validator.Validate
	}
)

func NewGenerationHandler(generationService generation.GenerationService, validator *validator.Validate) GenerationHandler {
	return &generationHandler{
		generationService: generationService,
		validator:         validator,
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrGenerationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientCredits):
		return fiber.StatusPaymentRequired
	case errors.Is(err, domain.ErrGenerationFinalized):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrUpstreamFailed),
		errors.Is(err, domain.ErrUpstreamQuota),
		errors.Is(err, domain.ErrUnsupportedResult):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrPollTimeout):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadRequest
	}
}

// Generate runs the whole flow in one request: the connection stays open while
// the long-running operation is polled.
func (h *generationHandler) Generate(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.CreateGenerationRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateGeneration, err)
	}

	resp, err := h.generationService.Generate(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedCreateGeneration, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessCompleteGen)
}

func (h *generationHandler) CreateGeneration(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.CreateGenerationRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateGeneration, err)
	}

	resp, err := h.generationService.CreateGeneration(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedCreateGeneration, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusCreated, domain.MessageSuccessCreateGeneration)
}

func (h *generationHandler) CompleteGeneration(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	req := new(domain.CompleteGenerationRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCompleteGen, err)
	}

	resp, err := h.generationService.CompleteGeneration(c.Context(), id, *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedCompleteGen, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessCompleteGen)
}

func (h *generationHandler) FailGeneration(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	req := new(domain.FailGenerationRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedFailGen, err)
	}

	if err := h.generationService.FailGeneration(c.Context(), id, *req, userID); err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedFailGen, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessFailGen)
}

func (h *generationHandler) GetGeneration(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	resp, err := h.generationService.GetGenerationByID(c.Context(), id, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedGetGeneration, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessGetGeneration)
}

func (h *generationHandler) GetGenerations(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	generations, count, err := h.generationService.GetUserGenerations(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetGenerations, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"generations": generations,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetGenerations)
}
