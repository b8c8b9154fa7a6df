package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type InteractionHandler struct {
	screener Screener
}

func NewInteractionHandler(screener Screener) *InteractionHandler {
	return &InteractionHandler{screener: screener}
}

func (h *InteractionHandler) Check(c *fiber.Ctx) error {
	var req namesRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if len(req.Names) == 0 {
		return badRequest(c, "names is required")
	}

	res, err := h.screener.Check(c.Context(), req.Names)
	if err != nil {
		return fail(c, err, "Failed to check interactions")
	}

	return c.JSON(res)
}

// Scan extracts drug names from free text, such as an OCR'd label, and checks them.
func (h *InteractionHandler) Scan(c *fiber.Ctx) error {
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return badRequest(c, "text is required")
	}

	res, err := h.screener.ScanText(c.Context(), req.Text)
	if err != nil {
		return fail(c, err, "Failed to scan text")
	}

	return c.JSON(res)
}

func (h *InteractionHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		return badRequest(c, "limit must be positive")
	}
	limit = min(limit, maxHistoryLimit)

	history, err := h.screener.History(c.Context(), limit)
	if err != nil {
		return fail(c, err, "Failed to load check history")
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}
