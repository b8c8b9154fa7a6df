package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/pkg/logger"
)

type DrugHandler struct {
	screener Screener
}

func NewDrugHandler(screener Screener) *DrugHandler {
	return &DrugHandler{screener: screener}
}

// Resolve maps raw names to catalog drugs without screening them.
func (h *DrugHandler) Resolve(c *fiber.Ctx) error {
	var req namesRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if len(req.Names) == 0 {
		return badRequest(c, "names is required")
	}

	res, err := h.screener.Resolve(c.Context(), req.Names)
	if err != nil {
		return fail(c, err, "Failed to resolve names")
	}

	return c.JSON(res)
}

func (h *DrugHandler) Lookup(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return badRequest(c, "name is required")
	}

	res, err := h.screener.Lookup(c.Context(), name)
	if err != nil {
		return fail(c, err, "Failed to look up drug")
	}

	return c.JSON(res)
}
