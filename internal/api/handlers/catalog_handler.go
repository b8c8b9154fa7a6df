package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/pkg/logger"
)

type CatalogHandler struct {
	screener Screener
}

func NewCatalogHandler(screener Screener) *CatalogHandler {
	return &CatalogHandler{screener: screener}
}

func (h *CatalogHandler) Reload(c *fiber.Ctx) error {
	res, err := h.screener.ReloadCatalog(c.Context())
	if err != nil {
		return fail(c, err, "Failed to reload catalog")
	}

	logger.Info("Catalog reloaded",
		zap.Uint64("version", res.Version),
		zap.Int("drugs", res.Drugs),
	)
	return c.JSON(res)
}

func (h *CatalogHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// Ready fails until the first index is built and the catalog answers.
func (h *CatalogHandler) Ready(c *fiber.Ctx) error {
	if err := h.screener.Ready(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not ready",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":        "ready",
		"index_version": h.screener.IndexVersion(),
	})
}
