package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/interaction"
	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/screening"
	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/logger"
)

// Screener is the part of screening.Service the HTTP layer uses.
type Screener interface {
	Check(ctx context.Context, names []string) (*screening.CheckResult, error)
	Resolve(ctx context.Context, names []string) (*matching.ResolveResult, error)
	ScanText(ctx context.Context, text string) (*screening.ScanResult, error)
	Lookup(ctx context.Context, name string) (*screening.LookupResult, error)
	History(ctx context.Context, limit int) ([]models.CheckRecord, error)
	ReloadCatalog(ctx context.Context) (*screening.ReloadResult, error)
	Ready(ctx context.Context) error
	IndexVersion() uint64
}

type namesRequest struct {
	Names []string `json:"names"`
}

type textRequest struct {
	Text string `json:"text"`
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// fail maps service errors onto status codes and logs anything unexpected.
func fail(c *fiber.Ctx, err error, msg string) error {
	status := statusFor(err)
	switch status {
	case fiber.StatusServiceUnavailable:
		logger.Warn("Catalog unavailable", zap.String("path", c.Path()), zap.Error(err))
		msg = "Drug catalog unavailable"
	case fiber.StatusBadRequest:
		msg = err.Error()
	default:
		logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, interaction.ErrCatalogUnavailable), errors.Is(err, matching.ErrIndexNotBuilt):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, matching.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
